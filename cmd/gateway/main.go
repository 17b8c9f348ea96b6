// Command gateway runs the Lenny Lodge AI gateway: an HTTP service that
// fronts the OpenAI Responses API (with an optional xAI fallback) for chat,
// research, explanation, planning and suggestion endpoints, plus a listing
// importer. Requires OPENAI_API_KEY; XAI_API_KEY enables the fallback.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lennylodge/gateway/gateway"
	"github.com/lennylodge/gateway/listings"
	"github.com/lennylodge/gateway/providers/ai/openai"
	"github.com/lennylodge/gateway/providers/ai/xai"

	_ "github.com/joho/godotenv/autoload"
)

const defaultAddr = ":8787"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	primary := openai.New()
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		primary = primary.WithModel(model)
	}
	if !primary.Configured() {
		logger.Warn("OPENAI_API_KEY is not set, AI endpoints will return 500")
	}

	opts := []gateway.Option{
		gateway.WithImporter(listings.NewImporter()),
		gateway.WithLogger(logger),
	}

	secondary := xai.New()
	if model := os.Getenv("XAI_MODEL"); model != "" {
		secondary = secondary.WithModel(model)
	}
	if secondary.Configured() {
		opts = append(opts, gateway.WithSecondary(secondary))
		logger.Info("xAI fallback enabled")
	}

	addr := os.Getenv("GATEWAY_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	server := &http.Server{
		Addr:    addr,
		Handler: gateway.New(primary, opts...).Handler(),
		// No WriteTimeout: streaming responses stay open for as long as
		// the upstream keeps producing events.
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("gateway listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

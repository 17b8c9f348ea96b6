// Package orchestrate drives structured provider calls: requests whose
// answer must parse into a fixed schema rather than free text. It owns the
// bounded retry and fallback policy: one corrective retry on the same
// provider, then at most one attempt on the secondary provider when the
// primary failed with a rate-limit or server error.
package orchestrate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lennylodge/gateway/core/parse"
	"github.com/lennylodge/gateway/providers/ai"
)

// CorrectiveNudge is appended to the prompt on retry attempts after an
// invalid payload.
const CorrectiveNudge = "Your previous output was invalid. Return ONLY valid JSON (no prose)."

// Policy configures one orchestrated call. Secondary may be nil when no
// fallback provider is configured.
type Policy struct {
	Primary   ai.Provider
	Secondary ai.Provider
	Request   ai.CallRequest
}

// UnavailableError is the definitive failure after all attempts produced an
// invalid payload. Status carries the first attempt's HTTP status so callers
// can surface the upstream failure class.
type UnavailableError struct {
	Status int
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("no attempt produced a valid payload (first attempt status %d)", e.Status)
}

// Run produces a value of type T conforming to validate, or a definitive
// *UnavailableError. The attempt ladder is fixed:
//
//  1. One call to the primary provider with the base prompt.
//  2. On an invalid payload, exactly one retry to the same provider with a
//     corrective instruction appended.
//  3. If still invalid, the first attempt's status was 429 or 5xx, and a
//     configured secondary provider exists, one attempt there with the
//     corrective prompt.
//
// Attempts are strictly sequential; the first valid payload wins and every
// other attempt is discarded. A JSON parse failure and a schema mismatch are
// treated identically, and a payload with one bad field is wholly invalid.
// Transport failures are absorbed as failed attempts so the ladder always
// runs to completion or definitive failure.
func Run[T any](ctx context.Context, policy Policy, validate func(*T) error) (*T, error) {
	first := attempt(ctx, policy.Primary, policy.Request)
	if value, err := decode(first, validate); err == nil {
		return value, nil
	}

	corrected := withNudge(policy.Request)
	retry := attempt(ctx, policy.Primary, corrected)
	if value, err := decode(retry, validate); err == nil {
		return value, nil
	}

	if retriableStatus(first.Status) && policy.Secondary != nil && policy.Secondary.Configured() {
		fallback := attempt(ctx, policy.Secondary, corrected)
		if value, err := decode(fallback, validate); err == nil {
			return value, nil
		}
	}

	return nil, &UnavailableError{Status: first.Status}
}

// attempt runs one provider call, normalizing configuration gaps and
// transport failures into failed results. A missing credential reads as
// status 500, a transport failure as status 0.
func attempt(ctx context.Context, provider ai.Provider, request ai.CallRequest) *ai.CallResult {
	if !provider.Configured() {
		return &ai.CallResult{Status: http.StatusInternalServerError, RawText: "provider not configured"}
	}

	result, err := provider.Call(ctx, request)
	if err != nil {
		// Transport failure: no HTTP status exists.
		return &ai.CallResult{Status: 0, RawText: err.Error()}
	}

	return result
}

// decode parses the attempt's output text and validates the result. Any
// failure along the way means the attempt was invalid.
func decode[T any](result *ai.CallResult, validate func(*T) error) (*T, error) {
	if !result.Succeeded {
		return nil, fmt.Errorf("attempt failed with status %d", result.Status)
	}

	value, err := parse.As[T](result.OutputText)
	if err != nil {
		return nil, err
	}

	if err := validate(&value); err != nil {
		return nil, err
	}

	return &value, nil
}

// withNudge returns a copy of the request with the corrective instruction
// appended to the last user message. The original request is not mutated.
func withNudge(request ai.CallRequest) ai.CallRequest {
	messages := make([]ai.Message, len(request.Messages))
	copy(messages, request.Messages)

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser {
			messages[i].Content += "\n\n" + CorrectiveNudge
			break
		}
	}

	corrected := request
	corrected.Messages = messages
	return corrected
}

// retriableStatus reports whether the first attempt's status opens the
// secondary-provider gate: rate limiting or a server-side error.
func retriableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

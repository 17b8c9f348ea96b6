// Package listings is the scraping collaborator at the edge of the gateway:
// it fetches a listing page and reduces it to a small pre-extracted record.
// The AI core never parses HTML itself; it only ever sees the Listing
// record this package produces.
package listings

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/lennylodge/gateway/internal/utils"
)

const (
	// defaultTimeout is the default page fetch timeout.
	defaultTimeout = 30 * time.Second

	// maxBodySize caps the fetched page (10 MB).
	maxBodySize = 10 * 1024 * 1024

	// maxDescriptionLength caps the markdown excerpt.
	maxDescriptionLength = 500

	// defaultUserAgent mimics a desktop browser; many listing sites serve
	// stripped-down pages to unknown agents.
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Extraction source tags, most reliable first.
const (
	SourceJSONLD    = "jsonld"
	SourceOpenGraph = "opengraph"
	SourceUnknown   = "unknown"
)

// Listing is the pre-extracted record handed to the rest of the system.
// Missing names every field that could not be extracted, so consumers can
// prompt the user to fill gaps instead of guessing.
type Listing struct {
	Title       string   `json:"title,omitempty"`
	Address     string   `json:"address,omitempty"`
	Price       string   `json:"price,omitempty"`
	Beds        *float64 `json:"beds"`
	Baths       *float64 `json:"baths"`
	Sqft        *float64 `json:"sqft"`
	Image       string   `json:"image,omitempty"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source"`
	Missing     []string `json:"missing"`
}

// FetchError reports a page that answered with a non-2xx status.
type FetchError struct {
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("page returned status %d", e.Status)
}

// Importer fetches listing pages and extracts Listing records. It is
// stateless and safe for concurrent use.
type Importer struct {
	client    *http.Client
	userAgent string
}

// NewImporter creates an Importer with the default HTTP client and user
// agent.
func NewImporter() *Importer {
	return &Importer{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
}

// WithHTTPClient sets a custom HTTP client.
func (imp *Importer) WithHTTPClient(client *http.Client) *Importer {
	imp.client = client
	return imp
}

// Import fetches pageURL and extracts a Listing. JSON-LD wins over
// OpenGraph meta tags field by field; the page <title> is a last resort for
// the title only. A non-2xx page status is returned as a *FetchError; other
// errors are transport failures.
func (imp *Importer) Import(ctx context.Context, pageURL string) (*Listing, error) {
	html, err := imp.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	meta := parseMetaTags(html)
	candidate := findJSONLDCandidate(extractJSONLD(html))

	listing := &Listing{Source: SourceUnknown}
	if candidate != nil {
		fillFromJSONLD(listing, candidate)
		listing.Source = SourceJSONLD
	}

	if listing.Title == "" {
		listing.Title = meta["og:title"]
	}
	if listing.Image == "" {
		listing.Image = meta["og:image"]
	}
	if listing.Source == SourceUnknown && (meta["og:title"] != "" || meta["og:image"] != "") {
		listing.Source = SourceOpenGraph
	}

	if listing.Title == "" {
		listing.Title = pageTitle(html)
	}

	if markdown, convErr := htmltomarkdown.ConvertString(html); convErr == nil {
		listing.Description = utils.TruncateString(markdown, maxDescriptionLength)
	}

	listing.Missing = missingFields(listing)
	return listing, nil
}

func (imp *Importer) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", imp.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := imp.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching page: %w", err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("error reading page body: %w", err)
	}

	return string(body), nil
}

// missingFields names the extractable fields that came back empty.
func missingFields(listing *Listing) []string {
	missing := []string{}
	if listing.Title == "" {
		missing = append(missing, "title")
	}
	if listing.Address == "" {
		missing = append(missing, "address")
	}
	if listing.Price == "" {
		missing = append(missing, "price")
	}
	if listing.Beds == nil {
		missing = append(missing, "beds")
	}
	if listing.Baths == nil {
		missing = append(missing, "baths")
	}
	if listing.Sqft == nil {
		missing = append(missing, "sqft")
	}
	if listing.Image == "" {
		missing = append(missing, "image")
	}
	return missing
}

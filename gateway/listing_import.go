package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/lennylodge/gateway/listings"
)

// importRequestBody asks the collaborator to extract a listing record from
// a page URL.
type importRequestBody struct {
	URL string `json:"url"`
}

// importEnvelope is the listing import success response.
type importEnvelope struct {
	OK      bool              `json:"ok"`
	URL     string            `json:"url"`
	Listing *listings.Listing `json:"listing"`
}

func (s *Server) handleListingImport(w http.ResponseWriter, r *http.Request) {
	var body importRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "invalid JSON: "+err.Error())
		return
	}

	parsed, err := url.Parse(body.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "url must be a valid http(s) URL")
		return
	}

	listing, err := s.importer.Import(r.Context(), body.URL)
	if err != nil {
		var fetchErr *listings.FetchError
		if errors.As(err, &fetchErr) {
			writeUpstreamFailure(w, ErrCodeFetchFailed, fetchErr.Status)
			return
		}
		writeFailure(w, http.StatusBadGateway, ErrCodeFetchFailed, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, importEnvelope{OK: true, URL: body.URL, Listing: listing})
}

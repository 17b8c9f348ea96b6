package listings

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Compiled patterns for metadata extraction. The regex approach is
// deliberate: listing pages are frequently malformed and a tolerant scan of
// meta/script tags extracts more than a strict HTML parse would.

var (
	metaTagPattern   = regexp.MustCompile(`(?i)<meta\b[^>]*>`)
	attributePattern = regexp.MustCompile(`([a-zA-Z_:][-a-zA-Z0-9_:.]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'=<>` + "`" + `]+))`)
	jsonLDPattern    = regexp.MustCompile(`(?is)<script\b[^>]*type=["']application/ld\+json["'][^>]*>(.*?)</script>`)
	titlePattern     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	spacePattern     = regexp.MustCompile(`\s+`)

	// listingTypePattern recognizes schema.org types that plausibly
	// describe a real-estate listing.
	listingTypePattern = regexp.MustCompile(`(?i)(Residence|Apartment|House|Offer|Product|Place|SingleFamilyResidence)`)
)

// parseMetaTags scans all <meta> tags and returns a property/name to
// content map with lowercased keys.
func parseMetaTags(html string) map[string]string {
	out := map[string]string{}

	for _, tag := range metaTagPattern.FindAllString(html, -1) {
		attrs := map[string]string{}
		for _, match := range attributePattern.FindAllStringSubmatch(tag, -1) {
			value := match[2]
			if value == "" {
				value = match[3]
			}
			if value == "" {
				value = match[4]
			}
			attrs[strings.ToLower(match[1])] = strings.TrimSpace(value)
		}

		content := attrs["content"]
		if content == "" {
			continue
		}

		key := attrs["property"]
		if key == "" {
			key = attrs["name"]
		}
		if key == "" {
			continue
		}
		out[strings.ToLower(key)] = content
	}

	return out
}

// extractJSONLD parses every JSON-LD script block that contains valid JSON.
func extractJSONLD(html string) []any {
	var blocks []any
	for _, match := range jsonLDPattern.FindAllStringSubmatch(html, -1) {
		raw := strings.TrimSpace(match[1])
		if raw == "" {
			continue
		}
		var block any
		if err := json.Unmarshal([]byte(raw), &block); err != nil {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// findJSONLDCandidate walks the JSON-LD graph depth-first and returns the
// first node that looks like a listing: a recognized @type, or the presence
// of address or offers.
func findJSONLDCandidate(node any) map[string]any {
	switch typed := node.(type) {
	case []any:
		for _, entry := range typed {
			if found := findJSONLDCandidate(entry); found != nil {
				return found
			}
		}
	case map[string]any:
		atType, _ := typed["@type"].(string)
		if listingTypePattern.MatchString(atType) || typed["address"] != nil || typed["offers"] != nil {
			return typed
		}
		if graph, ok := typed["@graph"]; ok {
			if found := findJSONLDCandidate(graph); found != nil {
				return found
			}
		}
		for _, value := range typed {
			if found := findJSONLDCandidate(value); found != nil {
				return found
			}
		}
	}
	return nil
}

// fillFromJSONLD copies listing fields out of a JSON-LD candidate node.
func fillFromJSONLD(listing *Listing, candidate map[string]any) {
	if name, ok := candidate["name"].(string); ok {
		listing.Title = strings.TrimSpace(name)
	}
	listing.Address = formatAddress(candidate["address"])
	listing.Price = extractPrice(candidate["offers"])
	listing.Beds = toNumberMaybe(candidate["numberOfBedrooms"])
	listing.Baths = toNumberMaybe(candidate["numberOfBathroomsTotal"])
	listing.Sqft = extractSqft(candidate)
	listing.Image = extractImage(candidate["image"])
}

// formatAddress flattens a schema.org PostalAddress (or plain string) into
// one line.
func formatAddress(addr any) string {
	switch typed := addr.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		var parts []string
		for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
			if value, ok := typed[key].(string); ok && strings.TrimSpace(value) != "" {
				parts = append(parts, strings.TrimSpace(value))
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// extractPrice reads the first offer's price, in whatever scalar form the
// page chose.
func extractPrice(offers any) string {
	var first map[string]any
	switch typed := offers.(type) {
	case []any:
		if len(typed) > 0 {
			first, _ = typed[0].(map[string]any)
		}
	case map[string]any:
		first = typed
	}
	if first == nil {
		return ""
	}

	price := first["price"]
	if price == nil {
		if spec, ok := first["priceSpecification"].(map[string]any); ok {
			price = spec["price"]
		}
	}

	switch typed := price.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	}
	return ""
}

func extractSqft(candidate map[string]any) *float64 {
	if floorSize, ok := candidate["floorSize"].(map[string]any); ok {
		if n := toNumberMaybe(floorSize["value"]); n != nil {
			return n
		}
	}
	if n := toNumberMaybe(candidate["floorSize"]); n != nil {
		return n
	}
	if area, ok := candidate["area"].(map[string]any); ok {
		return toNumberMaybe(area["value"])
	}
	return nil
}

func extractImage(image any) string {
	switch typed := image.(type) {
	case string:
		return typed
	case []any:
		if len(typed) > 0 {
			if first, ok := typed[0].(string); ok {
				return first
			}
		}
	}
	return ""
}

// toNumberMaybe coerces a JSON scalar into a number, stripping formatting
// characters from strings ("1,250 sqft" reads as 1250).
func toNumberMaybe(value any) *float64 {
	switch typed := value.(type) {
	case float64:
		return &typed
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' {
				return r
			}
			return -1
		}, typed)
		if cleaned == "" {
			return nil
		}
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

// pageTitle extracts the <title> text as a last-resort listing title.
func pageTitle(html string) string {
	match := titlePattern.FindStringSubmatch(html)
	if match == nil {
		return ""
	}
	return stripTags(match[1])
}

func stripTags(input string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(tagPattern.ReplaceAllString(input, " "), " "))
}

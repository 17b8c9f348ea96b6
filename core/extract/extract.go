// Package extract pulls plain text, source lists, and incremental deltas out
// of the heterogeneous response shapes returned by LLM providers.
//
// Upstream responses carry a loosely-typed array of "output items". Rather
// than chasing optional fields ad hoc, the package models the array as a
// tagged union with an explicit Type discriminant and switches over the known
// tags, with a default no-op branch for everything unrecognized.
package extract

import "strings"

// Output item and content fragment discriminants used by the Responses API.
const (
	ItemMessage       = "message"
	ItemWebSearchCall = "web_search_call"

	ContentOutputText = "output_text"

	AnnotationURLCitation = "url_citation"
)

// Source is one web search source or citation.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// ResponseDocument is the provider response envelope: an ordered list of
// output items of varying kinds.
type ResponseDocument struct {
	Output []OutputItem `json:"output"`
}

// OutputItem is one entry in a response's output array. Type discriminates
// which of the optional fields are meaningful.
type OutputItem struct {
	Type    string        `json:"type"`
	Content []ContentItem `json:"content,omitempty"`
	Action  *SearchAction `json:"action,omitempty"`
}

// ContentItem is one fragment of a message item's content.
type ContentItem struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation is a citation attached to an output_text fragment.
type Annotation struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// SearchAction carries the source list of a web_search_call item.
type SearchAction struct {
	Sources []Source `json:"sources,omitempty"`
}

// StreamEventDocument is one decoded event from a provider's incremental
// stream. Only the fields relevant to delta, source, and completion
// extraction are modeled; everything else in the event is ignored.
type StreamEventDocument struct {
	Type    string      `json:"type"`
	Delta   string      `json:"delta,omitempty"`
	Item    *OutputItem `json:"item,omitempty"`
	Sources []Source    `json:"sources,omitempty"`
}

// Text returns the assistant text of the first message-typed output item:
// its output_text fragments concatenated in order, joined with a blank line,
// and trimmed. Returns the empty string when the document has no message
// output; it never fails.
func Text(doc *ResponseDocument) string {
	if doc == nil {
		return ""
	}

	for _, item := range doc.Output {
		if item.Type != ItemMessage {
			continue
		}

		var parts []string
		for _, content := range item.Content {
			if content.Type == ContentOutputText && content.Text != "" {
				parts = append(parts, content.Text)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n\n"))
	}

	return ""
}

// Sources flattens the action.sources lists of all web_search_call items,
// keeping entries with a non-empty URL in first-appearance order. It does
// not deduplicate; callers that need unique URLs apply UniqueByURL
// explicitly.
func Sources(doc *ResponseDocument) []Source {
	if doc == nil {
		return nil
	}

	var out []Source
	for _, item := range doc.Output {
		if item.Type != ItemWebSearchCall || item.Action == nil {
			continue
		}
		for _, src := range item.Action.Sources {
			if src.URL == "" {
				continue
			}
			out = append(out, src)
		}
	}
	return out
}

// Citations collects url_citation annotations attached to the first message
// item's output_text fragments, keeping entries with a non-empty URL in
// first-appearance order, without deduplication.
func Citations(doc *ResponseDocument) []Source {
	if doc == nil {
		return nil
	}

	var out []Source
	for _, item := range doc.Output {
		if item.Type != ItemMessage {
			continue
		}
		for _, content := range item.Content {
			if content.Type != ContentOutputText {
				continue
			}
			for _, ann := range content.Annotations {
				if ann.Type != AnnotationURLCitation || ann.URL == "" {
					continue
				}
				out = append(out, Source{URL: ann.URL, Title: ann.Title})
			}
		}
		break
	}
	return out
}

// Delta returns the incremental text fragment carried by one stream event,
// and whether the event is a text delta at all.
//
// Upstream event-type naming is not uniform, so two rules are recognized:
// a type containing both "output_text" and "delta", or a type ending in
// ".delta" whose delta field is a non-empty string.
func Delta(event *StreamEventDocument) (string, bool) {
	if event == nil {
		return "", false
	}

	if strings.Contains(event.Type, "output_text") && strings.Contains(event.Type, "delta") {
		return event.Delta, true
	}

	if strings.HasSuffix(event.Type, ".delta") && event.Delta != "" {
		return event.Delta, true
	}

	return "", false
}

// UniqueByURL removes duplicate URLs while preserving the first occurrence
// of each. Entries without a URL are dropped. This is a separate, explicit
// step used only by the non-streaming research path.
func UniqueByURL(sources []Source) []Source {
	seen := make(map[string]struct{}, len(sources))
	var out []Source
	for _, src := range sources {
		if src.URL == "" {
			continue
		}
		if _, ok := seen[src.URL]; ok {
			continue
		}
		seen[src.URL] = struct{}{}
		out = append(out, src)
	}
	return out
}

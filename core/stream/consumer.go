package stream

import (
	"encoding/json"
	"io"
	"iter"
	"strings"

	"github.com/lennylodge/gateway/core/extract"
)

// EventKind identifies what one parsed frame carries.
type EventKind string

const (
	// KindDelta is an incremental text fragment of the in-progress answer.
	KindDelta EventKind = "delta"
	// KindSources is a list of web search sources.
	KindSources EventKind = "sources"
	// KindDone signals stream completion. Emitted exactly once per session.
	KindDone EventKind = "done"
	// KindIgnored is a well-formed frame carrying nothing of interest.
	KindIgnored EventKind = "ignored"
)

// isCompletionType reports whether a declared event type marks the overall
// response as finished. Tool-call frames such as web_search_call.completed
// describe one step, not the response, and must not match. Streams may
// instead end with the [DONE] sentinel or plain end of input; all three
// complete the session.
func isCompletionType(eventType string) bool {
	return strings.Contains(eventType, "response.completed") ||
		eventType == "completed" || eventType == "done"
}

// Event is one logical occurrence parsed from the stream, delivered in the
// exact order its frame arrived.
type Event struct {
	Kind    EventKind
	Delta   string
	Sources []extract.Source
}

// Events consumes the event stream from r and yields one Event per parsed
// frame, in arrival order, with no batching or reordering.
//
// The sequence always ends with exactly one KindDone event, whether
// completion was signalled by the [DONE] sentinel, a completion-typed frame,
// end of input, or a read error: a consumer never hangs waiting for a
// completion event upstream omitted, and repeated completion signals are
// collapsed into the first. A mid-stream read error is yielded through the
// error value before the final KindDone.
//
// The sequence is lazy, finite, and non-restartable. Stopping iteration
// early is the cancellation path: the caller should then close whatever r
// reads from to release the underlying connection.
func Events(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		scanner := NewScanner(r)
		completed := false

		// complete emits the single KindDone event. Reports false when the
		// consumer stopped iterating.
		complete := func() bool {
			if completed {
				return true
			}
			completed = true
			return yield(Event{Kind: KindDone}, nil)
		}

		for {
			payload, err := scanner.Next()
			if err == io.EOF {
				complete()
				return
			}
			if err != nil {
				if !yield(Event{}, err) {
					return
				}
				complete()
				return
			}

			var doc extract.StreamEventDocument
			if json.Unmarshal([]byte(payload), &doc) != nil {
				if !yield(Event{Kind: KindIgnored}, nil) {
					return
				}
				continue
			}

			if delta, ok := extract.Delta(&doc); ok {
				if !yield(Event{Kind: KindDelta, Delta: delta}, nil) {
					return
				}
				continue
			}

			if sources := eventSources(&doc); len(sources) > 0 {
				if !yield(Event{Kind: KindSources, Sources: sources}, nil) {
					return
				}
				continue
			}

			if isCompletionType(doc.Type) {
				if completed {
					if !yield(Event{Kind: KindIgnored}, nil) {
						return
					}
					continue
				}
				if !complete() {
					return
				}
				continue
			}

			if !yield(Event{Kind: KindIgnored}, nil) {
				return
			}
		}
	}
}

// eventSources pulls a source list out of one stream event: either an
// inline sources array or a completed web_search_call output item.
func eventSources(doc *extract.StreamEventDocument) []extract.Source {
	if len(doc.Sources) > 0 {
		var out []extract.Source
		for _, src := range doc.Sources {
			if src.URL == "" {
				continue
			}
			out = append(out, src)
		}
		return out
	}

	if doc.Item != nil {
		return extract.Sources(&extract.ResponseDocument{Output: []extract.OutputItem{*doc.Item}})
	}

	return nil
}

// Package router decides which configured provider handles a task. The
// decision lives in one place so that policy changes never touch call sites;
// what to send remains the caller's concern.
package router

import "github.com/lennylodge/gateway/providers/ai"

// Task categorizes a request for routing purposes.
type Task string

const (
	TaskChat    Task = "chat"
	TaskExplain Task = "explain"
	TaskSuggest Task = "suggest"
	TaskPlan    Task = "plan"
)

// Flags carries the routing signals that can override the default choice.
type Flags struct {
	// NeedWeb marks tasks that benefit from web search. The primary
	// provider supports the web search tool, so this does not currently
	// change the outcome; it is recorded for future policy.
	NeedWeb bool

	// PreferSecondary requests a second-opinion answer from the secondary
	// provider.
	PreferSecondary bool
}

// Route picks the provider for a task. It is a pure function: total (always
// returns a provider), deterministic, and free of I/O. In priority order:
// PreferSecondary selects the secondary provider, everything else the
// primary.
func Route(task Task, flags Flags) ai.ProviderID {
	if flags.PreferSecondary {
		return ai.ProviderXAI
	}
	return ai.ProviderOpenAI
}

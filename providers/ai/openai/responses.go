package openai

/*
	RESPONSES API - INPUT
*/

// responseRequest is the request body for the `/v1/responses` endpoint,
// restricted to the fields the gateway uses.
type responseRequest struct {
	Model        string         `json:"model"`
	Input        []inputItem    `json:"input"`
	Stream       *bool          `json:"stream,omitempty"`
	Tools        []responseTool `json:"tools,omitempty"`
	Include      []string       `json:"include,omitempty"`
	MaxToolCalls *int           `json:"max_tool_calls,omitempty"`
}

// inputItem is one role-tagged entry in the input array.
type inputItem struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// responseTool enables a built-in tool, optionally with search filters.
type responseTool struct {
	Type    string       `json:"type"` // "web_search"
	Filters *toolFilters `json:"filters,omitempty"`
}

// toolFilters restricts web search to an allowlist of domains.
type toolFilters struct {
	AllowedDomains []string `json:"allowed_domains,omitempty"`
}

// includeSources asks the API to attach each web_search_call's source list
// to the response document.
const includeSources = "web_search_call.action.sources"

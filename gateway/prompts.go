package gateway

import (
	"strings"
)

// chatPersona is the base system prompt for conversational requests.
const chatPersona = `You are "Lenny Lodge", a host specialist for a NY move planner.
Tone: calm, professional, and practical. Light dry humor is allowed, but never forced.
Hard rules:
- Never joke about death, loss, aging, or money anxiety.
- Avoid forced emotional language. Be sensitive and practical.
- Keep answers structured and actionable.
- Explain why questions matter and how answers change outcomes.`

// legalDisclaimerInstruction is appended to the chat persona when the user's
// message appears to touch legal, tax, or contract territory.
const legalDisclaimerInstruction = `
If the user asks about legal/tax/contract topics, include: "Educational guidance only; consult a NY real estate attorney/CPA as appropriate."`

// explainPersona is the system prompt for topic explanations.
const explainPersona = `You are Lenny Lodge. Explain clearly, in plain language, with short sections and actionable takeaways.
Never joke about death/loss/aging/money anxiety. Avoid forced emotional language.`

// planPersona is the strict-JSON system prompt for plan generation.
const planPersona = `You are Lenny Lodge. Produce a move plan as STRICT JSON.
Return ONLY valid JSON matching the schema described by the user.
No markdown. No extra keys.`

// suggestPersona is the strict-JSON system prompt for choice suggestions.
const suggestPersona = `You are Lenny Lodge. Pick the single best choice value for the user based on context.
Return ONLY valid JSON matching: {"ok":true,"value":<one_of_choice_values>,"reason":"..."}.
Never include extra keys, markdown, or commentary outside JSON.`

// researchDisclaimer is appended to the research persona in serious mode.
const researchDisclaimer = `

Educational disclaimer: This is general information, not legal/financial advice. For time-sensitive or jurisdiction-specific questions, confirm with your attorney, lender, and title/escrow company.`

// legalKeywords flag messages that warrant the educational disclaimer.
var legalKeywords = []string{
	"contract",
	"contingency",
	"attorney",
	"attorney review",
	"legal",
	"tax",
	"irs",
	"capital gains",
	"transfer tax",
	"title",
	"escrow",
	"closing disclosure",
	"mortgage",
	"lender",
}

// recencyKeywords flag topics that benefit from web search.
var recencyKeywords = []string{
	"today",
	"current",
	"latest",
	"2025",
	"2026",
	"rate",
	"deadline",
	"law change",
	"updated",
}

// chatSystemPrompt builds the conversational system prompt, appending the
// disclaimer instruction when the user message looks legal/tax/contract
// related.
func chatSystemPrompt(userMessage string) string {
	prompt := chatPersona
	if containsAny(userMessage, legalKeywords) {
		prompt += "\n" + legalDisclaimerInstruction
	}
	return strings.TrimSpace(prompt)
}

// researchSystemPrompt builds the research persona with the given humor dial
// and, in serious mode, the educational disclaimer.
func researchSystemPrompt(humorDial string, serious bool) string {
	prompt := `You are "Lenny Lodge", professional, practical, and lightly dry when appropriate.
Humor rules:
- Humor dial: ` + humorDial + `
- Never joke about death, loss, aging, or money anxiety.
Style:
- Be concise but complete.
- Use plain language.
Sources:
- If you cite sources, make them clickable Markdown links (e.g. [Title](https://...)).

Task: Research the user's query using web search when helpful, then answer clearly.`

	if serious {
		prompt += researchDisclaimer
	}
	return prompt
}

// needsWebSearch reports whether a topic looks time-sensitive enough to
// warrant the web search tool.
func needsWebSearch(topic string) bool {
	return containsAny(topic, recencyKeywords)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

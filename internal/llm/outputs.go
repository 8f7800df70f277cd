package llm

// CompatibilityOutput is the compatibility reasoning payload.
type CompatibilityOutput struct {
	WhyCompatible       string  `json:"why_compatible"`
	ConversationStarter string  `json:"conversation_starter"`
	CompatibilityScore  float64 `json:"compatibility_score"`
}

// SafetyOutput is the content classification payload.
type SafetyOutput struct {
	IsSafe     bool     `json:"is_safe"`
	Flags      []string `json:"flags"`
	Confidence float64  `json:"confidence"`
	Action     string   `json:"action"`
}

// OnboardingOutput is the onboarding guidance payload.
type OnboardingOutput struct {
	NextPrompt string `json:"next_prompt"`
	Guidance   string `json:"guidance"`
}

// RecommendationOutput maps item ids to a one-line reason.
type RecommendationOutput struct {
	Reasons map[string]string `json:"reasons"`
}

// SummaryOutput is the conversation summary payload.
type SummaryOutput struct {
	Summary string `json:"summary"`
}

// DraftOutput is the draft reply payload.
type DraftOutput struct {
	DraftReply string `json:"draft_reply"`
}

// HelpOutput is the help answer payload.
type HelpOutput struct {
	Response   string   `json:"response"`
	Sources    []string `json:"sources"`
	Confidence *float64 `json:"confidence"`
}

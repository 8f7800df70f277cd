package llm

import (
	"github.com/jonathan/campus-agents/internal/schemas"
)

// UseCase binds one augmentation task to its prompt template, output schema
// and sampling settings.
type UseCase struct {
	Name        string
	PromptFile  string
	PromptKey   string
	Schema      string
	Tier        ModelTier
	Temperature float32
}

var (
	CompatibilityReasoning = UseCase{
		Name:        "compatibility_reasoning",
		PromptFile:  "matching.json",
		PromptKey:   "compatibility-reasoning",
		Schema:      schemas.Compatibility,
		Tier:        TierStandard,
		Temperature: 0.7,
	}
	SafetyClassification = UseCase{
		Name:        "safety_classification",
		PromptFile:  "safety.json",
		PromptKey:   "classify-content",
		Schema:      schemas.Safety,
		Tier:        TierLite,
		Temperature: 0.7,
	}
	OnboardingGuidance = UseCase{
		Name:        "onboarding_guidance",
		PromptFile:  "onboarding.json",
		PromptKey:   "next-step-guidance",
		Schema:      schemas.Onboarding,
		Tier:        TierLite,
		Temperature: 0.7,
	}
	RecommendationReasoning = UseCase{
		Name:        "recommendation_reasoning",
		PromptFile:  "recommend.json",
		PromptKey:   "explain-recommendations",
		Schema:      schemas.Recommendations,
		Tier:        TierStandard,
		Temperature: 0.7,
	}
	ConversationSummary = UseCase{
		Name:        "conversation_summary",
		PromptFile:  "chat.json",
		PromptKey:   "summarise-conversation",
		Schema:      schemas.Summary,
		Tier:        TierLite,
		Temperature: 0.3,
	}
	DraftReply = UseCase{
		Name:        "draft_reply",
		PromptFile:  "chat.json",
		PromptKey:   "draft-reply",
		Schema:      schemas.Draft,
		Tier:        TierLite,
		Temperature: 0.7,
	}
	HelpAnswer = UseCase{
		Name:        "help_answer",
		PromptFile:  "help.json",
		PromptKey:   "answer-question",
		Schema:      schemas.Help,
		Tier:        TierLite,
		Temperature: 0.3,
	}
)

// UseCases lists every built-in use case.
func UseCases() []UseCase {
	return []UseCase{
		CompatibilityReasoning,
		SafetyClassification,
		OnboardingGuidance,
		RecommendationReasoning,
		ConversationSummary,
		DraftReply,
		HelpAnswer,
	}
}

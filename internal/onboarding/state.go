package onboarding

import "github.com/jonathan/campus-agents/internal/pipeline"

// State is the onboarding pipeline record. FormData holds the profile
// fields collected so far, keyed by their profile document names.
type State struct {
	pipeline.Status

	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`

	CurrentStep         int              `json:"current_step,omitempty"`
	FormData            map[string]any   `json:"form_data"`
	ConversationHistory []map[string]any `json:"conversation_history,omitempty"`

	ValidationErrors map[string]string `json:"validation_errors"`
	IsValid          bool              `json:"is_valid"`
	NextPrompt       string            `json:"next_prompt,omitempty"`
	Guidance         string            `json:"guidance,omitempty"`
	ProfileComplete  bool              `json:"profile_complete"`
}

package safety

import (
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/types"
)

// State is the safety pipeline record.
type State struct {
	pipeline.Status

	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`

	Flags             []types.Flag `json:"flags"`
	Confidence        float64      `json:"confidence"`
	RecommendedAction string       `json:"recommended_action,omitempty"`
	Safe              bool         `json:"safe"`

	// classifierAction is the augmentation's recommendation. It is never
	// decoded from input.
	classifierAction string
}

package chatassist

import (
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/types"
)

// Actions.
const (
	ActionList      = "list_conversations"
	ActionSummarise = "summarise_conversation"
	ActionDraft     = "draft_reply"
)

// ListMetadata describes a conversation listing.
type ListMetadata struct {
	Total int `json:"total"`
}

// State is the chat assistant pipeline record. AuthToken is the end user's
// bearer token for the chat backend; it is never echoed in responses.
type State struct {
	pipeline.Status

	Action         string `json:"action,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message,omitempty"`
	AuthToken      string `json:"auth_token,omitempty"`
	UserID         string `json:"user_id"`
	TenantID       string `json:"tenant_id,omitempty"`

	Conversations        []map[string]any    `json:"conversations,omitempty"`
	Messages             []types.ChatMessage `json:"messages,omitempty"`
	ConversationMetadata map[string]any      `json:"conversation_metadata,omitempty"`
	Summary              string              `json:"summary,omitempty"`
	DraftReply           string              `json:"draft_reply,omitempty"`
	ResponseMetadata     *ListMetadata       `json:"response_metadata,omitempty"`
}

package types

import "strings"

// ChatMessage is one message returned by the chat backend.
type ChatMessage struct {
	ID         string `json:"id,omitempty"`
	SenderID   string `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// Transcript renders messages one per line as "sender: content". Messages
// without a sender name are attributed to "Unknown".
func Transcript(messages []ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		sender := m.SenderName
		if sender == "" {
			sender = "Unknown"
		}
		lines = append(lines, sender+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

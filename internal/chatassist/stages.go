package chatassist

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/types"
)

var validActions = []string{ActionList, ActionSummarise, ActionDraft}

func (p *Pipeline) validateInput(_ context.Context, s State) (State, error) {
	s.Action = strings.ToLower(strings.TrimSpace(s.Action))
	if s.Action == "" {
		s.Action = ActionList
	}
	s.ConversationID = strings.TrimSpace(s.ConversationID)

	switch {
	case s.AuthToken == "":
		s.Fail("auth_token is required for chat_assistant graph")
	case s.UserID == "":
		s.Fail("user_id is required for chat_assistant graph")
	case (s.Action == ActionSummarise || s.Action == ActionDraft) && s.ConversationID == "":
		s.Fail(fmt.Sprintf("conversation_id is required when action is %s", s.Action))
	case !slices.Contains(validActions, s.Action):
		s.Fail("action must be one of: " + strings.Join(validActions, ", "))
	}
	return s, nil
}

func (p *Pipeline) listConversations(ctx context.Context, s State) (State, error) {
	list, err := p.backend.ListConversations(ctx, s.AuthToken, ListLimit, 0)
	if err != nil {
		p.logger.Warn("list conversations failed", "user_id", s.UserID, "error", err)
		s.Fail(err.Error())
		return s, nil
	}

	total := len(list.Conversations)
	if list.Total != nil {
		total = *list.Total
	}
	s.Conversations = list.Conversations
	s.ResponseMetadata = &ListMetadata{Total: total}
	return s, nil
}

func (p *Pipeline) summariseConversation(ctx context.Context, s State) (State, error) {
	meta, err := p.backend.Conversation(ctx, s.AuthToken, s.ConversationID)
	if err != nil {
		p.logger.Warn("get conversation failed", "conversation_id", s.ConversationID, "error", err)
		s.Fail(err.Error())
		return s, nil
	}
	s.ConversationMetadata = meta

	messages, err := p.backend.Messages(ctx, s.AuthToken, s.ConversationID, SummaryLimit, "")
	if err != nil {
		p.logger.Warn("get messages failed", "conversation_id", s.ConversationID, "error", err)
		s.Fail(err.Error())
		return s, nil
	}
	s.Messages = messages

	transcript := types.Transcript(messages)
	if strings.TrimSpace(transcript) == "" {
		s.Summary = EmptySummary
		return s, nil
	}

	res := llm.Invoke[llm.SummaryOutput](ctx, p.augmenter, llm.ConversationSummary, map[string]string{
		"UserName":   userName(messages, s.UserID),
		"Title":      conversationTitle(meta),
		"Transcript": transcript,
	})
	if !res.OK() || strings.TrimSpace(res.Value.Summary) == "" {
		p.logger.Warn("conversation summary failed, using fallback", "conversation_id", s.ConversationID, "error", res.Err)
		s.Summary = FallbackSummary
		return s, nil
	}
	s.Summary = res.Value.Summary
	return s, nil
}

func (p *Pipeline) draftReply(ctx context.Context, s State) (State, error) {
	messages, err := p.backend.Messages(ctx, s.AuthToken, s.ConversationID, DraftLimit, "")
	if err != nil {
		p.logger.Warn("get messages failed", "conversation_id", s.ConversationID, "error", err)
		s.Fail(err.Error())
		return s, nil
	}

	transcript := types.Transcript(messages)
	if strings.TrimSpace(transcript) == "" {
		s.DraftReply = EmptyDraft
		return s, nil
	}

	hint := strings.TrimSpace(s.Message)
	if hint == "" {
		hint = DefaultHint
	}
	res := llm.Invoke[llm.DraftOutput](ctx, p.augmenter, llm.DraftReply, map[string]string{
		"UserName":   userName(messages, s.UserID),
		"Hint":       hint,
		"Transcript": transcript,
	})
	if !res.OK() || strings.TrimSpace(res.Value.DraftReply) == "" {
		p.logger.Warn("draft reply failed, using fallback", "conversation_id", s.ConversationID, "error", res.Err)
		s.DraftReply = FallbackDraft
		return s, nil
	}
	s.DraftReply = res.Value.DraftReply
	return s, nil
}

func (p *Pipeline) finalize(_ context.Context, s State) (State, error) {
	s.AuthToken = ""
	return s, nil
}

// userName finds the caller's display name among the message senders.
func userName(messages []types.ChatMessage, userID string) string {
	for _, m := range messages {
		if m.SenderID == userID && m.SenderName != "" {
			return m.SenderName
		}
	}
	return "the user"
}

func conversationTitle(meta map[string]any) string {
	for _, key := range []string{"title", "name"} {
		if v, ok := meta[key].(string); ok && v != "" {
			return v
		}
	}
	return "Untitled conversation"
}

package chatassist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/campus-agents/internal/chatapi"
	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/pipeline"
)

// backendServer serves a small chat API. Conversation "c1" has messages,
// "empty" has none, and "secret" is forbidden.
func backendServer(t *testing.T) *httptest.Server {
	t.Helper()
	write := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chat/conversations", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			write(w, http.StatusUnauthorized, map[string]any{"success": false})
			return
		}
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		write(w, http.StatusOK, map[string]any{
			"success":       true,
			"conversations": []any{map[string]any{"id": "c1"}, map[string]any{"id": "c2"}},
			"total":         7,
		})
	})
	mux.HandleFunc("GET /api/chat/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "secret" {
			write(w, http.StatusForbidden, map[string]any{"success": false})
			return
		}
		write(w, http.StatusOK, map[string]any{"success": true, "conversation": map[string]any{"id": r.PathValue("id"), "title": "Study group"}})
	})
	mux.HandleFunc("GET /api/chat/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "empty" {
			write(w, http.StatusOK, map[string]any{"success": true, "messages": []any{}})
			return
		}
		write(w, http.StatusOK, map[string]any{"success": true, "messages": []any{
			map[string]any{"id": "m1", "senderId": "u1", "senderName": "Ada", "content": "Library at 5?"},
			map[string]any{"id": "m2", "senderId": "u2", "senderName": "Grace", "content": "Works for me"},
		}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runChat(t *testing.T, aug llm.Augmenter, input State) (State, *pipeline.Trace) {
	t.Helper()
	srv := backendServer(t)
	g, err := New(chatapi.New(srv.URL, srv.Client()), aug, nil).Graph()
	require.NoError(t, err)
	trace := &pipeline.Trace{}
	out, err := g.Run(context.Background(), input, trace)
	require.NoError(t, err)
	return out, trace
}

func TestChat_ListIsDefaultAction(t *testing.T) {
	out, trace := runChat(t, nil, State{AuthToken: "good", UserID: "u1"})

	assert.Empty(t, out.Error)
	assert.Equal(t, ActionList, out.Action)
	assert.Len(t, out.Conversations, 2)
	require.NotNil(t, out.ResponseMetadata)
	assert.Equal(t, 7, out.ResponseMetadata.Total)
	assert.Empty(t, out.AuthToken)
	assert.Equal(t, []string{StageValidate, StageList, StageFinalize}, trace.Visited())
}

func TestChat_Unauthorized(t *testing.T) {
	out, _ := runChat(t, nil, State{AuthToken: "bad", UserID: "u1", Action: "list_conversations"})
	assert.Equal(t, "Unauthorized: invalid or expired user token", out.Error)
}

func TestChat_Summarise(t *testing.T) {
	aug := llm.AugmenterFunc(func(_ context.Context, uc llm.UseCase, data map[string]string) (string, error) {
		assert.Equal(t, llm.ConversationSummary.Name, uc.Name)
		assert.Equal(t, "Ada", data["UserName"])
		assert.Equal(t, "Study group", data["Title"])
		assert.Equal(t, "Ada: Library at 5?\nGrace: Works for me", data["Transcript"])
		return `{"summary":"Meeting at the library at 5."}`, nil
	})

	out, trace := runChat(t, aug, State{AuthToken: "good", UserID: "u1", Action: " Summarise_Conversation ", ConversationID: "c1"})

	assert.Empty(t, out.Error)
	assert.Equal(t, "Meeting at the library at 5.", out.Summary)
	assert.Equal(t, "Study group", out.ConversationMetadata["title"])
	assert.Len(t, out.Messages, 2)
	assert.Equal(t, []string{StageValidate, StageSummarise, StageFinalize}, trace.Visited())
}

func TestChat_SummariseFallbacks(t *testing.T) {
	failing := llm.AugmenterFunc(func(context.Context, llm.UseCase, map[string]string) (string, error) {
		return "", errors.New("provider down")
	})

	out, _ := runChat(t, failing, State{AuthToken: "good", UserID: "u1", Action: ActionSummarise, ConversationID: "c1"})
	assert.Empty(t, out.Error)
	assert.Equal(t, FallbackSummary, out.Summary)

	out, _ = runChat(t, failing, State{AuthToken: "good", UserID: "u1", Action: ActionSummarise, ConversationID: "empty"})
	assert.Equal(t, EmptySummary, out.Summary)

	out, _ = runChat(t, failing, State{AuthToken: "good", UserID: "u1", Action: ActionSummarise, ConversationID: "secret"})
	assert.Equal(t, "Forbidden: access denied", out.Error)
	assert.Empty(t, out.Summary)
}

func TestChat_Draft(t *testing.T) {
	var hint string
	aug := llm.AugmenterFunc(func(_ context.Context, uc llm.UseCase, data map[string]string) (string, error) {
		hint = data["Hint"]
		return `{"draft_reply":"See you there!"}`, nil
	})

	out, trace := runChat(t, aug, State{AuthToken: "good", UserID: "u2", Action: ActionDraft, ConversationID: "c1"})
	assert.Equal(t, "See you there!", out.DraftReply)
	assert.Equal(t, DefaultHint, hint)
	assert.Equal(t, []string{StageValidate, StageDraft, StageFinalize}, trace.Visited())

	out, _ = runChat(t, aug, State{AuthToken: "good", UserID: "u2", Action: ActionDraft, ConversationID: "c1", Message: "formal"})
	assert.Equal(t, "formal", hint)

	out, _ = runChat(t, nil, State{AuthToken: "good", UserID: "u2", Action: ActionDraft, ConversationID: "c1"})
	assert.Equal(t, FallbackDraft, out.DraftReply)

	out, _ = runChat(t, aug, State{AuthToken: "good", UserID: "u2", Action: ActionDraft, ConversationID: "empty"})
	assert.Equal(t, EmptyDraft, out.DraftReply)
}

func TestChat_ValidateInput(t *testing.T) {
	tests := []struct {
		name  string
		input State
		want  string
	}{
		{name: "no token", input: State{UserID: "u1"}, want: "auth_token is required for chat_assistant graph"},
		{name: "no user", input: State{AuthToken: "good"}, want: "user_id is required for chat_assistant graph"},
		{
			name:  "summarise without conversation",
			input: State{AuthToken: "good", UserID: "u1", Action: ActionSummarise},
			want:  "conversation_id is required when action is summarise_conversation",
		},
		{
			name:  "unknown action",
			input: State{AuthToken: "good", UserID: "u1", Action: "send"},
			want:  "action must be one of: list_conversations, summarise_conversation, draft_reply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, trace := runChat(t, nil, tt.input)
			assert.Equal(t, tt.want, out.Error)
			assert.Equal(t, []string{StageValidate, StageFinalize}, trace.Visited())
		})
	}
}

func TestChat_RunnerPrecheck(t *testing.T) {
	runner, err := New(chatapi.New("http://127.0.0.1:0", nil), nil, nil).Runner()
	require.NoError(t, err)

	_, err = runner.RunJSON(context.Background(), map[string]any{"user_id": "u1"})
	require.ErrorIs(t, err, pipeline.ErrInvalidInput)
}

func TestChat_DefinitionDescribesBranch(t *testing.T) {
	g, err := New(nil, nil, nil).Graph()
	require.NoError(t, err)

	desc := g.Describe()
	require.NotEmpty(t, desc.Stages)
	assert.Equal(t, StageValidate, desc.Stages[0].Name)
	assert.True(t, desc.Stages[0].Conditional)
}

func TestRouteAction(t *testing.T) {
	tests := map[string]string{
		"":              StageList,
		ActionList:      StageList,
		ActionSummarise: StageSummarise,
		ActionDraft:     StageDraft,
	}
	for action, want := range tests {
		assert.Equal(t, want, routeAction(State{Action: action}), "action %q", action)
	}

	branches := New(nil, nil, nil).Definition().Branches
	require.Len(t, branches, 1)
	assert.NotContains(t, branches[0].Targets, StageFinalize)
}

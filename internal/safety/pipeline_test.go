package safety

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/moderation"
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/types"
)

type stubAugmenter struct {
	calls    int
	response string
	err      error
	lastData map[string]string
}

func (a *stubAugmenter) Complete(_ context.Context, uc llm.UseCase, data map[string]string) (string, error) {
	a.calls++
	a.lastData = data
	if uc.Name != llm.SafetyClassification.Name {
		return "", errors.New("unexpected use case " + uc.Name)
	}
	return a.response, a.err
}

func run(t *testing.T, aug llm.Augmenter, input State) (State, *pipeline.Trace) {
	t.Helper()
	g, err := New(nil, aug, nil).Graph()
	require.NoError(t, err)
	trace := &pipeline.Trace{}
	out, err := g.Run(context.Background(), input, trace)
	require.NoError(t, err)
	return out, trace
}

func TestSafety_SpamKeywordGoesToReview(t *testing.T) {
	aug := &stubAugmenter{err: errors.New("must not be called")}

	out, trace := run(t, aug, State{Content: "click here now"})

	assert.Equal(t, 0, aug.calls)
	assert.Equal(t, []types.Flag{{Kind: types.FlagSpam, Confidence: 0.8, Source: types.RuleKeywordMatch}}, out.Flags)
	assert.Equal(t, 0.8, out.Confidence)
	assert.Equal(t, types.ActionReview, out.RecommendedAction)
	assert.False(t, out.Safe)
	assert.Empty(t, out.Error)

	want := []string{StageDetectSpam, StageCheckExplicit, StageClassify, StageDetermineAction, StageFinalize}
	if diff := cmp.Diff(want, trace.Visited()); diff != "" {
		t.Errorf("visited stages mismatch (-want +got):\n%s", diff)
	}
}

func TestSafety_InputVerdictIsIgnored(t *testing.T) {
	tests := []struct {
		name  string
		input State
		aug   *stubAugmenter
		want  string
		safe  bool
	}{
		{
			name:  "preset allow on spam",
			input: State{Content: "click here now", RecommendedAction: types.ActionAllow, Safe: true, Confidence: 0.1},
			aug:   &stubAugmenter{err: errors.New("must not be called")},
			want:  types.ActionReview,
		},
		{
			name:  "preset reject on clean content",
			input: State{Content: "see you at practice", RecommendedAction: types.ActionReject},
			aug:   &stubAugmenter{err: llm.ErrNotConfigured},
			want:  types.ActionAllow,
			safe:  true,
		},
		{
			name: "preset flags",
			input: State{Content: "see you at practice", Flags: []types.Flag{
				{Kind: types.FlagExplicit, Confidence: 1, Source: types.RuleKeywordMatch},
			}},
			aug:  &stubAugmenter{err: llm.ErrNotConfigured},
			want: types.ActionAllow,
			safe: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := run(t, tt.aug, tt.input)
			assert.Equal(t, tt.want, out.RecommendedAction)
			assert.Equal(t, tt.safe, out.Safe)
		})
	}
}

func TestSafety_RunnerIgnoresInputVerdict(t *testing.T) {
	runner, err := New(nil, nil, nil).Runner()
	require.NoError(t, err)

	out, err := runner.RunJSON(context.Background(), map[string]any{
		"content":            "click here now",
		"recommended_action": "allow",
		"safe":               true,
	})
	require.NoError(t, err)
	assert.Equal(t, "review", out["recommended_action"])
	assert.Equal(t, false, out["safe"])
	assert.Equal(t, 0.8, out["confidence"])
}

func TestSafety_BannedWordAlwaysRejects(t *testing.T) {
	tests := []struct {
		name string
		aug  *stubAugmenter
	}{
		{name: "no classifier", aug: &stubAugmenter{err: llm.ErrNotConfigured}},
		{name: "classifier says allow", aug: &stubAugmenter{response: `{"is_safe":true,"flags":[],"confidence":0.9,"action":"allow"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := run(t, tt.aug, State{Content: "Total SLUR2 energy"})
			assert.Equal(t, types.ActionReject, out.RecommendedAction)
			assert.False(t, out.Safe)
			assert.True(t, types.HasKind(out.Flags, types.FlagExplicit))
		})
	}
}

func TestSafety_PhishingRejects(t *testing.T) {
	out, _ := run(t, &stubAugmenter{}, State{Content: "Please confirm your password here"})
	assert.Equal(t, types.ActionReject, out.RecommendedAction)
	assert.Equal(t, 0.9, out.Confidence)
}

func TestSafety_CleanContentUsesClassifier(t *testing.T) {
	aug := &stubAugmenter{response: `{"is_safe":true,"flags":[],"confidence":0.95,"action":"allow"}`}

	out, _ := run(t, aug, State{Content: "Anyone up for a study session?", ContentType: "post"})

	assert.Equal(t, 1, aug.calls)
	assert.Equal(t, "post", aug.lastData["ContentType"])
	assert.Equal(t, types.ActionAllow, out.RecommendedAction)
	assert.True(t, out.Safe)
	assert.Equal(t, 0.95, out.Confidence)
	assert.Empty(t, out.Flags)
	assert.NotNil(t, out.Flags)
}

func TestSafety_ClassifierFlagsAreAppended(t *testing.T) {
	aug := &stubAugmenter{response: `{"is_safe":false,"flags":["harassment"],"confidence":0.85,"action":"review"}`}

	out, _ := run(t, aug, State{Content: "you again?"})

	assert.Equal(t, []types.Flag{{Kind: "harassment", Confidence: 0.85, Source: types.RuleLLMClassification}}, out.Flags)
	assert.Equal(t, types.ActionReview, out.RecommendedAction)
	assert.False(t, out.Safe)
}

func TestSafety_ClassifierFailureFallsBack(t *testing.T) {
	aug := &stubAugmenter{err: errors.New("provider down")}

	out, _ := run(t, aug, State{Content: "hello world"})

	assert.Equal(t, 1, aug.calls)
	assert.Equal(t, FallbackConfidence, out.Confidence)
	assert.Equal(t, types.ActionAllow, out.RecommendedAction)
	assert.True(t, out.Safe)
	assert.Empty(t, out.Error)
}

func TestSafety_NilAugmenterFallsBack(t *testing.T) {
	out, _ := run(t, nil, State{Content: "hello world"})
	assert.Equal(t, FallbackConfidence, out.Confidence)
	assert.Equal(t, types.ActionAllow, out.RecommendedAction)
}

func TestSafety_HTMLContentIsReduced(t *testing.T) {
	out, _ := run(t, &stubAugmenter{}, State{Content: "<p>Buy <b>NOW</b></p>", ContentType: "html"})
	assert.True(t, types.HasKind(out.Flags, types.FlagSpam))
	assert.Equal(t, types.ActionReview, out.RecommendedAction)
}

func TestSafety_CustomRules(t *testing.T) {
	cfg := moderation.DefaultConfig()
	cfg.CustomRules = []moderation.CustomRule{
		{Name: "venmo", Expression: `content.contains("venmo me")`, Flag: types.FlagSpam, Confidence: 0.8},
	}
	rules, err := moderation.Compile(cfg)
	require.NoError(t, err)

	aug := &stubAugmenter{}
	g, err := New(rules, aug, nil).Graph()
	require.NoError(t, err)

	out, err := g.Run(context.Background(), State{Content: "Venmo me for tickets"})
	require.NoError(t, err)
	assert.Equal(t, 0, aug.calls)
	assert.Equal(t, []types.Flag{{Kind: types.FlagSpam, Confidence: 0.8, Source: types.RuleCustom}}, out.Flags)
	assert.Equal(t, types.ActionReview, out.RecommendedAction)
}

func TestSafety_RunnerEncodesResponse(t *testing.T) {
	runner, err := New(nil, nil, nil).Runner()
	require.NoError(t, err)
	assert.Equal(t, Name, runner.Name())

	out, err := runner.RunJSON(context.Background(), map[string]any{"content": "click here"})
	require.NoError(t, err)
	assert.Equal(t, "review", out["recommended_action"])
	assert.Equal(t, false, out["safe"])
	assert.Len(t, out["flags"], 1)
	assert.NotContains(t, out, "error")
}

package onboarding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/store"
)

type failingRepo struct{}

func (failingRepo) SaveProfile(context.Context, string, string, map[string]any) error {
	return store.ErrUnavailable
}

func runOnboarding(t *testing.T, repo Repository, aug llm.Augmenter, input State) (State, *pipeline.Trace) {
	t.Helper()
	g, err := New(repo, aug, nil).Graph()
	require.NoError(t, err)
	trace := &pipeline.Trace{}
	out, err := g.Run(context.Background(), input, trace)
	require.NoError(t, err)
	return out, trace
}

func TestOnboarding_NameAndEmailGoToStepTwo(t *testing.T) {
	mem := store.NewMemory()
	campus := store.NewCampus(mem)

	out, _ := runOnboarding(t, campus, nil, State{
		UserID:   "u1",
		TenantID: "t1",
		FormData: map[string]any{"name": "Ada", "email": "ada@uni.edu"},
	})

	assert.Equal(t, StepAcademic, out.CurrentStep)
	assert.False(t, out.IsValid)
	assert.Equal(t, map[string]string{"major": "Major is required.", "year": "Year must be a valid integer."}, out.ValidationErrors)
	assert.Equal(t, FixFieldsPrompt, out.NextPrompt)
	assert.False(t, out.ProfileComplete)
	assert.Equal(t, 0, mem.Len(store.Profiles))
}

func TestOnboarding_ValidStepIsSaved(t *testing.T) {
	mem := store.NewMemory()
	campus := store.NewCampus(mem)
	aug := llm.AugmenterFunc(func(_ context.Context, uc llm.UseCase, data map[string]string) (string, error) {
		assert.Equal(t, llm.OnboardingGuidance.Name, uc.Name)
		assert.Equal(t, "1", data["Step"])
		assert.Equal(t, "name and email", data["StepName"])
		return `{"next_prompt":"What are you studying?","guidance":"Tell us your major."}`, nil
	})

	out, _ := runOnboarding(t, campus, aug, State{
		UserID:      "u1",
		TenantID:    "t1",
		CurrentStep: StepIdentity,
		FormData:    map[string]any{"name": "Ada", "email": "ada@uni.edu"},
	})

	assert.True(t, out.IsValid)
	assert.Empty(t, out.ValidationErrors)
	assert.Equal(t, "What are you studying?", out.NextPrompt)
	assert.Equal(t, "Tell us your major.", out.Guidance)
	assert.False(t, out.ProfileComplete)

	doc, err := mem.Get(context.Background(), store.Profiles, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc.String("name"))
	assert.Equal(t, "t1", doc.String("tenantId"))
}

func TestOnboarding_CompletesAtLastStep(t *testing.T) {
	out, _ := runOnboarding(t, store.NewCampus(store.NewMemory()), nil, State{
		UserID:   "u1",
		TenantID: "t1",
		FormData: map[string]any{
			"name": "Ada", "email": "a@b.co", "major": "CS", "year": 2.0, "bio": "hi",
			"interests": []any{"go"}, "photoUrl": "p.png", "locationLat": 1.0, "locationLng": 2.0,
		},
	})

	assert.Equal(t, StepLocation, out.CurrentStep)
	assert.True(t, out.IsValid)
	assert.True(t, out.ProfileComplete)
	assert.Equal(t, FallbackPrompt, out.NextPrompt)
	assert.Equal(t, FallbackGuidance, out.Guidance)
}

func TestOnboarding_GuidanceFailureFallsBack(t *testing.T) {
	aug := llm.AugmenterFunc(func(context.Context, llm.UseCase, map[string]string) (string, error) {
		return "", errors.New("timeout")
	})

	out, _ := runOnboarding(t, store.NewCampus(store.NewMemory()), aug, State{
		UserID: "u1", TenantID: "t1",
		FormData: map[string]any{"name": "Ada", "email": "ada@uni.edu"}, CurrentStep: StepIdentity,
	})
	assert.Empty(t, out.Error)
	assert.Equal(t, FallbackPrompt, out.NextPrompt)
}

func TestOnboarding_SaveFailureSetsError(t *testing.T) {
	out, trace := runOnboarding(t, failingRepo{}, nil, State{
		UserID: "u1", TenantID: "t1",
		FormData: map[string]any{"name": "Ada", "email": "ada@uni.edu"}, CurrentStep: StepIdentity,
	})

	assert.NotEmpty(t, out.Error)
	assert.False(t, out.ProfileComplete)
	assert.Equal(t, []string{StageDetermineStep, StageValidate, StageGeneratePrompt, StageSaveProgress, StageFinalize}, trace.Visited())
}

func TestOnboarding_RequiresUser(t *testing.T) {
	out, trace := runOnboarding(t, failingRepo{}, nil, State{TenantID: "t1"})
	assert.Equal(t, "user_id is required", out.Error)
	assert.Equal(t, []string{StageDetermineStep, StageFinalize}, trace.Visited())
	assert.NotNil(t, out.ValidationErrors)
}

func TestOnboarding_StepOutOfRange(t *testing.T) {
	for _, step := range []int{-1, LastStep + 1, 9} {
		mem := store.NewMemory()
		out, trace := runOnboarding(t, store.NewCampus(mem), nil, State{
			UserID: "u1", TenantID: "t1", CurrentStep: step,
			FormData: map[string]any{"name": "Ada", "email": "ada@uni.edu"},
		})

		assert.Equal(t, "current_step must be between 1 and 5", out.Error, "step %d", step)
		assert.False(t, out.IsValid)
		assert.False(t, out.ProfileComplete)
		assert.Equal(t, []string{StageDetermineStep, StageFinalize}, trace.Visited())

		_, err := mem.Get(context.Background(), store.Profiles, "u1")
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
}

func TestOnboarding_Runner(t *testing.T) {
	runner, err := New(store.NewCampus(store.NewMemory()), nil, nil).Runner()
	require.NoError(t, err)

	out, err := runner.RunJSON(context.Background(), map[string]any{
		"user_id": "u1", "tenant_id": "t1",
		"form_data": map[string]any{"name": "Ada", "email": "ada@uni.edu", "major": "CS", "year": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(StepAboutMe), out["current_step"])
	assert.Equal(t, false, out["is_valid"])
}

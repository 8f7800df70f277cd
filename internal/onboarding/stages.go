package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/jonathan/campus-agents/internal/llm"
)

func (p *Pipeline) determineStep(_ context.Context, s State) (State, error) {
	switch {
	case strings.TrimSpace(s.UserID) == "":
		s.Fail("user_id is required")
		return s, nil
	case strings.TrimSpace(s.TenantID) == "":
		s.Fail("tenant_id is required")
		return s, nil
	}

	if s.FormData == nil {
		s.FormData = map[string]any{}
	}
	if s.CurrentStep == 0 {
		s.CurrentStep = DetermineStep(s.FormData)
	}
	if s.CurrentStep < StepIdentity || s.CurrentStep > LastStep {
		s.Fail(fmt.Sprintf("current_step must be between %d and %d", StepIdentity, LastStep))
	}
	return s, nil
}

func (p *Pipeline) validateStep(_ context.Context, s State) (State, error) {
	s.ValidationErrors = Validate(s.CurrentStep, s.FormData)
	s.IsValid = len(s.ValidationErrors) == 0
	return s, nil
}

func (p *Pipeline) generatePrompt(ctx context.Context, s State) (State, error) {
	if !s.IsValid {
		s.NextPrompt = FixFieldsPrompt
		return s, nil
	}

	form, err := json.Marshal(s.FormData)
	if err != nil {
		return s, err
	}
	res := llm.Invoke[llm.OnboardingOutput](ctx, p.augmenter, llm.OnboardingGuidance, map[string]string{
		"Step":     strconv.Itoa(s.CurrentStep),
		"StepName": StepName(s.CurrentStep),
		"FormData": string(form),
	})
	if !res.OK() {
		p.logger.Warn("onboarding guidance failed, using fallback", "step", s.CurrentStep, "error", res.Err)
		s.NextPrompt = FallbackPrompt
		s.Guidance = FallbackGuidance
		return s, nil
	}
	s.NextPrompt = res.Value.NextPrompt
	s.Guidance = res.Value.Guidance
	return s, nil
}

func (p *Pipeline) saveProgress(ctx context.Context, s State) (State, error) {
	if !s.IsValid {
		return s, nil
	}
	if err := p.repo.SaveProfile(ctx, s.UserID, s.TenantID, maps.Clone(s.FormData)); err != nil {
		p.logger.Error("failed to save onboarding progress", "user_id", s.UserID, "error", err)
		s.Fail("Failed to save onboarding progress. Please try again.")
	}
	return s, nil
}

func (p *Pipeline) checkCompletion(_ context.Context, s State) (State, error) {
	s.ProfileComplete = s.IsValid && s.CurrentStep >= LastStep
	return s, nil
}

func (p *Pipeline) finalize(_ context.Context, s State) (State, error) {
	if s.Error != "" {
		s.ProfileComplete = false
	}
	if s.ValidationErrors == nil {
		s.ValidationErrors = map[string]string{}
	}
	if s.FormData == nil {
		s.FormData = map[string]any{}
	}
	return s, nil
}

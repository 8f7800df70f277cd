package safety

import (
	"context"
	"slices"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/moderation"
	"github.com/jonathan/campus-agents/internal/types"
)

func (p *Pipeline) detectSpam(_ context.Context, s State) (State, error) {
	content := moderation.Normalize(s.Content, s.ContentType)

	// verdict fields are outputs; whatever the caller sent is discarded
	s.Flags = p.rules.Spam(content)
	s.Confidence = 0
	s.RecommendedAction = ""
	s.Safe = false
	s.classifierAction = ""
	return s, nil
}

func (p *Pipeline) checkExplicit(_ context.Context, s State) (State, error) {
	content := moderation.Normalize(s.Content, s.ContentType)
	flags := slices.Clone(s.Flags)
	flags = append(flags, p.rules.Explicit(content)...)
	flags = append(flags, p.rules.Custom(content, s.contentType())...)
	s.Flags = flags
	return s, nil
}

func (p *Pipeline) classifyUncertain(ctx context.Context, s State) (State, error) {
	maxConf := types.MaxConfidence(s.Flags)
	if len(s.Flags) > 0 && maxConf >= CertainConfidence {
		s.Confidence = maxConf
		return s, nil
	}

	res := llm.Invoke[llm.SafetyOutput](ctx, p.augmenter, llm.SafetyClassification, map[string]string{
		"ContentType": s.contentType(),
		"Content":     s.Content,
	})
	if !res.OK() {
		p.logger.Warn("safety classification failed, using rule confidence",
			"error", res.Err, "rule_confidence", maxConf)
		if maxConf == 0 {
			maxConf = FallbackConfidence
		}
		s.Confidence = maxConf
		return s, nil
	}

	out := res.Value
	conf := clamp01(out.Confidence)
	flags := slices.Clone(s.Flags)
	for _, kind := range out.Flags {
		flags = append(flags, types.Flag{Kind: kind, Confidence: conf, Source: types.RuleLLMClassification})
	}
	s.Flags = flags
	s.Confidence = conf
	s.classifierAction = out.Action
	return s, nil
}

func (p *Pipeline) determineAction(_ context.Context, s State) (State, error) {
	switch {
	case types.HasKind(s.Flags, types.FlagExplicit, types.FlagPhishing):
		s.RecommendedAction = types.ActionReject
	case s.classifierAction != "":
		s.RecommendedAction = s.classifierAction
	case len(s.Flags) > 0 && s.Confidence >= ReviewConfidence:
		s.RecommendedAction = types.ActionReview
	default:
		s.RecommendedAction = types.ActionAllow
	}
	s.Safe = s.RecommendedAction == types.ActionAllow
	return s, nil
}

func (p *Pipeline) finalize(_ context.Context, s State) (State, error) {
	if s.Flags == nil {
		s.Flags = []types.Flag{}
	}
	if s.RecommendedAction == "" {
		s.RecommendedAction = types.ActionReview
		s.Safe = false
	}
	return s, nil
}

func (s State) contentType() string {
	if s.ContentType == "" {
		return defaultContentType
	}
	return s.ContentType
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

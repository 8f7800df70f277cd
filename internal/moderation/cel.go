package moderation

import (
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/jonathan/campus-agents/internal/types"
)

// DefaultCustomConfidence applies to custom rules that set no confidence.
const DefaultCustomConfidence = 0.8

// CustomRule is a boolean CEL expression over content and content_type.
// Content is the normalized, lower-cased text.
//
//	content.contains("dm me") && content_type == "post"
type CustomRule struct {
	Name       string  `yaml:"name"`
	Expression string  `yaml:"expression"`
	Flag       string  `yaml:"flag"`
	Confidence float64 `yaml:"confidence"`
}

// RuleSet holds compiled custom rules.
type RuleSet struct {
	rules []compiledRule
}

type compiledRule struct {
	CustomRule
	program cel.Program
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("content", cel.StringType),
		cel.Variable("content_type", cel.StringType),
	)
}

// NewRuleSet compiles rules. Every expression must type-check to bool.
func NewRuleSet(rules []CustomRule) (*RuleSet, error) {
	env, err := newEnv()
	if err != nil {
		return nil, &RuleError{Message: "failed to create CEL environment", Cause: err}
	}

	set := &RuleSet{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		ast, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, &RuleError{Rule: rule.Name, Message: "invalid expression", Cause: issues.Err()}
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, &RuleError{Rule: rule.Name, Message: "expression must return bool"}
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, &RuleError{Rule: rule.Name, Message: "failed to build program", Cause: err}
		}
		if rule.Flag == "" {
			rule.Flag = rule.Name
		}
		if rule.Confidence <= 0 || rule.Confidence > 1 {
			rule.Confidence = DefaultCustomConfidence
		}
		set.rules = append(set.rules, compiledRule{CustomRule: rule, program: prg})
	}
	return set, nil
}

// Len returns the number of rules.
func (s *RuleSet) Len() int { return len(s.rules) }

// Evaluate returns a flag for every rule that evaluates to true. A rule that
// fails at evaluation time is logged and skipped.
func (s *RuleSet) Evaluate(content, contentType string) []types.Flag {
	vars := map[string]any{
		"content":      content,
		"content_type": contentType,
	}

	var flags []types.Flag
	for _, rule := range s.rules {
		out, _, err := rule.program.Eval(vars)
		if err != nil {
			slog.Warn("custom moderation rule failed", "rule", rule.Name, "error", err)
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			flags = append(flags, types.Flag{Kind: rule.Flag, Confidence: rule.Confidence, Source: types.RuleCustom})
		}
	}
	return flags
}

// Package moderation provides the fast content checks used by the safety
// pipeline: keyword, regex and banned-word rules plus optional CEL rules.
package moderation

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/campus-agents/internal/types"
)

// Rule confidences.
const (
	SpamConfidence     = 0.8
	PhishingConfidence = 0.9
	ExplicitConfidence = 0.95
)

// Config lists the rule inputs. It is usually loaded from the moderation
// section of the YAML config file.
type Config struct {
	SpamKeywords     []string     `yaml:"spam_keywords"`
	PhishingPatterns []string     `yaml:"phishing_patterns"`
	BannedWords      []string     `yaml:"banned_words"`
	CustomRules      []CustomRule `yaml:"custom_rules"`
}

// DefaultConfig returns the built-in rule lists.
func DefaultConfig() Config {
	return Config{
		SpamKeywords:     []string{"click here", "buy now", "limited offer"},
		PhishingPatterns: []string{`verify.*account`, `confirm.*password`},
		BannedWords:      []string{"slur1", "slur2"},
	}
}

// ParseConfig reads a YAML rules document. Lists left out of the document
// keep their defaults.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, &RuleError{Message: "failed to parse moderation rules", Cause: err}
	}
	return cfg, nil
}

// RuleError reports a rule that cannot be compiled.
type RuleError struct {
	Rule    string
	Message string
	Cause   error
}

func (e *RuleError) Error() string {
	msg := e.Message
	if e.Rule != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Rule)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *RuleError) Unwrap() error { return e.Cause }

// Rules is a compiled, immutable rule set. It is safe for concurrent use.
type Rules struct {
	spam     []string
	phishing []*regexp.Regexp
	banned   []string
	custom   *RuleSet
}

// Compile builds Rules from cfg. Keywords and banned words are matched
// lower-cased.
func Compile(cfg Config) (*Rules, error) {
	r := &Rules{
		spam:   normalizeTerms(cfg.SpamKeywords),
		banned: normalizeTerms(cfg.BannedWords),
	}
	for _, pattern := range cfg.PhishingPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &RuleError{Rule: pattern, Message: "invalid phishing pattern", Cause: err}
		}
		r.phishing = append(r.phishing, re)
	}
	if len(cfg.CustomRules) > 0 {
		set, err := NewRuleSet(cfg.CustomRules)
		if err != nil {
			return nil, err
		}
		r.custom = set
	}
	return r, nil
}

// Default returns Rules built from DefaultConfig.
func Default() *Rules {
	r, err := Compile(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return r
}

// Normalize lower-cases content after reducing HTML to text.
func Normalize(content, contentType string) string {
	if IsHTML(contentType) {
		if text, err := PlainText(content); err == nil {
			content = text
		}
	}
	return strings.ToLower(content)
}

// Spam returns one spam flag per matching keyword and one phishing flag per
// matching pattern. content must already be normalized.
func (r *Rules) Spam(content string) []types.Flag {
	var flags []types.Flag
	for _, kw := range r.spam {
		if strings.Contains(content, kw) {
			flags = append(flags, types.Flag{Kind: types.FlagSpam, Confidence: SpamConfidence, Source: types.RuleKeywordMatch})
		}
	}
	for _, re := range r.phishing {
		if re.MatchString(content) {
			flags = append(flags, types.Flag{Kind: types.FlagPhishing, Confidence: PhishingConfidence, Source: types.RuleRegexPattern})
		}
	}
	return flags
}

// Explicit returns one explicit flag per banned word found in content.
func (r *Rules) Explicit(content string) []types.Flag {
	var flags []types.Flag
	for _, word := range r.banned {
		if strings.Contains(content, word) {
			flags = append(flags, types.Flag{Kind: types.FlagExplicit, Confidence: ExplicitConfidence, Source: types.RuleBannedWord})
		}
	}
	return flags
}

// Custom evaluates the CEL rules, if any.
func (r *Rules) Custom(content, contentType string) []types.Flag {
	if r.custom == nil {
		return nil
	}
	return r.custom.Evaluate(content, contentType)
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

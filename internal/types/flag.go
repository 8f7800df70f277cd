package types

// Moderation flag kinds.
const (
	FlagSpam     = "spam"
	FlagPhishing = "phishing"
	FlagExplicit = "explicit"
)

// Flag sources.
const (
	RuleKeywordMatch      = "keyword_match"
	RuleRegexPattern      = "regex_pattern"
	RuleBannedWord        = "banned_word"
	RuleCustom            = "custom_rule"
	RuleLLMClassification = "llm_classification"
)

// Moderation actions.
const (
	ActionAllow  = "allow"
	ActionReview = "review"
	ActionReject = "reject"
)

// Flag records one moderation signal. Source names the rule or classifier
// that raised it.
type Flag struct {
	Kind       string  `json:"flag"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"rule"`
}

// MaxConfidence returns the highest confidence among flags, or 0.
func MaxConfidence(flags []Flag) float64 {
	maxConf := 0.0
	for _, f := range flags {
		if f.Confidence > maxConf {
			maxConf = f.Confidence
		}
	}
	return maxConf
}

// HasKind reports whether any flag has one of the given kinds.
func HasKind(flags []Flag, kinds ...string) bool {
	for _, f := range flags {
		for _, k := range kinds {
			if f.Kind == k {
				return true
			}
		}
	}
	return false
}

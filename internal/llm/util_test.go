package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced json", "```json\n{\"action\": \"allow\"}\n```", `{"action": "allow"}`},
		{"bare fence", "```\n{\"tone\": \"casual\"}\n```", `{"tone": "casual"}`},
		{"fence with language tag", "```js\n{\"tone\": \"casual\"}\n```", `{"tone": "casual"}`},
		{"fence then remark", "```json\n{\"confidence\": 0.4}\n```\nLet me know!", `{"confidence": 0.4}`},
		{"plain", `{"response": "Open Settings."}`, `{"response": "Open Settings."}`},
		{"preamble", "Sure! Here is the reply draft:\n{\"draft\": \"See you at 6?\"}", `{"draft": "See you at 6?"}`},
		{"inline preamble", "Classified: {\"flags\": [\"spam\"]} as asked", `{"flags": ["spam"]}`},
		{"array", "Picks:\n[\"e1\", \"g2\"]", `["e1", "g2"]`},
		{"braces in strings", `{"starter": "Ask about {chess} openings"}`, `{"starter": "Ask about {chess} openings"}`},
		{"escaped quotes", `Result: {"summary": "She said \"hi\" twice"}`, `{"summary": "She said \"hi\" twice"}`},
		{"nested", "Out: {\"a\": {\"b\": [1, {\"c\": 2}]}} end", `{"a": {"b": [1, {"c": 2}]}}`},
		{"no json", "  I can't help with that.  ", "I can't help with that."},
		{"unterminated", `{"why_compatible": "both`, `{"why_compatible": "both`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.in))
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		open, close byte
		want        string
	}{
		{"object", `{"k": [1, 2]} trailing`, '{', '}', `{"k": [1, 2]}`},
		{"array of objects", `[{"id": 1}, {"id": 2}] more`, '[', ']', `[{"id": 1}, {"id": 2}]`},
		{"close bracket in string", `["a]b", "c"]`, '[', ']', `["a]b", "c"]`},
		{"escaped backslash before quote", `{"path": "C:\\"} x`, '{', '}', `{"path": "C:\\"}`},
		{"empty", "", '{', '}', ""},
		{"wrong opener", `["x"]`, '{', '}', ""},
		{"never closes", `[1, [2, 3]`, '[', ']', ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractBalanced(tt.in, tt.open, tt.close))
		})
	}
}

package llm

import "strings"

// CleanJSONBlock extracts a JSON document from a model response. It strips
// markdown code fences, conversational preambles, and trailing remarks.
// Text with no recognisable JSON is returned trimmed.
func CleanJSONBlock(text string) string {
	text = stripFence(strings.TrimSpace(text))

	if doc := extractJSON(text); doc != "" {
		return doc
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if doc := extractJSON(text[start:]); doc != "" {
		return doc
	}
	return text
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else {
		text = strings.TrimPrefix(text, "```")
		// Drop a language identifier on the first line.
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func extractJSON(text string) string {
	switch {
	case strings.HasPrefix(text, "{"):
		return extractJSONObject(text)
	case strings.HasPrefix(text, "["):
		return extractJSONArray(text)
	}
	return ""
}

func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

// extractBalanced returns the prefix of text from its opening delimiter to
// the matching close, ignoring delimiters inside JSON strings. It returns ""
// when text does not start with open or never closes.
func extractBalanced(text string, open, close byte) string {
	if text == "" || text[0] != open {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}

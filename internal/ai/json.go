package ai

import (
	"encoding/json"
	"strings"
)

// CleanJSONBlock strips markdown code fences and any prose around the first
// JSON object or array in text.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "\n"); idx >= 0 {
			first := text[:idx]
			if len(first) < 20 && !strings.ContainsAny(first, " {[") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(text, closer); end > start {
		return text[start : end+1]
	}
	return text[start:]
}

// CompletePartialJSON turns the prefix of a JSON document into a valid
// document by closing open strings and containers and dropping a trailing
// value that cannot be completed. It returns false when nothing usable has
// arrived yet.
func CompletePartialJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}
	text = text[start:]

	for text != "" {
		candidate := closeOpen(text)
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
		text = cutBack(text)
	}

	return "", false
}

func closeOpen(text string) string {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return text[:i+1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(text)
	if inString {
		out := b.String()
		if escaped {
			out = out[:len(out)-1]
		}
		b.Reset()
		b.WriteString(out)
		b.WriteByte('"')
	}

	out := strings.TrimRight(b.String(), " \t\r\n")
	switch {
	case strings.HasSuffix(out, ","):
		out = strings.TrimRight(out[:len(out)-1], " \t\r\n")
	case strings.HasSuffix(out, ":"):
		out += "null"
	}

	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}

// cutBack drops the last incomplete member so the next closeOpen attempt has
// a chance to succeed. The result is always shorter than text.
func cutBack(text string) string {
	last := -1
	inString, escaped := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',', '{', '[':
			last = i
		}
	}

	if last < 0 {
		return ""
	}
	if text[last] == ',' || last == len(text)-1 {
		return text[:last]
	}
	return text[:last+1]
}

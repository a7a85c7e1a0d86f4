package tactic

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	roleMarker  = "assistant"
	langMarker  = "lean"
	fenceMarker = "```"
)

var quotedTactic = regexp.MustCompile(`"([^"]+)"`)

// afterLast returns the text after the last occurrence of sep, or s when absent.
func afterLast(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[i+len(sep):]
	}
	return s
}

// beforeFirst returns the text before the first occurrence of sep, or s when absent.
func beforeFirst(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if t := strings.TrimSpace(lines[i]); t != "" {
			return t
		}
	}
	return ""
}

// fencedChunk isolates the lean-fenced block the way the chat models emit it.
func fencedChunk(raw string) string {
	return beforeFirst(afterLast(raw, langMarker), fenceMarker)
}

// codeBlock returns the body of the last ```lean block, or of the first bare
// fence when no lean fence exists. Text without a fence is returned as is.
func codeBlock(raw string) string {
	var body string
	if i := strings.LastIndex(raw, fenceMarker+langMarker); i >= 0 {
		body = raw[i+len(fenceMarker+langMarker):]
	} else if i := strings.Index(raw, fenceMarker); i >= 0 {
		body = raw[i+len(fenceMarker):]
	} else {
		return raw
	}
	// The rest of the opening line is a language tag such as "4".
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return beforeFirst(body, fenceMarker)
}

// unquote drops one pair of double quotes wrapping the whole field.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// cleanField tidies a tactic read from a structured reply. The field is already
// a tactic, so only wrapping is removed: a fence, enclosing quotes and a
// leading `by`.
func cleanField(field string) string {
	t := strings.TrimSpace(field)
	if strings.Contains(t, fenceMarker) {
		t = firstNonEmptyLine(codeBlock(t))
	}
	return stripBy(unquote(t))
}

// stripBy removes a leading `by` keyword unless it is glued to the next token.
func stripBy(s string) string {
	if !strings.HasPrefix(s, "by") {
		return s
	}
	rest := s[2:]
	if rest == "" {
		return ""
	}
	if r := []rune(rest)[0]; !unicode.IsSpace(r) {
		return s
	}
	return strings.TrimLeftFunc(rest, unicode.IsSpace)
}

func extractFirstAfterAssistant(raw string) string {
	return firstNonEmptyLine(fencedChunk(afterLast(raw, roleMarker)))
}

func extractLastAfterAssistant(raw string) string {
	return lastNonEmptyLine(fencedChunk(afterLast(raw, roleMarker)))
}

func extractFenced(raw string) string {
	return stripBy(firstNonEmptyLine(codeBlock(raw)))
}

// extractPlain handles models told to answer with the bare tactic; a fenced
// answer is still unwrapped.
func extractPlain(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, fenceMarker) {
		lines := strings.Split(text, "\n")[1:]
		text = beforeFirst(strings.Join(lines, "\n"), fenceMarker)
	}
	return stripBy(firstNonEmptyLine(text))
}

func extractQuoted(raw string) string {
	line := firstNonEmptyLine(codeBlock(raw))
	if m := quotedTactic.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return stripBy(line)
}

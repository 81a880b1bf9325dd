package research

import (
	"regexp"
	"strings"
)

const (
	maxSuggestions         = 3
	maxReflectingQuestions = 4
)

var (
	suggestionMarkerRe  = regexp.MustCompile(`\*\*Research Question \d+:\*\*`)
	numberedQuestionRe  = regexp.MustCompile(`\d+\.\s*(.+)`)
	blankLineCollapseRe = regexp.MustCompile(`\n{3,}`)
	headingHashRe       = regexp.MustCompile(`^\s*#+\s*`)
)

// parseSuggestions extracts up to 3 research questions from model output.
// Structured output uses "**Research Question N:**" markers with the question
// text running until the "**Rationale" block or end of segment. Unstructured
// output falls back to line splitting with list-marker stripping; short lines
// are noise, not questions.
func parseSuggestions(text string) []string {
	var suggestions []string

	if locs := suggestionMarkerRe.FindAllStringIndex(text, -1); len(locs) > 0 {
		for i, loc := range locs {
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			segment := text[loc[1]:end]
			if idx := strings.Index(segment, "\n**Rationale"); idx >= 0 {
				segment = segment[:idx]
			}
			if q := strings.TrimSpace(segment); q != "" {
				suggestions = append(suggestions, q)
			}
		}
	}

	if len(suggestions) == 0 {
		for _, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "**") {
				continue
			}
			cleaned := strings.Trim(trimmed, "•-0123456789. *")
			if len(cleaned) > 20 {
				suggestions = append(suggestions, cleaned)
			}
		}
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// parseReflectingQuestions extracts up to 4 questions from model output,
// preferring numbered lines and falling back to bare line splitting.
func parseReflectingQuestions(text string) []string {
	var questions []string

	for _, match := range numberedQuestionRe.FindAllStringSubmatch(text, -1) {
		if q := strings.TrimSpace(match[1]); q != "" {
			questions = append(questions, q)
		}
	}

	if len(questions) == 0 {
		for _, line := range strings.Split(text, "\n") {
			if q := strings.Trim(strings.TrimSpace(line), "-•* "); q != "" {
				questions = append(questions, q)
			}
		}
	}

	if len(questions) > maxReflectingQuestions {
		questions = questions[:maxReflectingQuestions]
	}
	return questions
}

// cleanReport strips markdown heading markers the model emits despite the
// plain-text instruction and collapses runs of blank lines.
func cleanReport(report string) string {
	lines := strings.Split(report, "\n")
	for i, line := range lines {
		lines[i] = headingHashRe.ReplaceAllString(line, "")
	}
	cleaned := strings.Join(lines, "\n")
	cleaned = blankLineCollapseRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

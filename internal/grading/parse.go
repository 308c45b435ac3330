package grading

import (
	"fmt"
	"regexp"
	"strings"
)

// QA is one question/answer pair extracted from an application transcript
type QA struct {
	Question string
	Answer   string
}

// questionLine matches the "Q<n>: <prompt>" transcript marker
var questionLine = regexp.MustCompile(`^Q(\d+):\s*(.*)$`)

// ParseQA extracts question/answer pairs from a rendered transcript.
// The transcript format is one "Q<n>: prompt" line followed by an "R:"
// line; answers may span multiple lines up to the next question marker.
func ParseQA(content string) []QA {
	var pairs []QA
	var current *QA
	var inAnswer bool

	for _, line := range strings.Split(content, "\n") {
		if m := questionLine.FindStringSubmatch(line); m != nil {
			if current != nil {
				current.Answer = strings.TrimSpace(current.Answer)
				pairs = append(pairs, *current)
			}
			current = &QA{Question: m[2]}
			inAnswer = false
			continue
		}

		if current == nil {
			continue
		}

		if rest, ok := strings.CutPrefix(line, "R:"); ok {
			current.Answer = strings.TrimSpace(rest)
			inAnswer = true
			continue
		}

		if inAnswer {
			current.Answer += "\n" + line
		}
	}

	if current != nil {
		current.Answer = strings.TrimSpace(current.Answer)
		pairs = append(pairs, *current)
	}

	return pairs
}

// RenderQA produces the transcript stored in an application's content
// field from ordered prompts and their answers.
func RenderQA(pairs []QA) string {
	var b strings.Builder
	for i, qa := range pairs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Q%d: %s\nR: %s", i+1, qa.Question, qa.Answer)
	}
	return b.String()
}

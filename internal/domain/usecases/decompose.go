package usecases

import (
	"fmt"
	"strings"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
)

// Separator is placed between rendered question blocks.
const Separator = "\n\n---\n\n"

// Decompose splits an utterance into sub-questions on runs of '?', ';'
// and newlines. Fragments are trimmed and empty ones dropped; order is kept.
// When nothing survives, the whole utterance is the only sub-question.
func Decompose(utterance string) []string {
	parts := strings.FieldsFunc(utterance, func(r rune) bool {
		return r == '?' || r == ';' || r == '\n'
	})

	subs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			subs = append(subs, p)
		}
	}
	if len(subs) == 0 {
		return []string{utterance}
	}
	return subs
}

// Render formats entries as bold-headed blocks joined by a horizontal rule.
func Render(entries []entities.Entry) string {
	blocks := make([]string, len(entries))
	for i, e := range entries {
		body := e.Answer
		if e.Failed() {
			body = fmt.Sprintf("Error: %v", e.Err)
		}
		blocks[i] = fmt.Sprintf("**%s**\n%s", e.Question, body)
	}
	return strings.Join(blocks, Separator)
}

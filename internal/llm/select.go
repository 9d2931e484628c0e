package llm

import (
	"strings"
	"unicode/utf16"

	"para/internal/models"
)

const (
	longTaskChars   = 120
	longFormatChars = 16
)

// ChooseModel picks the heavier model for long tasks or plans that ask for
// research, an image, or an elaborate target format.
func ChooseModel(task string, plan models.Plan, pro, light string) string {
	complex := textLength(strings.TrimSpace(task)) > longTaskChars ||
		len(plan.SearchQueries) > 0 ||
		plan.ImageNeeded ||
		textLength(plan.TargetFormat) > longFormatChars
	if complex {
		return pro
	}
	return light
}

// textLength counts UTF-16 code units, so characters outside the BMP count
// twice, as they do in the browser that wrote the limits.
func textLength(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// Package language normalizes the free-form language hints accepted by the
// transcription stage ("en", "eng", "English") into the ISO 639-1 codes the
// providers expect.
package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// wordForms maps full English language names to BCP-47 tags, since
// language.Parse only accepts codes.
var wordForms = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
}

// ToISO2 converts any recognized language code or English name to ISO 639-1.
// Returns empty string for unrecognized input.
func ToISO2(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return ""
	}
	if code, ok := wordForms[hint]; ok {
		hint = code
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

// DisplayName returns a human-readable English name for any recognized code,
// "Unknown" otherwise.
func DisplayName(code string) string {
	normalized := ToISO2(code)
	if normalized == "" {
		return "Unknown"
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return "Unknown"
	}
	return display.English.Tags().Name(tag)
}

// Package minify compresses concatenated JavaScript bundles.
package minify

import (
	"fmt"

	tdminify "github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
)

const mediaType = "application/javascript"

// Minifier minifies JavaScript text. The zero value is not usable; use New.
type Minifier struct {
	m *tdminify.M
}

// New returns a Minifier. With keepNames set, local variable names are
// preserved, which keeps stack traces readable.
func New(keepNames bool) *Minifier {
	m := tdminify.New()
	m.Add(mediaType, &js.Minifier{KeepVarNames: keepNames})
	return &Minifier{m: m}
}

// JS minifies text.
func (mn *Minifier) JS(text string) (string, error) {
	out, err := mn.m.String(mediaType, text)
	if err != nil {
		return "", fmt.Errorf("minifying javascript: %w", err)
	}
	return out, nil
}

// JS minifies text with default settings.
func JS(text string) (string, error) {
	return New(false).JS(text)
}

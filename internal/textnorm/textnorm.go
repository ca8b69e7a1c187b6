// Package textnorm holds the small text normalisation helpers shared by the
// simplifier and the detector.
package textnorm

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lower lowercases s using Unicode case mapping rules.
// A fresh Caser is built per call because cases.Caser keeps internal state
// and must not be shared between goroutines.
func Lower(s string) string {
	if s == "" {
		return s
	}
	return cases.Lower(language.Und).String(s)
}

// Package simplifier rewrites medical text into plain language for elderly
// readers. It replaces jargon with everyday words, explains a recognised
// dosage frequency and closes with a fixed safety reminder.
//
// All tables are package-level and never mutated, so the functions here are
// safe for concurrent use.
package simplifier

import (
	"strings"

	"github.com/iliyamo/elder-health-text/internal/textnorm"
)

// Replacement records how often one jargon term was rewritten.
type Replacement struct {
	Term  string `json:"term"`
	Plain string `json:"plain"`
	Count int    `json:"count"`
}

// Result is the outcome of Analyze.
type Result struct {
	Text         string        // rendered explanation
	Body         string        // rewritten input, trimmed
	Replacements []Replacement // jargon terms that matched, in table order
	Dosage       string        // dosage sentence, empty when none matched
	Unchanged    bool          // input was already a rendered explanation
}

// TermsReplaced is the total number of jargon rewrites.
func (r Result) TermsReplaced() int {
	n := 0
	for _, rep := range r.Replacements {
		n += rep.Count
	}
	return n
}

// Simplify returns the plain-language explanation of text.
func Simplify(text string) string {
	return Analyze(text).Text
}

// Analyze runs the simplification pipeline and reports what it changed.
// Text that is already shaped like a rendered explanation (prefix ...
// reminder) is returned trimmed and otherwise untouched, so a second pass
// never stacks another prefix and reminder on top of the first. The check
// is by shape only: jargon inside such text is not rewritten.
func Analyze(text string) Result {
	if IsSimplified(text) {
		s := strings.TrimSpace(text)
		return Result{Text: s, Body: s, Unchanged: true}
	}

	body := text
	var reps []Replacement
	for _, t := range jargon {
		var n int
		body, n = replaceWord(t, body)
		if n > 0 {
			reps = append(reps, Replacement{Term: t.word, Plain: t.plain, Count: n})
		}
	}
	body = strings.TrimSpace(body)

	dose := dosageFor(body)
	return Result{
		Text:         render(body, dose),
		Body:         body,
		Replacements: reps,
		Dosage:       dose,
	}
}

// IsSimplified reports whether text already has the shape Simplify produces.
func IsSimplified(text string) bool {
	s := strings.TrimSpace(text)
	return strings.HasPrefix(s, Prefix) && strings.HasSuffix(s, Reminder)
}

// dosageFor picks the first dosage phrase, in table order, found anywhere in body.
func dosageFor(body string) string {
	lower := textnorm.Lower(body)
	for _, d := range dosages {
		if strings.Contains(lower, d.phrase) {
			return d.explanation
		}
	}
	return ""
}

func render(body, dose string) string {
	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(body)
	b.WriteString(".\n")
	if dose != "" {
		b.WriteString(dose)
		b.WriteByte('\n')
	}
	b.WriteString(Reminder)
	return b.String()
}

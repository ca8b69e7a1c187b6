// Package detector flags health claims that use typical manipulation
// phrasing. Matching is plain substring containment on the lowercased text;
// unlike the simplifier there is no word-boundary check, so "instantly"
// still trips "instant".
package detector

import (
	"strings"

	"github.com/iliyamo/elder-health-text/internal/textnorm"
)

// Labels returned by Detect.
const (
	LabelManipulative = "Manipulative"
	LabelSafe         = "Safe"
)

const (
	manipulativeExplanation = "This message looks exaggerated or misleading."
	safeExplanation         = "This looks normal, but confirm with a doctor."
)

// keywords are lowercase and checked in order.
var keywords = []string{
	"miracle",
	"secret cure",
	"doctors hide",
	"instant",
}

// Result is the verdict for one text.
type Result struct {
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
}

// Report is a Result plus the keywords that produced it.
type Report struct {
	Result
	Matches []string `json:"matched_keywords"`
}

// Manipulative reports whether the verdict is LabelManipulative.
func (r Result) Manipulative() bool { return r.Label == LabelManipulative }

// Detect labels text as Manipulative when any keyword occurs in it and Safe otherwise.
func Detect(text string) Result {
	return Inspect(text).Result
}

// Inspect is Detect that also returns every matching keyword in table order.
func Inspect(text string) Report {
	lower := textnorm.Lower(text)
	matches := []string{}
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			matches = append(matches, k)
		}
	}
	if len(matches) > 0 {
		return Report{Result: Result{Label: LabelManipulative, Explanation: manipulativeExplanation}, Matches: matches}
	}
	return Report{Result: Result{Label: LabelSafe, Explanation: safeExplanation}, Matches: matches}
}

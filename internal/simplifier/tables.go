package simplifier

import (
	"regexp"
)

// Prefix opens every rendered explanation.
const Prefix = "Simple Explanation: "

// Reminder closes every rendered explanation.
const Reminder = "Please take your medicine regularly and do not stop without asking your doctor. " +
	"If you feel unwell, contact a healthcare professional."

// term is one jargon entry. The pattern is the literal word matched
// case-insensitively; word boundaries are checked separately in match.go.
type term struct {
	word  string
	plain string
	re    *regexp.Regexp
}

func newTerm(word, plain string) term {
	return term{word: word, plain: plain, re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word))}
}

// jargon is applied in order over the progressively rewritten text. No plain
// phrase may contain a later entry's word, otherwise rewrites would cascade.
var jargon = []term{
	newTerm("hypertension", "high blood pressure"),
	newTerm("diabetes", "high blood sugar"),
	newTerm("tablet", "pill"),
	newTerm("capsule", "medicine capsule"),
	newTerm("administer", "take"),

	// abbreviations
	newTerm("BID", "twice a day"),
	newTerm("OD", "once a day"),
	newTerm("TID", "three times a day"),
}

type dosage struct {
	phrase      string
	explanation string
}

// dosages is searched first-match-wins in declaration order. Each phrase must
// be a plain value produced by the jargon table.
var dosages = []dosage{
	{phrase: "once a day", explanation: "Take it one time every day, usually in the morning."},
	{phrase: "twice a day", explanation: "Take it two times a day — once in the morning and once at night."},
	{phrase: "three times a day", explanation: "Take it three times a day — morning, afternoon, and night."},
}

package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectEmpty(t *testing.T) {
	assert.Equal(t, Result{
		Label:       "Safe",
		Explanation: "This looks normal, but confirm with a doctor.",
	}, Detect(""))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		label string
	}{
		{name: "mixed case keywords", text: "This is an INSTANT miracle cure", label: LabelManipulative},
		{name: "multi word keyword", text: "The secret cure they sell", label: LabelManipulative},
		{name: "doctors hide", text: "What DOCTORS HIDE from you", label: LabelManipulative},
		{name: "substring inside word", text: "Works instantly", label: LabelManipulative},
		{name: "keyword glued to other letters", text: "miraclex", label: LabelManipulative},
		{name: "plain advice", text: "Take one pill twice a day with food", label: LabelSafe},
		{name: "partial multi word", text: "a secret to a cure", label: LabelSafe},
		{name: "jargon is not manipulation", text: "hypertensionx", label: LabelSafe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.text)
			assert.Equal(t, tt.label, got.Label)
			if tt.label == LabelManipulative {
				assert.Equal(t, "This message looks exaggerated or misleading.", got.Explanation)
				assert.True(t, got.Manipulative())
			} else {
				assert.Equal(t, "This looks normal, but confirm with a doctor.", got.Explanation)
				assert.False(t, got.Manipulative())
			}
		})
	}
}

func TestDetectDeterministicTwoLabels(t *testing.T) {
	inputs := []string{"", "miracle", "regular checkup", "INSTANT", "  "}
	for _, in := range inputs {
		first := Detect(in)
		assert.Equal(t, first, Detect(in))
		assert.Contains(t, []string{LabelManipulative, LabelSafe}, first.Label)
	}
}

func TestInspectMatchesInTableOrder(t *testing.T) {
	rep := Inspect("Instant relief! The miracle that doctors hide")
	assert.Equal(t, LabelManipulative, rep.Label)
	assert.Equal(t, []string{"miracle", "doctors hide", "instant"}, rep.Matches)

	safe := Inspect("see your doctor")
	assert.Equal(t, LabelSafe, safe.Label)
	assert.Empty(t, safe.Matches)
	assert.NotNil(t, safe.Matches)
}

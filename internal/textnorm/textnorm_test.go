package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLower(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "ascii", in: "Take One Tablet BID", want: "take one tablet bid"},
		{name: "already lower", in: "twice a day", want: "twice a day"},
		{name: "non ascii", in: "ÄRZTE", want: "ärzte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lower(tt.in))
		})
	}
}

package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"no mentions", "just a normal post about lunch", []string{}},
		{"bare at sign", "meet me @ 5pm, email a@", []string{}},
		{"single", "hello @bob", []string{"bob"}},
		{"duplicates collapse", "@alice @alice and again @alice", []string{"alice"}},
		{"first-seen order", "hello @bob, great job @carol", []string{"bob", "carol"}},
		{"case kept", "@Bob and @bob", []string{"Bob", "bob"}},
		{"underscores and digits", "cc @dev_team2!", []string{"dev_team2"}},
		{"stops at punctuation", "@ana.souza said hi", []string{"ana"}},
		{"email addresses match the domain part", "write to ana@example.com", []string{"example"}},
		{"adjacent", "@a@b", []string{"a", "b"}},
		{"non ascii ends the handle", "@joão", []string{"jo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()
	text := "@z @y @x @y @z"
	first := Extract(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Extract(text))
	}
}

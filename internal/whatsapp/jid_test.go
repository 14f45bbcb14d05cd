package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJID(t *testing.T) {
	tests := []struct {
		in   string
		want JID
	}{
		{"5511999990001", "5511999990001@s.whatsapp.net"},
		{"+5511999990001", "5511999990001@s.whatsapp.net"},
		{" 5511999990001 ", "5511999990001@s.whatsapp.net"},
		{"5511999990001@s.whatsapp.net", "5511999990001@s.whatsapp.net"},
		{"5511999990001@c.us", "5511999990001@s.whatsapp.net"},
		{"5511999990001:12@s.whatsapp.net", "5511999990001:12@s.whatsapp.net"},
		{"120363025246125486@g.us", "120363025246125486@g.us"},
		{"98765432101234@lid", "98765432101234@lid"},
		{"status@broadcast", "status@broadcast"},
		{"120363144038483540@newsletter", "120363144038483540@newsletter"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseJID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJID_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "+", "55 11 9999", "abc", "@s.whatsapp.net", "5511@example.com"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseJID(in)
			assert.Error(t, err)
		})
	}
}

func TestJID_Parts(t *testing.T) {
	j := JID("120363025246125486@g.us")
	assert.Equal(t, "120363025246125486", j.User())
	assert.Equal(t, GroupServer, j.Server())
	assert.True(t, j.IsGroup())
	assert.Equal(t, "120363025246125486@g.us", j.String())

	u := JID("5511999990001@s.whatsapp.net")
	assert.False(t, u.IsGroup())
	assert.Equal(t, DefaultUserServer, u.Server())
}

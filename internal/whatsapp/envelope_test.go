package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	contents := []Content{
		&ListMessage{},
		&ButtonsMessage{},
		&TemplateMessage{},
		&InteractiveMessage{},
		&ExtendedTextMessage{},
	}
	for _, c := range contents {
		t.Run(c.ContentKey(), func(t *testing.T) {
			m, err := Wrap(c)
			require.NoError(t, err)
			assert.Equal(t, c.ContentKey(), m.ContentType())
			assert.Same(t, c, m.Content())
			assert.Equal(t, 1, m.populated())
		})
	}

	_, err := Wrap(nil)
	assert.Error(t, err)
}

func TestMessage_ReplyVariants(t *testing.T) {
	raw := `{"buttonsResponseMessage":{"selectedButtonId":"yes","selectedDisplayText":"Yes","contextInfo":{"stanzaId":"3EB0AA"}}}`
	var m Message
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, KeyButtonsResponseMessage, m.ContentType())
	assert.Nil(t, m.Content())
	require.NotNil(t, m.ButtonsResponseMessage)
	assert.Equal(t, "yes", m.ButtonsResponseMessage.SelectedButtonID)

	var empty *Message
	assert.Equal(t, "", empty.ContentType())
	assert.Nil(t, empty.Content())
}

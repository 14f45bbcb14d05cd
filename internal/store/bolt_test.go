package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore_Thumbnails(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetThumbnail("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.PutThumbnail("k", []byte{0xFF, 0xD8}))
	got, err = s.GetThumbnail("k")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, got)
}

func TestBoltStore_Chats(t *testing.T) {
	s := newTestStore(t)

	chat, err := s.GetChat("5511999990001@s.whatsapp.net")
	require.NoError(t, err)
	assert.Nil(t, chat)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.SaveChat(ChatSettings{JID: "5511999990001@s.whatsapp.net", Expiration: 86400, UpdatedAt: now}))

	chat, err = s.GetChat("5511999990001@s.whatsapp.net")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.EqualValues(t, 86400, chat.Expiration)
	assert.True(t, now.Equal(chat.UpdatedAt))

	require.NoError(t, s.SaveChat(ChatSettings{JID: "5511999990001@s.whatsapp.net", Expiration: 0, UpdatedAt: now}))
	chat, err = s.GetChat("5511999990001@s.whatsapp.net")
	require.NoError(t, err)
	assert.Zero(t, chat.Expiration)
}

func TestBoltStore_SentAndSelections(t *testing.T) {
	s := newTestStore(t)

	sent, err := s.GetSent("3EB0NOPE")
	require.NoError(t, err)
	assert.Nil(t, sent)

	msg := SentMessage{
		ID:          "3EB0AA",
		To:          "5511999990001@s.whatsapp.net",
		ContentType: "listMessage",
		Variant:     "list",
		Transport:   "http",
		Payload:     json.RawMessage(`{"listMessage":{"listType":"SINGLE_SELECT","contextInfo":{}}}`),
		SentAt:      time.Now().UTC(),
	}
	require.NoError(t, s.SaveSent(msg))

	found, err := s.RecordSelection("3EB0AA", Selection{ReplyID: "R1", Kind: "list", SelectedID: "fruit-apple"})
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.RecordSelection("3EB0NOPE", Selection{ReplyID: "R2"})
	require.NoError(t, err)
	assert.False(t, found)

	sent, err = s.GetSent("3EB0AA")
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, "list", sent.Variant)
	assert.JSONEq(t, string(msg.Payload), string(sent.Payload))
	require.Len(t, sent.Selections, 1)
	assert.Equal(t, "fruit-apple", sent.Selections[0].SelectedID)
}

func TestBoltStore_SelectionsAreCapped(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSent(SentMessage{ID: "3EB0AA", Payload: json.RawMessage(`{}`)}))

	for i := range maxSelectionsPerMessage + 5 {
		_, err := s.RecordSelection("3EB0AA", Selection{ReplyID: fmt.Sprintf("R%d", i)})
		require.NoError(t, err)
	}

	sent, err := s.GetSent("3EB0AA")
	require.NoError(t, err)
	require.Len(t, sent.Selections, maxSelectionsPerMessage)
	assert.Equal(t, "R5", sent.Selections[0].ReplyID)
	assert.Equal(t, fmt.Sprintf("R%d", maxSelectionsPerMessage+4), sent.Selections[maxSelectionsPerMessage-1].ReplyID)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.PutThumbnail("k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetThumbnail("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

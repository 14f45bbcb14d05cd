package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	thumbnailsBucket = []byte("thumbnails")
	chatsBucket      = []byte("chats")
	sentBucket       = []byte("sent")
)

const maxSelectionsPerMessage = 50

// ChatSettings holds per-chat defaults applied to outgoing messages.
type ChatSettings struct {
	JID string `json:"jid"`
	// Expiration is the disappearing-messages timer in seconds, 0 when off.
	Expiration uint32    `json:"expiration"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SentMessage records an envelope handed to the transport.
type SentMessage struct {
	ID          string          `json:"id"`
	To          string          `json:"to"`
	ContentType string          `json:"content_type"`
	Variant     string          `json:"variant"`
	Transport   string          `json:"transport"`
	Payload     json.RawMessage `json:"payload"`
	SentAt      time.Time       `json:"sent_at"`
	Selections  []Selection     `json:"selections,omitempty"`
}

// Selection is a reply received for a sent interactive message.
type Selection struct {
	ReplyID     string    `json:"reply_id"`
	From        string    `json:"from"`
	Kind        string    `json:"kind"`
	SelectedID  string    `json:"selected_id"`
	DisplayText string    `json:"display_text,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

type Store interface {
	GetThumbnail(key string) ([]byte, error)
	PutThumbnail(key string, jpeg []byte) error
	SaveChat(c ChatSettings) error
	GetChat(jid string) (*ChatSettings, error)
	SaveSent(m SentMessage) error
	GetSent(id string) (*SentMessage, error)
	RecordSelection(messageID string, sel Selection) (bool, error)
	Close() error
}

type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{thumbnailsBucket, chatsBucket, sentBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) GetThumbnail(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(thumbnailsBucket).Get([]byte(key))
		if v != nil {
			// v is only valid inside the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}

func (s *BoltStore) PutThumbnail(key string, jpeg []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(thumbnailsBucket).Put([]byte(key), jpeg)
	})
}

func (s *BoltStore) SaveChat(c ChatSettings) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return tx.Bucket(chatsBucket).Put([]byte(c.JID), data)
	})
}

func (s *BoltStore) GetChat(jid string) (*ChatSettings, error) {
	var c ChatSettings
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(chatsBucket).Get([]byte(jid))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &c)
	})
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (s *BoltStore) SaveSent(m SentMessage) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return tx.Bucket(sentBucket).Put([]byte(m.ID), data)
	})
}

func (s *BoltStore) GetSent(id string) (*SentMessage, error) {
	var m SentMessage
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(sentBucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &m)
	})
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}

// RecordSelection appends sel to the sent message messageID. It reports
// false when no such message was recorded.
func (s *BoltStore) RecordSelection(messageID string, sel Selection) (bool, error) {
	found := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sentBucket)
		v := b.Get([]byte(messageID))
		if v == nil {
			return nil
		}
		found = true

		var m SentMessage
		if err := json.Unmarshal(v, &m); err != nil {
			return err
		}
		m.Selections = append(m.Selections, sel)
		if len(m.Selections) > maxSelectionsPerMessage {
			m.Selections = m.Selections[len(m.Selections)-maxSelectionsPerMessage:]
		}

		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return b.Put([]byte(messageID), data)
	})
	return found, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BoltStore)(nil)

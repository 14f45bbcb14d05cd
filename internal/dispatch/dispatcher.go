package dispatch

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lojasmm/wamsg/internal/metrics"
	"github.com/lojasmm/wamsg/internal/session"
	"github.com/lojasmm/wamsg/internal/store"
	"github.com/lojasmm/wamsg/internal/whatsapp"
)

// ErrTransport marks failures of the Sender, as opposed to build or storage
// failures.
var ErrTransport = errors.New("transport failed")

// Dispatcher turns intents into envelopes and hands them to the transport,
// one chat at a time.
type Dispatcher struct {
	builder           *whatsapp.Builder
	sender            whatsapp.Sender
	store             store.Store
	sessions          *session.Manager
	defaultExpiration uint32
	log               *zap.Logger
	now               func() time.Time
}

type Options struct {
	// DefaultExpiration applies to chats without stored settings.
	DefaultExpiration uint32
	Logger            *zap.Logger
}

func NewDispatcher(b *whatsapp.Builder, sender whatsapp.Sender, s store.Store, sessions *session.Manager, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		builder:           b,
		sender:            sender,
		store:             s,
		sessions:          sessions,
		defaultExpiration: opts.DefaultExpiration,
		log:               logger,
		now:               time.Now,
	}
}

// Result describes a prepared or sent envelope.
type Result struct {
	ID          string            `json:"id,omitempty"`
	To          whatsapp.JID      `json:"to"`
	ContentType string            `json:"contentType"`
	Variant     string            `json:"variant"`
	Message     *whatsapp.Message `json:"message"`
}

// Preview builds and validates the envelope for to without sending it.
func (d *Dispatcher) Preview(ctx context.Context, to whatsapp.JID, intent *whatsapp.MessageIntent) (*Result, error) {
	return d.prepare(ctx, to, intent)
}

func (d *Dispatcher) Send(ctx context.Context, to whatsapp.JID, intent *whatsapp.MessageIntent) (*Result, error) {
	res, err := d.prepare(ctx, to, intent)
	if err != nil {
		return nil, err
	}
	res.ID = NewMessageID()

	out := &whatsapp.Outgoing{
		ID:        res.ID,
		To:        to,
		Timestamp: d.now().Unix(),
		Message:   res.Message,
	}

	err = d.sessions.WithLock(string(to), func() error {
		return d.sender.Send(ctx, out)
	})
	if err != nil {
		metrics.MessagesSent.WithLabelValues(d.sender.Name(), "error").Inc()
		d.log.Error("send failed",
			zap.String("id", res.ID), zap.String("to", string(to)),
			zap.String("variant", res.Variant), zap.Error(err))
		return nil, fmt.Errorf("sending %s to %s: %w: %w", res.Variant, to, ErrTransport, err)
	}
	metrics.MessagesSent.WithLabelValues(d.sender.Name(), "ok").Inc()
	d.log.Info("message sent",
		zap.String("id", res.ID), zap.String("to", string(to)),
		zap.String("variant", res.Variant), zap.String("transport", d.sender.Name()))

	d.record(res)
	return res, nil
}

func (d *Dispatcher) prepare(ctx context.Context, to whatsapp.JID, intent *whatsapp.MessageIntent) (*Result, error) {
	content, err := d.builder.Build(ctx, intent)
	if err != nil {
		return nil, err
	}

	if err := d.applyDefaults(to, content); err != nil {
		return nil, err
	}

	msg, err := whatsapp.Wrap(content)
	if err != nil {
		return nil, err
	}
	if err := whatsapp.ValidateMessage(msg); err != nil {
		metrics.BuildErrors.WithLabelValues(string(whatsapp.ErrSchemaMismatch)).Inc()
		d.log.Error("payload failed schema check", zap.String("to", string(to)), zap.Error(err))
		return nil, err
	}

	return &Result{
		To:          to,
		ContentType: msg.ContentType(),
		Variant:     whatsapp.Variant(content),
		Message:     msg,
	}, nil
}

// applyDefaults fills ContextInfo fields the caller left unset with the
// chat's ambient values.
func (d *Dispatcher) applyDefaults(to whatsapp.JID, content whatsapp.Content) error {
	expiration, err := d.expirationFor(to)
	if err != nil {
		return err
	}
	if expiration == 0 {
		return nil
	}

	ci := content.GetContextInfo()
	if ci == nil {
		// plain text without metadata
		tm, ok := content.(*whatsapp.ExtendedTextMessage)
		if !ok {
			return nil
		}
		ci = &whatsapp.ContextInfo{}
		tm.ContextInfo = ci
	}
	if ci.Expiration == 0 {
		ci.Expiration = expiration
	}
	return nil
}

func (d *Dispatcher) expirationFor(to whatsapp.JID) (uint32, error) {
	chat, err := d.store.GetChat(string(to))
	if err != nil {
		return 0, fmt.Errorf("loading chat settings for %s: %w", to, err)
	}
	if chat != nil {
		return chat.Expiration, nil
	}
	return d.defaultExpiration, nil
}

func (d *Dispatcher) record(res *Result) {
	payload, err := json.Marshal(res.Message)
	if err != nil {
		d.log.Warn("failed to encode sent message", zap.String("id", res.ID), zap.Error(err))
		return
	}
	err = d.store.SaveSent(store.SentMessage{
		ID:          res.ID,
		To:          string(res.To),
		ContentType: res.ContentType,
		Variant:     res.Variant,
		Transport:   d.sender.Name(),
		Payload:     payload,
		SentAt:      d.now(),
	})
	if err != nil {
		d.log.Warn("failed to record sent message", zap.String("id", res.ID), zap.Error(err))
	}
}

// HandleSelection records a reply against the message it answers.
func (d *Dispatcher) HandleSelection(_ context.Context, sel whatsapp.Selection) {
	metrics.SelectionsReceived.WithLabelValues(sel.Kind).Inc()

	if sel.MessageID == "" {
		d.log.Debug("selection without quoted message", zap.String("reply", sel.ReplyID))
		return
	}

	found, err := d.store.RecordSelection(sel.MessageID, store.Selection{
		ReplyID:     sel.ReplyID,
		From:        string(sel.From),
		Kind:        sel.Kind,
		SelectedID:  sel.SelectedID,
		DisplayText: sel.DisplayText,
		ReceivedAt:  d.now(),
	})
	switch {
	case err != nil:
		d.log.Error("failed to record selection", zap.String("message", sel.MessageID), zap.Error(err))
	case !found:
		d.log.Debug("selection for unknown message", zap.String("message", sel.MessageID))
	default:
		d.log.Info("selection received",
			zap.String("message", sel.MessageID), zap.String("kind", sel.Kind),
			zap.String("selected", sel.SelectedID))
	}
}

// SetEphemeral stores the disappearing-messages timer for a chat.
func (d *Dispatcher) SetEphemeral(jid whatsapp.JID, seconds uint32) error {
	return d.store.SaveChat(store.ChatSettings{
		JID:        string(jid),
		Expiration: seconds,
		UpdatedAt:  d.now(),
	})
}

func (d *Dispatcher) GetSent(id string) (*store.SentMessage, error) {
	return d.store.GetSent(id)
}

// NewMessageID returns an ID in the 3EB0-prefixed uppercase hex form used for
// messages sent by non-phone clients.
func NewMessageID() string {
	id := uuid.New()
	return "3EB0" + strings.ToUpper(hex.EncodeToString(id[:]))
}

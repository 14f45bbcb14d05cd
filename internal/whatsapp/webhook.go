package whatsapp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Relay deliveries carry reply events, never media.
const maxWebhookBytes = 1 << 20

// --- Incoming relay events ---

type WebhookPayload struct {
	Events []Event `json:"events"`
}

type Event struct {
	ID        string   `json:"id"`
	Chat      JID      `json:"chat"`
	From      JID      `json:"from"`
	Timestamp int64    `json:"timestamp"`
	Message   *Message `json:"message"`
}

// Selection is a user's reply to one of our interactive messages.
type Selection struct {
	// MessageID is the ID of the interactive message being answered.
	MessageID   string `json:"messageId"`
	ReplyID     string `json:"replyId"`
	Chat        JID    `json:"chat"`
	From        JID    `json:"from"`
	Kind        string `json:"kind"`
	SelectedID  string `json:"selectedId"`
	DisplayText string `json:"displayText,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// SelectionHandler is called for each reply found in a webhook delivery.
type SelectionHandler func(ctx context.Context, sel Selection)

type WebhookHandler struct {
	token    string
	onSelect SelectionHandler
	log      *zap.Logger
}

func NewWebhookHandler(token string, onSelect SelectionHandler, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		token:    token,
		onSelect: onSelect,
		log:      logger,
	}
}

// HandleIncoming processes relay POST notifications. Undecodable payloads
// are acknowledged so the relay does not redeliver them; bodies over
// maxWebhookBytes get 413.
func (h *WebhookHandler) HandleIncoming(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Webhook-Token")), []byte(h.token)) != 1 {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var payload WebhookPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBytes)).Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.Warn("webhook: payload too large", zap.Int64("limit", tooLarge.Limit))
			http.Error(w, "Payload Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		h.log.Warn("webhook: failed to decode payload", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, ev := range payload.Events {
		sel, ok := ExtractSelection(ev)
		if !ok {
			continue
		}
		h.onSelect(r.Context(), sel)
	}

	w.WriteHeader(http.StatusOK)
}

// ExtractSelection reads the reply variant of an event, if it has one.
func ExtractSelection(ev Event) (Selection, bool) {
	m := ev.Message
	if m == nil {
		return Selection{}, false
	}

	sel := Selection{ReplyID: ev.ID, Chat: ev.Chat, From: ev.From, Timestamp: ev.Timestamp}
	var ci *ContextInfo

	switch {
	case m.ListResponseMessage != nil:
		r := m.ListResponseMessage
		if r.SingleSelectReply == nil {
			return Selection{}, false
		}
		sel.Kind = "list"
		sel.SelectedID = r.SingleSelectReply.SelectedRowID
		sel.DisplayText = r.Title
		ci = r.ContextInfo
	case m.ButtonsResponseMessage != nil:
		r := m.ButtonsResponseMessage
		sel.Kind = "buttons"
		sel.SelectedID = r.SelectedButtonID
		sel.DisplayText = r.SelectedDisplayText
		ci = r.ContextInfo
	case m.TemplateButtonReplyMessage != nil:
		r := m.TemplateButtonReplyMessage
		sel.Kind = "template"
		sel.SelectedID = r.SelectedID
		sel.DisplayText = r.SelectedDisplayText
		ci = r.ContextInfo
	case m.InteractiveResponseMessage != nil:
		r := m.InteractiveResponseMessage
		if r.NativeFlowResponseMessage == nil {
			return Selection{}, false
		}
		sel.Kind = "interactive"
		var params struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(r.NativeFlowResponseMessage.ParamsJSON), &params); err == nil {
			sel.SelectedID = params.ID
		}
		if sel.SelectedID == "" {
			sel.SelectedID = r.NativeFlowResponseMessage.Name
		}
		if r.Body != nil {
			sel.DisplayText = r.Body.Text
		}
		ci = r.ContextInfo
	default:
		return Selection{}, false
	}

	if ci != nil {
		sel.MessageID = ci.StanzaID
	}
	return sel, true
}

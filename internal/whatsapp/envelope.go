package whatsapp

import "fmt"

// Selector keys naming the populated field of a Message.
const (
	KeyListMessage                = "listMessage"
	KeyButtonsMessage             = "buttonsMessage"
	KeyTemplateMessage            = "templateMessage"
	KeyInteractiveMessage         = "interactiveMessage"
	KeyExtendedTextMessage        = "extendedTextMessage"
	KeyListResponseMessage        = "listResponseMessage"
	KeyButtonsResponseMessage     = "buttonsResponseMessage"
	KeyTemplateButtonReplyMessage = "templateButtonReplyMessage"
	KeyInteractiveResponseMessage = "interactiveResponseMessage"
)

// Content is one outgoing message variant. The set of implementations is
// closed: every variant exposes its metadata block through GetContextInfo
// and accepts one through setContextInfo.
type Content interface {
	ContentKey() string
	GetContextInfo() *ContextInfo
	setContextInfo(ci *ContextInfo)
}

func (m *ListMessage) ContentKey() string { return KeyListMessage }
func (m *ListMessage) GetContextInfo() *ContextInfo { return m.ContextInfo }
func (m *ListMessage) setContextInfo(ci *ContextInfo) { m.ContextInfo = ci }

func (m *ButtonsMessage) ContentKey() string { return KeyButtonsMessage }
func (m *ButtonsMessage) GetContextInfo() *ContextInfo { return m.ContextInfo }
func (m *ButtonsMessage) setContextInfo(ci *ContextInfo) { m.ContextInfo = ci }

func (m *TemplateMessage) ContentKey() string { return KeyTemplateMessage }
func (m *TemplateMessage) GetContextInfo() *ContextInfo { return m.ContextInfo }
func (m *TemplateMessage) setContextInfo(ci *ContextInfo) { m.ContextInfo = ci }

func (m *InteractiveMessage) ContentKey() string { return KeyInteractiveMessage }
func (m *InteractiveMessage) GetContextInfo() *ContextInfo { return m.ContextInfo }
func (m *InteractiveMessage) setContextInfo(ci *ContextInfo) { m.ContextInfo = ci }

func (m *ExtendedTextMessage) ContentKey() string { return KeyExtendedTextMessage }
func (m *ExtendedTextMessage) GetContextInfo() *ContextInfo { return m.ContextInfo }
func (m *ExtendedTextMessage) setContextInfo(ci *ContextInfo) { m.ContextInfo = ci }

// IsInteractive reports whether c is one of the variants that must always
// carry a ContextInfo.
func IsInteractive(c Content) bool {
	switch c.(type) {
	case *ListMessage, *ButtonsMessage, *TemplateMessage, *InteractiveMessage:
		return true
	default:
		return false
	}
}

// Message is the outer envelope: exactly one field is populated, and its
// JSON key names the variant.
type Message struct {
	ListMessage         *ListMessage         `json:"listMessage,omitempty"`
	ButtonsMessage      *ButtonsMessage      `json:"buttonsMessage,omitempty"`
	TemplateMessage     *TemplateMessage     `json:"templateMessage,omitempty"`
	InteractiveMessage  *InteractiveMessage  `json:"interactiveMessage,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`

	ListResponseMessage        *ListResponseMessage        `json:"listResponseMessage,omitempty"`
	ButtonsResponseMessage     *ButtonsResponseMessage     `json:"buttonsResponseMessage,omitempty"`
	TemplateButtonReplyMessage *TemplateButtonReplyMessage `json:"templateButtonReplyMessage,omitempty"`
	InteractiveResponseMessage *InteractiveResponseMessage `json:"interactiveResponseMessage,omitempty"`
}

// Wrap places c in a new envelope under its selector key.
func Wrap(c Content) (*Message, error) {
	var m Message
	switch v := c.(type) {
	case *ListMessage:
		m.ListMessage = v
	case *ButtonsMessage:
		m.ButtonsMessage = v
	case *TemplateMessage:
		m.TemplateMessage = v
	case *InteractiveMessage:
		m.InteractiveMessage = v
	case *ExtendedTextMessage:
		m.ExtendedTextMessage = v
	default:
		return nil, fmt.Errorf("wrap: unsupported content %T", c)
	}
	return &m, nil
}

// ContentType returns the selector key of the first populated field, or ""
// for an empty envelope.
func (m *Message) ContentType() string {
	switch {
	case m == nil:
		return ""
	case m.ListMessage != nil:
		return KeyListMessage
	case m.ButtonsMessage != nil:
		return KeyButtonsMessage
	case m.TemplateMessage != nil:
		return KeyTemplateMessage
	case m.InteractiveMessage != nil:
		return KeyInteractiveMessage
	case m.ExtendedTextMessage != nil:
		return KeyExtendedTextMessage
	case m.ListResponseMessage != nil:
		return KeyListResponseMessage
	case m.ButtonsResponseMessage != nil:
		return KeyButtonsResponseMessage
	case m.TemplateButtonReplyMessage != nil:
		return KeyTemplateButtonReplyMessage
	case m.InteractiveResponseMessage != nil:
		return KeyInteractiveResponseMessage
	}
	return ""
}

// Content returns the populated outgoing variant, or nil.
func (m *Message) Content() Content {
	switch {
	case m == nil:
		return nil
	case m.ListMessage != nil:
		return m.ListMessage
	case m.ButtonsMessage != nil:
		return m.ButtonsMessage
	case m.TemplateMessage != nil:
		return m.TemplateMessage
	case m.InteractiveMessage != nil:
		return m.InteractiveMessage
	case m.ExtendedTextMessage != nil:
		return m.ExtendedTextMessage
	}
	return nil
}

// populated counts set fields; a valid envelope has exactly one.
func (m *Message) populated() int {
	n := 0
	for _, set := range []bool{
		m.ListMessage != nil, m.ButtonsMessage != nil, m.TemplateMessage != nil,
		m.InteractiveMessage != nil, m.ExtendedTextMessage != nil,
		m.ListResponseMessage != nil, m.ButtonsResponseMessage != nil,
		m.TemplateButtonReplyMessage != nil, m.InteractiveResponseMessage != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

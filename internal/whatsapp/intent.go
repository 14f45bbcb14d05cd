package whatsapp

import (
	"fmt"
	"slices"

	"github.com/lojasmm/wamsg/internal/thumbnail"
)

// MessageIntent is the caller's description of an outgoing message. At most
// one of Sections, ProductList, Buttons, TemplateButtons and
// InteractiveButtons is expected; a non-nil slice counts as present.
type MessageIntent struct {
	Text       string `json:"text,omitempty"`
	Footer     string `json:"footer,omitempty"`
	Title      string `json:"title,omitempty"`
	Subtitle   string `json:"subtitle,omitempty"`
	ButtonText string `json:"buttonText,omitempty"`

	Sections           []Section                `json:"sections,omitempty"`
	ProductList        []ProductSection         `json:"productList,omitempty"`
	Buttons            []Button                 `json:"buttons,omitempty"`
	TemplateButtons    []HydratedTemplateButton `json:"templateButtons,omitempty"`
	InteractiveButtons []NativeFlowButton       `json:"interactiveButtons,omitempty"`

	Mentions         []JID             `json:"mentions,omitempty"`
	ContextInfo      *ContextInfo      `json:"contextInfo,omitempty"`
	Thumbnail        *thumbnail.Source `json:"thumbnail,omitempty"`
	BusinessOwnerJID JID               `json:"businessOwnerJid,omitempty"`
}

// Discriminator names, in selection priority order.
const (
	KindSections           = "sections"
	KindProductList        = "productList"
	KindButtons            = "buttons"
	KindTemplateButtons    = "templateButtons"
	KindInteractiveButtons = "interactiveButtons"
)

// Discriminators lists the variant-selecting fields present on the intent,
// highest priority first.
func (in *MessageIntent) Discriminators() []string {
	var kinds []string
	if in.Sections != nil {
		kinds = append(kinds, KindSections)
	}
	if in.ProductList != nil {
		kinds = append(kinds, KindProductList)
	}
	if in.Buttons != nil {
		kinds = append(kinds, KindButtons)
	}
	if in.TemplateButtons != nil {
		kinds = append(kinds, KindTemplateButtons)
	}
	if in.InteractiveButtons != nil {
		kinds = append(kinds, KindInteractiveButtons)
	}
	return kinds
}

// normalizedContext merges the caller's ContextInfo with the mentions.
// The result is never nil; mentions replace any caller-supplied
// mentionedJid.
func (in *MessageIntent) normalizedContext() *ContextInfo {
	ci := &ContextInfo{}
	if in.ContextInfo != nil {
		*ci = *in.ContextInfo
		ci.MentionedJID = slices.Clone(in.ContextInfo.MentionedJID)
	}
	if in.Mentions != nil {
		ci.MentionedJID = slices.Clone(in.Mentions)
	}
	return ci
}

// withContext attaches ci to an interactive variant.
func withContext(c Content, ci *ContextInfo) Content {
	c.setContextInfo(ci)
	return c
}

// normalizeJIDs validates and normalizes mentions and the business owner in
// place; Build calls it on its own copy of the intent.
func (in *MessageIntent) normalizeJIDs() error {
	for i, m := range in.Mentions {
		jid, err := ParseJID(string(m))
		if err != nil {
			return &BuildError{Type: ErrCallerContract, Field: "mentions", Message: fmt.Sprintf("invalid jid at index %d", i), Err: err}
		}
		in.Mentions[i] = jid
	}
	if in.BusinessOwnerJID != "" {
		jid, err := ParseJID(string(in.BusinessOwnerJID))
		if err != nil {
			return &BuildError{Type: ErrCallerContract, Field: "businessOwnerJid", Message: "invalid jid", Err: err}
		}
		in.BusinessOwnerJID = jid
	}
	return nil
}

package whatsapp

// Payload records mirror the recipient protocol's message schema. JSON field
// names follow the protocol's camelCase mapping exactly; the receiving side
// drops fields it does not recognize without reporting an error.

// ContextInfo is the metadata block (mentions, quoted reply, forwarding,
// disappearing-message timer) every interactive variant must carry, even
// when empty.
type ContextInfo struct {
	StanzaID                  string `json:"stanzaId,omitempty"`
	Participant               JID    `json:"participant,omitempty"`
	RemoteJID                 JID    `json:"remoteJid,omitempty"`
	MentionedJID              []JID  `json:"mentionedJid,omitempty"`
	IsForwarded               bool   `json:"isForwarded,omitempty"`
	ForwardingScore           uint32 `json:"forwardingScore,omitempty"`
	Expiration                uint32 `json:"expiration,omitempty"`
	EphemeralSettingTimestamp int64  `json:"ephemeralSettingTimestamp,omitempty"`
}

func (c *ContextInfo) isEmpty() bool {
	return c == nil || (c.StanzaID == "" && c.Participant == "" && c.RemoteJID == "" &&
		len(c.MentionedJID) == 0 && !c.IsForwarded && c.ForwardingScore == 0 &&
		c.Expiration == 0 && c.EphemeralSettingTimestamp == 0)
}

// --- List ---

type ListMessage struct {
	Title           string           `json:"title,omitempty"`
	Description     string           `json:"description,omitempty"`
	ButtonText      string           `json:"buttonText,omitempty"`
	ListType        ListType         `json:"listType"`
	Sections        []Section        `json:"sections,omitempty"`
	ProductListInfo *ProductListInfo `json:"productListInfo,omitempty"`
	FooterText      string           `json:"footerText,omitempty"`
	ContextInfo     *ContextInfo     `json:"contextInfo"`
}

type Section struct {
	Title string `json:"title,omitempty"`
	Rows  []Row  `json:"rows"`
}

type Row struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	RowID       string `json:"rowId"`
}

type ProductListInfo struct {
	ProductSections  []ProductSection        `json:"productSections"`
	HeaderImage      *ProductListHeaderImage `json:"headerImage"`
	BusinessOwnerJID JID                     `json:"businessOwnerJid,omitempty"`
}

type ProductSection struct {
	Title    string    `json:"title,omitempty"`
	Products []Product `json:"products"`
}

type Product struct {
	ProductID string `json:"productId"`
}

// ProductListHeaderImage serializes a nil JPEGThumbnail as null: the header
// is sent without an image rather than without the field.
type ProductListHeaderImage struct {
	ProductID     string `json:"productId"`
	JPEGThumbnail []byte `json:"jpegThumbnail"`
}

// --- Buttons ---

type ButtonsMessage struct {
	// Text is the header text, used when HeaderType is TEXT.
	Text        string            `json:"text,omitempty"`
	ContentText string            `json:"contentText,omitempty"`
	FooterText  string            `json:"footerText,omitempty"`
	ContextInfo *ContextInfo      `json:"contextInfo"`
	Buttons     []Button          `json:"buttons"`
	HeaderType  ButtonsHeaderType `json:"headerType"`
}

type Button struct {
	ButtonID   string      `json:"buttonId"`
	ButtonText *ButtonText `json:"buttonText,omitempty"`
	Type       ButtonType  `json:"type"`
}

type ButtonText struct {
	DisplayText string `json:"displayText"`
}

// --- Template ---

type TemplateMessage struct {
	ContextInfo      *ContextInfo             `json:"contextInfo"`
	FourRowTemplate  *HydratedFourRowTemplate `json:"fourRowTemplate,omitempty"`
	HydratedTemplate *HydratedFourRowTemplate `json:"hydratedTemplate,omitempty"`
}

type HydratedFourRowTemplate struct {
	HydratedTitleText   string                   `json:"hydratedTitleText,omitempty"`
	HydratedContentText string                   `json:"hydratedContentText,omitempty"`
	HydratedFooterText  string                   `json:"hydratedFooterText,omitempty"`
	HydratedButtons     []HydratedTemplateButton `json:"hydratedButtons"`
	TemplateID          string                   `json:"templateId,omitempty"`
}

// HydratedTemplateButton holds exactly one of the three button kinds.
type HydratedTemplateButton struct {
	Index            uint32                    `json:"index"`
	QuickReplyButton *HydratedQuickReplyButton `json:"quickReplyButton,omitempty"`
	URLButton        *HydratedURLButton        `json:"urlButton,omitempty"`
	CallButton       *HydratedCallButton       `json:"callButton,omitempty"`
}

type HydratedQuickReplyButton struct {
	DisplayText string `json:"displayText"`
	ID          string `json:"id"`
}

type HydratedURLButton struct {
	DisplayText string `json:"displayText"`
	URL         string `json:"url"`
}

type HydratedCallButton struct {
	DisplayText string `json:"displayText"`
	PhoneNumber string `json:"phoneNumber"`
}

// --- Native flow interactive ---

type InteractiveMessage struct {
	Header            *InteractiveHeader `json:"header,omitempty"`
	Body              *InteractiveBody   `json:"body,omitempty"`
	Footer            *InteractiveFooter `json:"footer,omitempty"`
	ContextInfo       *ContextInfo       `json:"contextInfo"`
	NativeFlowMessage *NativeFlowMessage `json:"nativeFlowMessage"`
}

type InteractiveHeader struct {
	Title              string `json:"title,omitempty"`
	Subtitle           string `json:"subtitle,omitempty"`
	HasMediaAttachment bool   `json:"hasMediaAttachment"`
}

type InteractiveBody struct {
	Text string `json:"text"`
}

type InteractiveFooter struct {
	Text string `json:"text"`
}

type NativeFlowMessage struct {
	Buttons           []NativeFlowButton `json:"buttons"`
	MessageParamsJSON string             `json:"messageParamsJson,omitempty"`
	MessageVersion    int32              `json:"messageVersion,omitempty"`
}

// NativeFlowButton carries its parameters as a JSON string, not an object.
type NativeFlowButton struct {
	Name             string `json:"name"`
	ButtonParamsJSON string `json:"buttonParamsJson"`
}

// --- Plain text ---

type ExtendedTextMessage struct {
	Text        string       `json:"text"`
	ContextInfo *ContextInfo `json:"contextInfo,omitempty"`
}

// --- Replies to interactive messages ---

type ListResponseMessage struct {
	Title             string             `json:"title,omitempty"`
	ListType          ListType           `json:"listType,omitempty"`
	SingleSelectReply *SingleSelectReply `json:"singleSelectReply,omitempty"`
	ContextInfo       *ContextInfo       `json:"contextInfo,omitempty"`
	Description       string             `json:"description,omitempty"`
}

type SingleSelectReply struct {
	SelectedRowID string `json:"selectedRowId"`
}

type ButtonsResponseMessage struct {
	SelectedButtonID    string       `json:"selectedButtonId"`
	SelectedDisplayText string       `json:"selectedDisplayText,omitempty"`
	ContextInfo         *ContextInfo `json:"contextInfo,omitempty"`
}

type TemplateButtonReplyMessage struct {
	SelectedID          string       `json:"selectedId"`
	SelectedDisplayText string       `json:"selectedDisplayText,omitempty"`
	ContextInfo         *ContextInfo `json:"contextInfo,omitempty"`
	SelectedIndex       uint32       `json:"selectedIndex,omitempty"`
}

type InteractiveResponseMessage struct {
	Body                      *InteractiveBody    `json:"body,omitempty"`
	NativeFlowResponseMessage *NativeFlowResponse `json:"nativeFlowResponseMessage,omitempty"`
	ContextInfo               *ContextInfo        `json:"contextInfo,omitempty"`
}

type NativeFlowResponse struct {
	Name       string `json:"name"`
	ParamsJSON string `json:"paramsJson"`
	Version    int32  `json:"version,omitempty"`
}

package whatsapp

import "encoding/json"

// Native flow button names understood by recipients.
const (
	FlowQuickReply = "quick_reply"
	FlowCTAURL     = "cta_url"
	FlowCTACopy    = "cta_copy"
	FlowCTACall    = "cta_call"
)

// buttonParams is serialized into NativeFlowButton.ButtonParamsJSON.
type buttonParams struct {
	ID          string `json:"id,omitempty"`
	DisplayText string `json:"display_text,omitempty"`
	URL         string `json:"url,omitempty"`
	MerchantURL string `json:"merchant_url,omitempty"`
	CopyCode    string `json:"copy_code,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

func nativeFlowButton(name string, p buttonParams) NativeFlowButton {
	// buttonParams has only string fields, Marshal cannot fail
	data, _ := json.Marshal(p)
	return NativeFlowButton{Name: name, ButtonParamsJSON: string(data)}
}

func QuickReplyButton(id, text string) NativeFlowButton {
	return nativeFlowButton(FlowQuickReply, buttonParams{ID: id, DisplayText: text})
}

func URLButton(text, url string) NativeFlowButton {
	return nativeFlowButton(FlowCTAURL, buttonParams{DisplayText: text, URL: url, MerchantURL: url})
}

func CopyCodeButton(text, code string) NativeFlowButton {
	return nativeFlowButton(FlowCTACopy, buttonParams{DisplayText: text, CopyCode: code})
}

func CallButton(text, phone string) NativeFlowButton {
	return nativeFlowButton(FlowCTACall, buttonParams{DisplayText: text, PhoneNumber: phone})
}

// ResponseButton builds a reply button for a buttons message.
func ResponseButton(id, text string) Button {
	return Button{ButtonID: id, ButtonText: &ButtonText{DisplayText: text}, Type: ButtonTypeResponse}
}

package whatsapp

import (
	"encoding/json"
	"fmt"
	"slices"
)

// FieldSchema describes one JSON value of the protocol's message schema.
// The receiving side ignores unknown or misspelled fields instead of
// failing, so every payload can be checked against this before it leaves.
type FieldSchema struct {
	Type       string // object, array, string, bytes, number, boolean, enum
	Properties map[string]*FieldSchema
	Required   []string
	Enum       []string
	Items      *FieldSchema
	Nullable   bool
}

var (
	stringField = &FieldSchema{Type: "string"}
	numberField = &FieldSchema{Type: "number"}
	boolField   = &FieldSchema{Type: "boolean"}
)

func object(props map[string]*FieldSchema, required ...string) *FieldSchema {
	return &FieldSchema{Type: "object", Properties: props, Required: required}
}

func arrayOf(items *FieldSchema) *FieldSchema {
	return &FieldSchema{Type: "array", Items: items}
}

func enumOf(names map[int32]string) *FieldSchema {
	values := make([]string, 0, len(names))
	for _, n := range names {
		values = append(values, n)
	}
	slices.Sort(values)
	return &FieldSchema{Type: "enum", Enum: values}
}

var contextInfoSchema = object(map[string]*FieldSchema{
	"stanzaId":                  stringField,
	"participant":               stringField,
	"remoteJid":                 stringField,
	"mentionedJid":              arrayOf(stringField),
	"isForwarded":               boolField,
	"forwardingScore":           numberField,
	"expiration":                numberField,
	"ephemeralSettingTimestamp": numberField,
})

var listMessageSchema = object(map[string]*FieldSchema{
	"title":       stringField,
	"description": stringField,
	"buttonText":  stringField,
	"listType":    enumOf(listTypeNames),
	"sections": arrayOf(object(map[string]*FieldSchema{
		"title": stringField,
		"rows": arrayOf(object(map[string]*FieldSchema{
			"title":       stringField,
			"description": stringField,
			"rowId":       stringField,
		}, "title", "rowId")),
	}, "rows")),
	"productListInfo": object(map[string]*FieldSchema{
		"productSections": arrayOf(object(map[string]*FieldSchema{
			"title": stringField,
			"products": arrayOf(object(map[string]*FieldSchema{
				"productId": stringField,
			}, "productId")),
		}, "products")),
		"headerImage": object(map[string]*FieldSchema{
			"productId":     stringField,
			"jpegThumbnail": {Type: "bytes", Nullable: true},
		}, "productId", "jpegThumbnail"),
		"businessOwnerJid": stringField,
	}, "productSections", "headerImage"),
	"footerText":  stringField,
	"contextInfo": contextInfoSchema,
}, "listType", "contextInfo")

var buttonsMessageSchema = object(map[string]*FieldSchema{
	"text":        stringField,
	"contentText": stringField,
	"footerText":  stringField,
	"contextInfo": contextInfoSchema,
	"buttons": arrayOf(object(map[string]*FieldSchema{
		"buttonId":   stringField,
		"buttonText": object(map[string]*FieldSchema{"displayText": stringField}, "displayText"),
		"type":       enumOf(buttonTypeNames),
	}, "buttonId", "type")),
	"headerType": enumOf(buttonsHeaderTypeNames),
}, "contextInfo", "buttons", "headerType")

var hydratedTemplateSchema = object(map[string]*FieldSchema{
	"hydratedTitleText":   stringField,
	"hydratedContentText": stringField,
	"hydratedFooterText":  stringField,
	"templateId":          stringField,
	"hydratedButtons": arrayOf(object(map[string]*FieldSchema{
		"index": numberField,
		"quickReplyButton": object(map[string]*FieldSchema{
			"displayText": stringField,
			"id":          stringField,
		}, "displayText", "id"),
		"urlButton": object(map[string]*FieldSchema{
			"displayText": stringField,
			"url":         stringField,
		}, "displayText", "url"),
		"callButton": object(map[string]*FieldSchema{
			"displayText": stringField,
			"phoneNumber": stringField,
		}, "displayText", "phoneNumber"),
	}, "index")),
}, "hydratedButtons")

var templateMessageSchema = object(map[string]*FieldSchema{
	"contextInfo":      contextInfoSchema,
	"fourRowTemplate":  hydratedTemplateSchema,
	"hydratedTemplate": hydratedTemplateSchema,
}, "contextInfo")

var interactiveMessageSchema = object(map[string]*FieldSchema{
	"header": object(map[string]*FieldSchema{
		"title":              stringField,
		"subtitle":           stringField,
		"hasMediaAttachment": boolField,
	}),
	"body":        object(map[string]*FieldSchema{"text": stringField}, "text"),
	"footer":      object(map[string]*FieldSchema{"text": stringField}, "text"),
	"contextInfo": contextInfoSchema,
	"nativeFlowMessage": object(map[string]*FieldSchema{
		"buttons": arrayOf(object(map[string]*FieldSchema{
			"name":             stringField,
			"buttonParamsJson": stringField,
		}, "name", "buttonParamsJson")),
		"messageParamsJson": stringField,
		"messageVersion":    numberField,
	}, "buttons"),
}, "contextInfo", "nativeFlowMessage")

var extendedTextMessageSchema = object(map[string]*FieldSchema{
	"text":        stringField,
	"contextInfo": contextInfoSchema,
}, "text")

// MessageSchema covers the outgoing variants of the envelope.
var MessageSchema = object(map[string]*FieldSchema{
	KeyListMessage:         listMessageSchema,
	KeyButtonsMessage:      buttonsMessageSchema,
	KeyTemplateMessage:     templateMessageSchema,
	KeyInteractiveMessage:  interactiveMessageSchema,
	KeyExtendedTextMessage: extendedTextMessageSchema,
})

// ValidateMessage checks that m has exactly one populated variant and that
// its serialized form matches MessageSchema. Failures are schema_mismatch
// BuildErrors.
func ValidateMessage(m *Message) error {
	if m == nil {
		return schemaError("message", "is nil")
	}
	if n := m.populated(); n != 1 {
		return schemaError("message", "must have exactly one variant, has %d", n)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return &BuildError{Type: ErrSchemaMismatch, Field: "message", Message: "not serializable", Err: err}
	}
	return ValidateJSON(data)
}

// ValidateContent wraps c in an envelope and validates it.
func ValidateContent(c Content) error {
	m, err := Wrap(c)
	if err != nil {
		return &BuildError{Type: ErrSchemaMismatch, Field: "message", Message: "cannot wrap", Err: err}
	}
	return ValidateMessage(m)
}

// ValidateJSON validates an already serialized envelope.
func ValidateJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return &BuildError{Type: ErrSchemaMismatch, Field: "message", Message: "invalid JSON", Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return schemaError("message", "must be an object")
	}
	if len(obj) != 1 {
		return schemaError("message", "must have exactly one variant, has %d", len(obj))
	}
	return MessageSchema.validate("", v)
}

func (s *FieldSchema) validate(path string, v any) error {
	if v == nil {
		if s.Nullable {
			return nil
		}
		return schemaError(path, "is null")
	}

	switch s.Type {
	case "object":
		obj, ok := v.(map[string]any)
		if !ok {
			return schemaError(path, "must be an object")
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			prop, ok := s.Properties[k]
			if !ok {
				return schemaError(joinPath(path, k), "unknown field")
			}
			if err := prop.validate(joinPath(path, k), obj[k]); err != nil {
				return err
			}
		}
		for _, req := range s.Required {
			if _, ok := obj[req]; !ok {
				return schemaError(joinPath(path, req), "required field missing")
			}
		}
	case "array":
		arr, ok := v.([]any)
		if !ok {
			return schemaError(path, "must be an array")
		}
		for i, item := range arr {
			if err := s.Items.validate(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
	case "string", "bytes":
		if _, ok := v.(string); !ok {
			return schemaError(path, "must be a string")
		}
	case "number":
		if _, ok := v.(float64); !ok {
			return schemaError(path, "must be a number")
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return schemaError(path, "must be a boolean")
		}
	case "enum":
		name, ok := v.(string)
		if !ok || !slices.Contains(s.Enum, name) {
			return schemaError(path, "must be one of %v", s.Enum)
		}
	default:
		return schemaError(path, "unknown schema type %q", s.Type)
	}
	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

package whatsapp

import (
	"encoding/json"
	"fmt"
)

// Enum values serialize by name, the way the protocol's JSON mapping does.
// Numbers are accepted on input.

type ListType int32

const (
	ListTypeUnknown      ListType = 0
	ListTypeSingleSelect ListType = 1
	ListTypeProductList  ListType = 2
)

var listTypeNames = map[int32]string{
	0: "UNKNOWN",
	1: "SINGLE_SELECT",
	2: "PRODUCT_LIST",
}

func (t ListType) String() string { return enumString(listTypeNames, int32(t)) }

func (t ListType) MarshalJSON() ([]byte, error) { return marshalEnum(listTypeNames, int32(t)) }

func (t *ListType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(listTypeNames, data)
	*t = ListType(v)
	return err
}

type ButtonsHeaderType int32

const (
	ButtonsHeaderUnknown  ButtonsHeaderType = 0
	ButtonsHeaderEmpty    ButtonsHeaderType = 1
	ButtonsHeaderText     ButtonsHeaderType = 2
	ButtonsHeaderDocument ButtonsHeaderType = 3
	ButtonsHeaderImage    ButtonsHeaderType = 4
	ButtonsHeaderVideo    ButtonsHeaderType = 5
	ButtonsHeaderLocation ButtonsHeaderType = 6
)

var buttonsHeaderTypeNames = map[int32]string{
	0: "UNKNOWN",
	1: "EMPTY",
	2: "TEXT",
	3: "DOCUMENT",
	4: "IMAGE",
	5: "VIDEO",
	6: "LOCATION",
}

func (t ButtonsHeaderType) String() string { return enumString(buttonsHeaderTypeNames, int32(t)) }

func (t ButtonsHeaderType) MarshalJSON() ([]byte, error) {
	return marshalEnum(buttonsHeaderTypeNames, int32(t))
}

func (t *ButtonsHeaderType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(buttonsHeaderTypeNames, data)
	*t = ButtonsHeaderType(v)
	return err
}

type ButtonType int32

const (
	ButtonTypeUnknown    ButtonType = 0
	ButtonTypeResponse   ButtonType = 1
	ButtonTypeNativeFlow ButtonType = 2
)

var buttonTypeNames = map[int32]string{
	0: "UNKNOWN",
	1: "RESPONSE",
	2: "NATIVE_FLOW",
}

func (t ButtonType) String() string { return enumString(buttonTypeNames, int32(t)) }

func (t ButtonType) MarshalJSON() ([]byte, error) { return marshalEnum(buttonTypeNames, int32(t)) }

func (t *ButtonType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(buttonTypeNames, data)
	*t = ButtonType(v)
	return err
}

func enumString(names map[int32]string, v int32) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("%d", v)
}

func marshalEnum(names map[int32]string, v int32) ([]byte, error) {
	name, ok := names[v]
	if !ok {
		return nil, fmt.Errorf("unknown enum value %d", v)
	}
	return json.Marshal(name)
}

func unmarshalEnum(names map[int32]string, data []byte) (int32, error) {
	if string(data) == "null" {
		return 0, nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		for v, n := range names {
			if n == name {
				return v, nil
			}
		}
		return 0, fmt.Errorf("unknown enum name %q", name)
	}

	var v int32
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("enum must be a name or number: %s", data)
	}
	if _, ok := names[v]; !ok {
		return 0, fmt.Errorf("unknown enum value %d", v)
	}
	return v, nil
}

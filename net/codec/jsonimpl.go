package codec

import (
	"encoding/json"
	"fmt"
	"math"
)

// NewJSONCodec creates a new codec using json encoding. The encoding is
// compact (no embedded whitespace) and deterministic: struct field order is
// fixed for queries, object keys are sorted for responses.
func NewJSONCodec() ICodec {
	return &jsonCodecImpl{}
}

// jsonCodecImpl implements the ICodec interface using json encoding
type jsonCodecImpl struct {
}

// wireQuery fixes the field order of an encoded Query.
type wireQuery struct {
	RequestKey uint8    `json:"requestKey"`
	Query      []string `json:"query"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c *jsonCodecImpl) Encode(msg Message) ([]byte, error) {
	switch msg.Kind {
	case KindClose:
		return json.Marshal(CloseSentinel)
	case KindQuery:
		return json.Marshal(wireQuery{
			RequestKey: msg.RequestKey,
			Query:      msg.Query,
		})
	case KindResponse:
		obj := make(map[string]any, len(msg.Values)+1)
		for name, value := range msg.Values {
			obj[name] = value
		}
		obj[fieldResponseKey] = msg.ResponseKey
		return json.Marshal(obj)
	default:
		return nil, fmt.Errorf("cannot encode message of kind %s", msg.Kind)
	}
}

func (c *jsonCodecImpl) Decode(b []byte, msg *Message) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	switch v := raw.(type) {
	case string:
		if v != CloseSentinel {
			return fmt.Errorf("unknown sentinel %q", v)
		}
		*msg = NewClose()
		return nil

	case map[string]any:
		if query, ok := v[fieldQuery]; ok {
			return decodeQuery(v, query, msg)
		}
		if _, ok := v[fieldResponseKey]; ok {
			return decodeResponse(v, msg)
		}
		return fmt.Errorf("object is neither a query nor a response")

	default:
		return fmt.Errorf("message shape not recognized (%T)", raw)
	}
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func decodeQuery(obj map[string]any, query any, msg *Message) error {
	key, err := decodeKey(obj[fieldRequestKey])
	if err != nil {
		return fmt.Errorf("invalid %s: %w", fieldRequestKey, err)
	}

	list, ok := query.([]any)
	if !ok {
		return fmt.Errorf("query field is not a list (%T)", query)
	}

	names := make([]string, 0, len(list))
	for _, entry := range list {
		name, ok := entry.(string)
		if !ok {
			return fmt.Errorf("query name is not a string (%T)", entry)
		}
		names = append(names, name)
	}

	*msg = NewQuery(key, names)
	return nil
}

func decodeResponse(obj map[string]any, msg *Message) error {
	key, err := decodeKey(obj[fieldResponseKey])
	if err != nil {
		return fmt.Errorf("invalid %s: %w", fieldResponseKey, err)
	}

	values := make(map[string]any, len(obj)-1)
	for name, value := range obj {
		if name == fieldResponseKey {
			continue
		}
		values[name] = value
	}

	*msg = NewResponse(key, values)
	return nil
}

// decodeKey converts a decoded json number to a correlation key in [0,255].
func decodeKey(v any) (uint8, error) {
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("not a number (%T)", v)
	}
	if n != math.Trunc(n) || n < 0 || n > 255 {
		return 0, fmt.Errorf("value %v outside [0,255]", n)
	}
	return uint8(n), nil
}

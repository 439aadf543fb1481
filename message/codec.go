package message

import (
	"bytes"
	"encoding/json"
	"reflect"

	gqlwserror "github.com/onichandame/gql-ws-server/error"
)

type rawMessage struct {
	Type    *string         `json:"type"`
	ID      *string         `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses one text frame into a message and validates the presence of
// id and payload for its type. All failures are *gqlwserror.DecodeError.
func Decode(text []byte) (*Message, error) {
	var raw rawMessage
	if err := json.Unmarshal(text, &raw); err != nil {
		return nil, gqlwserror.WrapDecodeError(err, `message is not a valid JSON object`)
	}
	if raw.Type == nil {
		return nil, gqlwserror.NewDecodeError(`message is missing the 'type' property`)
	}
	msg := &Message{Type: Type(*raw.Type), ID: raw.ID}
	if !msg.Type.Valid() {
		return nil, gqlwserror.NewDecodeError(`invalid message 'type' property %q`, *raw.Type)
	}
	if p := bytes.TrimSpace(raw.Payload); len(p) > 0 && !bytes.Equal(p, []byte(`null`)) {
		var payload interface{}
		if err := json.Unmarshal(p, &payload); err != nil {
			return nil, gqlwserror.WrapDecodeError(err, `%q message has an invalid 'payload' property`, msg.Type)
		}
		msg.Payload = payload
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if msg.Type == Subscribe {
		p, err := ParseSubscribePayload(msg.Payload)
		if err != nil {
			return nil, err
		}
		msg.subscribe = p
	}
	return msg, nil
}

// Validate checks the id and payload presence rules of the message type.
func (m *Message) Validate() error {
	if !m.Type.Valid() {
		return gqlwserror.NewDecodeError(`invalid message 'type' property %q`, m.Type)
	}
	switch {
	case m.Type.OperationScoped() && (m.ID == nil || *m.ID == ``):
		return gqlwserror.NewDecodeError(`%q message requires a non-empty 'id' property`, m.Type)
	case m.Type.ConnectionScoped() && m.ID != nil:
		return gqlwserror.NewDecodeError(`%q message must not have an 'id' property`, m.Type)
	}
	if m.Payload == nil {
		if m.Type == Subscribe {
			return gqlwserror.NewDecodeError(`%q message requires a 'payload' property`, m.Type)
		}
		return nil
	}
	switch m.Payload.(type) {
	case map[string]interface{}:
		return nil
	case []interface{}:
		if m.Type == Error {
			return nil
		}
	}
	return gqlwserror.NewDecodeError(`%q message expects the 'payload' property to be an object, but got %T`, m.Type, m.Payload)
}

// Encode serializes a message. The id is written iff it is non-nil and the
// payload iff it is non-nil.
func Encode(t Type, id *string, payload interface{}) ([]byte, error) {
	if isNil(payload) {
		payload = nil
	}
	return json.Marshal(&Message{Type: t, ID: id, Payload: payload})
}

// Encode serializes the message with the same rules as the package level Encode.
func (m *Message) Encode() ([]byte, error) {
	return Encode(m.Type, m.ID, m.Payload)
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Ptr, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

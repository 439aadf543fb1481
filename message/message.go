package message

import (
	"github.com/graphql-go/graphql/language/ast"
)

type Type string

const (
	ConnectionInit Type = `connection_init`
	ConnectionAck  Type = `connection_ack`
	Ping           Type = `ping`
	Pong           Type = `pong`
	Subscribe      Type = `subscribe`
	Next           Type = `next`
	Error          Type = `error`
	Complete       Type = `complete`
)

var types = map[Type]struct{}{
	ConnectionInit: {},
	ConnectionAck:  {},
	Ping:           {},
	Pong:           {},
	Subscribe:      {},
	Next:           {},
	Error:          {},
	Complete:       {},
}

// Valid reports whether t is one of the protocol message types.
func (t Type) Valid() bool {
	_, ok := types[t]
	return ok
}

// ConnectionScoped reports whether messages of type t must not carry an id.
func (t Type) ConnectionScoped() bool {
	return t == ConnectionInit || t == ConnectionAck
}

// OperationScoped reports whether messages of type t must carry an id.
func (t Type) OperationScoped() bool {
	switch t {
	case Subscribe, Next, Error, Complete:
		return true
	}
	return false
}

type Message struct {
	Type    Type    `json:"type"`
	Payload Payload `json:"payload,omitempty"`
	ID      *string `json:"id,omitempty"`

	subscribe *SubscribePayload
}

type Payload interface{}

// IDValue returns the id or an empty string when absent.
func (m *Message) IDValue() string {
	if m.ID == nil {
		return ``
	}
	return *m.ID
}

// Object returns the payload as a JSON object, nil when absent or not an object.
func (m *Message) Object() map[string]interface{} {
	obj, _ := m.Payload.(map[string]interface{})
	return obj
}

// SubscribePayload returns the parsed payload of a subscribe message. Decode
// fills it in, so it is only nil for messages that were built by hand.
func (m *Message) SubscribePayload() (*SubscribePayload, error) {
	if m.subscribe != nil {
		return m.subscribe, nil
	}
	p, err := ParseSubscribePayload(m.Payload)
	if err != nil {
		return nil, err
	}
	m.subscribe = p
	return p, nil
}

type SubscribePayload struct {
	OperationName string                 `json:"operationName,omitempty"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	Extensions    map[string]interface{} `json:"extensions,omitempty"`

	// Document is the parsed query, nil when the query does not parse.
	Document *ast.Document `json:"-"`
}

package message

import (
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
	goutils "github.com/onichandame/go-utils"
	gqlwserror "github.com/onichandame/gql-ws-server/error"
)

// ParseSubscribePayload converts the payload of a subscribe message and parses
// its query. A query with syntax errors is not a decode failure: Document stays
// nil and the execution engine reports the error to the client.
func ParseSubscribePayload(payload Payload) (*SubscribePayload, error) {
	pmap, ok := payload.(map[string]interface{})
	if !ok {
		return nil, gqlwserror.NewDecodeError(`%q message expects the 'payload' property to be an object, but got %T`, Subscribe, payload)
	}
	if _, ok := pmap[`query`].(string); !ok {
		return nil, gqlwserror.NewDecodeError(`%q message payload requires a string 'query' property`, Subscribe)
	}
	if v, ok := pmap[`operationName`]; ok && v != nil {
		if _, ok := v.(string); !ok {
			return nil, gqlwserror.NewDecodeError(`%q message payload expects 'operationName' to be a string, but got %T`, Subscribe, v)
		}
	}
	for _, key := range []string{`variables`, `extensions`} {
		if v, ok := pmap[key]; ok && v != nil {
			if _, ok := v.(map[string]interface{}); !ok {
				return nil, gqlwserror.NewDecodeError(`%q message payload expects '%s' to be an object, but got %T`, Subscribe, key, v)
			}
		}
	}
	var p SubscribePayload
	if err := goutils.Try(func() { goutils.UnmarshalJSONFromMap(pmap, &p) }); err != nil {
		return nil, gqlwserror.WrapDecodeError(err, `payload of subscribe request invalid`)
	}
	p.Document, _ = parseQuery(p.Query)
	return &p, nil
}

func parseQuery(query string) (*ast.Document, error) {
	return parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{
			Body: []byte(query),
			Name: `GraphQL request`,
		}),
	})
}

// Operation returns the operation selected by OperationName, or the only
// operation of the document when no name is given. It returns nil when the
// selection is ambiguous or the document did not parse.
func (p *SubscribePayload) Operation() *ast.OperationDefinition {
	if p.Document == nil {
		return nil
	}
	var operation *ast.OperationDefinition
	for _, def := range p.Document.Definitions {
		def, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if p.OperationName == `` {
			if operation != nil {
				return nil
			}
			operation = def
			continue
		}
		if name := def.GetName(); name != nil && name.Value == p.OperationName {
			return def
		}
	}
	return operation
}

// HasSubscriptionOperation reports whether the requested operation is a
// subscription, as opposed to a query or mutation.
func (p *SubscribePayload) HasSubscriptionOperation() bool {
	op := p.Operation()
	return op != nil && op.Operation == ast.OperationTypeSubscription
}

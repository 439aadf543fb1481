package gqlwserror

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql/gqlerrors"
)

// CloseCode is the numeric code carried by a connection-level close frame.
type CloseCode int

const (
	BadRequest                      CloseCode = 4400
	SubprotocolNotAcceptable        CloseCode = 4406
	ConnectionInitialisationTimeout CloseCode = 4408
	SubscriberAlreadyExists         CloseCode = 4409
	TooManyInitialisationRequests   CloseCode = 4429
	InternalServerError             CloseCode = 4500
)

var closeReasons = map[CloseCode]string{
	BadRequest:                      `Bad request`,
	SubprotocolNotAcceptable:        `Subprotocol not acceptable`,
	ConnectionInitialisationTimeout: `Connection initialisation timeout`,
	SubscriberAlreadyExists:         `Subscriber already exists`,
	TooManyInitialisationRequests:   `Too many initialisation requests`,
	InternalServerError:             `Internal server error`,
}

func (c CloseCode) String() string {
	if reason, ok := closeReasons[c]; ok {
		return reason
	}
	return fmt.Sprintf(`close code %d`, int(c))
}

// HandlableError is answered with an error message addressed to the operation
// and leaves the connection open.
type HandlableError struct {
	ID     string
	Errors gqlerrors.FormattedErrors
}

func NewHandlableError(id string, errs ...error) *HandlableError {
	var err HandlableError
	err.ID = id
	err.Errors = gqlerrors.FormatErrors(errs...)
	return &err
}

func (e *HandlableError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf(`operation %v failed`, e.ID)
	}
	return e.Errors[0].Message
}

// FatalError terminates the connection with a close frame.
type FatalError struct {
	Code   CloseCode
	Reason string
}

func NewFatalError(code CloseCode, reason string) *FatalError {
	var err FatalError
	err.Code = code
	err.Reason = reason
	if err.Reason == `` {
		err.Reason = code.String()
	}
	return &err
}

func (e *FatalError) Error() string {
	return fmt.Sprintf(`%d: %s`, int(e.Code), e.Reason)
}

// CloseMessage formats the error as the payload of a websocket close frame.
func (e *FatalError) CloseMessage() []byte {
	return websocket.FormatCloseMessage(int(e.Code), truncateReason(e.Reason))
}

// control frame payloads are limited to 125 bytes, 2 of which hold the code
const maxReasonLen = 123

func truncateReason(reason string) string {
	if len(reason) <= maxReasonLen {
		return reason
	}
	return reason[:maxReasonLen]
}

// DecodeError reports an envelope that could not be decoded. It is recovered
// locally by answering with an error message.
type DecodeError struct {
	msg string
	err error
}

func NewDecodeError(format string, args ...interface{}) *DecodeError {
	return &DecodeError{msg: fmt.Sprintf(format, args...)}
}

// WrapDecodeError keeps the underlying cause reachable through errors.Unwrap.
func WrapDecodeError(err error, format string, args ...interface{}) *DecodeError {
	return &DecodeError{msg: fmt.Sprintf(format, args...), err: err}
}

func (e *DecodeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf(`%s: %v`, e.msg, e.err)
	}
	return e.msg
}

func (e *DecodeError) Unwrap() error { return e.err }

func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func IsFatalError(err error) (*FatalError, bool) {
	var fe *FatalError
	ok := errors.As(err, &fe)
	return fe, ok
}

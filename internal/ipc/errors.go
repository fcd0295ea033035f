package ipc

import (
	"errors"
	"fmt"
)

// Kind identifies the protocol step a call failed at.
type Kind int

const (
	ConnectionFailure Kind = iota + 1
	SendFailure
	ReceiveFailure
	MalformedResponse
)

func (k Kind) String() string {
	switch k {
	case ConnectionFailure:
		return "connection failure"
	case SendFailure:
		return "send failure"
	case ReceiveFailure:
		return "receive failure"
	case MalformedResponse:
		return "malformed response"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is. A *CallError matches the sentinel of its Kind;
// an *ApplicationError matches ErrApplication.
var (
	ErrConnection        = errors.New("daemon connection failed")
	ErrSend              = errors.New("sending request failed")
	ErrReceive           = errors.New("receiving response failed")
	ErrMalformedResponse = errors.New("malformed daemon response")
	ErrApplication       = errors.New("daemon reported an error")
)

func (k Kind) sentinel() error {
	switch k {
	case ConnectionFailure:
		return ErrConnection
	case SendFailure:
		return ErrSend
	case ReceiveFailure:
		return ErrReceive
	case MalformedResponse:
		return ErrMalformedResponse
	default:
		return nil
	}
}

// CallError is a transport-level failure of a single call.
type CallError struct {
	Kind   Kind
	Socket string
	Err    error
}

func (e *CallError) Error() string {
	switch e.Kind {
	case ConnectionFailure:
		return fmt.Sprintf("connecting to daemon at %s: %v", e.Socket, e.Err)
	case SendFailure:
		return fmt.Sprintf("sending request: %v", e.Err)
	case ReceiveFailure:
		return fmt.Sprintf("reading response: %v", e.Err)
	case MalformedResponse:
		return fmt.Sprintf("parsing response: %v", e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *CallError) Unwrap() error { return e.Err }

func (e *CallError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// ApplicationError means the transport worked but the daemon reported a
// failure in the response's error field.
type ApplicationError struct {
	Function string
	Message  string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("daemon %s: %s", e.Function, e.Message)
}

func (e *ApplicationError) Is(target error) bool { return target == ErrApplication }

// KindOf returns the failure kind of err, or 0 when err is not a *CallError.
func KindOf(err error) Kind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

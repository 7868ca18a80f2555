package models

import (
	"errors"
	"fmt"
)

// Kind classifies failures so handlers can map them to envelope codes
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindTransport
	KindRecognitionFailed
	KindMalformedResponse
	KindTranscode
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindTransport:
		return "TransportError"
	case KindRecognitionFailed:
		return "RecognitionFailed"
	case KindMalformedResponse:
		return "MalformedResponse"
	case KindTranscode:
		return "TranscodeFailure"
	default:
		return "Unknown"
	}
}

// Error is a classified failure. Op names the operation ("asr.transcribe"),
// Msg is safe to show to users, Err is the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput reports a request that failed shape validation
func InvalidInput(op, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: msg}
}

// TransportError reports a network, timeout or non-2xx failure talking to a vendor
func TransportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// RecognitionFailed reports an ASR vendor that answered but could not recognize the audio
func RecognitionFailed(op, vendorMsg string) *Error {
	return &Error{Kind: KindRecognitionFailed, Op: op, Msg: vendorMsg}
}

// MalformedResponse reports a vendor answer missing the expected fields
func MalformedResponse(op, msg string) *Error {
	return &Error{Kind: KindMalformedResponse, Op: op, Msg: msg}
}

// TranscodeFailure reports that audio could not be normalized for recognition
func TranscodeFailure(op string, err error) *Error {
	return &Error{Kind: KindTranscode, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message of the first *Error in err's chain
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

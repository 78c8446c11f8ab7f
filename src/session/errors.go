package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("gateway session is not connected")
	ErrConnectionClosed = errors.New("gateway connection closed")
	ErrRequestTimeout   = errors.New("gateway request timed out")
	ErrMissingToken     = errors.New("gateway api token not configured")
)

// APIError is the error payload the gateway attaches to a reply frame.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	MsgType string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return fmt.Sprintf("gateway error %s", e.Code)
	}
	return "gateway error"
}

// edulearn/utils/types/chat.go
package types

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of a request body.
func Validate(v any) error {
	return validate.Struct(v)
}

// LoginRequest signs in by email alone; there are no passwords.
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RenameRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type AppendRequest struct {
	Text string `json:"text" validate:"required"`
}

// SocketRequest is the first frame a /chat/ws client sends.
type SocketRequest struct {
	Token     string `json:"token" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	Text      string `json:"text" validate:"required"`
}

type FrameType string

const (
	FramePending FrameType = "pending"
	FrameMessage FrameType = "message"
	FrameDone    FrameType = "done"
	FrameError   FrameType = "error"
)

// SocketFrame is written by the server; Payload is set on message frames.
type SocketFrame struct {
	Type      FrameType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Error     string    `json:"error,omitempty"`
}


// Package llm holds the request, response and error types shared by the
// relay and the upstream completion client.
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ChatRequest is the inbound body posted by the chat widget.
type ChatRequest struct {
	// Messages is the decoded conversation, used for validation and logging.
	Messages []Message `json:"messages"`

	// RawMessages is the "messages" array exactly as received. This is what
	// is forwarded upstream so that per-message fields the relay does not
	// model survive the trip.
	RawMessages json.RawMessage `json:"-"`
}

// ErrEmptyBody is returned by ParseChatRequest for a zero-length body.
var ErrEmptyBody = errors.New("empty request body")

// ParseChatRequest decodes a widget request body. A missing "messages" field
// is not an error: the nil list is forwarded and the upstream decides.
func ParseChatRequest(body []byte) (*ChatRequest, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	var envelope struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding chat request: %w", err)
	}

	req := &ChatRequest{RawMessages: envelope.Messages}
	if len(envelope.Messages) > 0 {
		if err := json.Unmarshal(envelope.Messages, &req.Messages); err != nil {
			return nil, fmt.Errorf("decoding chat messages: %w", err)
		}
	}

	return req, nil
}

// ErrorResponse is the JSON body returned to the widget on any non-2xx.
type ErrorResponse struct {
	Error string `json:"error"`
}

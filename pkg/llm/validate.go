package llm

import "fmt"

// Limits bounds untrusted input before it is forwarded to the paid upstream.
// The zero value disables every check.
type Limits struct {
	// MaxMessages caps the conversation length. Zero means unbounded.
	MaxMessages int

	// MaxContentBytes caps the size of any single message content.
	// Zero means unbounded.
	MaxContentBytes int

	// StrictRoles rejects roles other than user, assistant and system.
	StrictRoles bool
}

// Enabled reports whether any check is configured.
func (l Limits) Enabled() bool {
	return l.MaxMessages > 0 || l.MaxContentBytes > 0 || l.StrictRoles
}

// Validate checks req against the limits. An empty conversation always
// passes; what to do with it is the upstream's call.
func (l Limits) Validate(req *ChatRequest) error {
	if l.MaxMessages > 0 && len(req.Messages) > l.MaxMessages {
		return &ValidationError{
			Reason: fmt.Sprintf("%d messages exceeds limit of %d", len(req.Messages), l.MaxMessages),
		}
	}

	for i, msg := range req.Messages {
		if l.StrictRoles && !KnownRole(msg.Role) {
			return &ValidationError{
				Reason: fmt.Sprintf("message %d has unrecognized role %q", i, msg.Role),
			}
		}
		if l.MaxContentBytes > 0 && len(msg.Content) > l.MaxContentBytes {
			return &ValidationError{
				Reason: fmt.Sprintf("message %d content is %d bytes, limit is %d", i, len(msg.Content), l.MaxContentBytes),
			}
		}
	}

	return nil
}

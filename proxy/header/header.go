// Package header sets the response headers the relay sends to the widget.
//
// The relay sits between the widget and the completion provider:
//
//	Widget <--> Relay <--> Upstream Provider
//
// and the two legs are independent. The upstream leg is owned by the
// completion client; this package only shapes what the widget sees.
package header

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UpstreamRequestIDHeader echoes the provider's request id so that a widget
// bug report can be matched to the provider's logs.
const UpstreamRequestIDHeader = "X-Upstream-Request-Id"

// maxRequestIDLen bounds the echoed id. Provider ids are far shorter.
const maxRequestIDLen = 128

// Handler manages headers on relay responses.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// SetClientResponseHeaders prepares a successful relay response. The body is
// the upstream JSON, so the content type is always JSON regardless of what
// the provider declared.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, upstreamRequestID string) {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderCacheControl, "no-store")

	if id := sanitizeRequestID(upstreamRequestID); id != "" {
		c.Set(UpstreamRequestIDHeader, id)
	}
}

// SetErrorResponseHeaders prepares a generic error response. Nothing from the
// upstream leg is echoed.
func (h *Handler) SetErrorResponseHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderCacheControl, "no-store")
}

// sanitizeRequestID drops ids that are oversized or carry control characters.
func sanitizeRequestID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxRequestIDLen {
		return ""
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return ""
		}
	}
	return id
}

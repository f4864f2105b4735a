package proxy

import (
	"time"

	"github.com/allie-chat/allieproxy/pkg/llm"
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3001")
	ListenAddr string

	// CORSOrigins is the comma separated list of origins allowed to call the
	// relay from a browser. Empty allows any origin.
	CORSOrigins string

	// UpstreamURL and Model describe the upstream for startup logging only.
	UpstreamURL string
	Model       string

	// Limits bounds inbound conversations. The zero value forwards everything.
	Limits llm.Limits

	// NotifyWorkers, NotifyQueueSize and NotifyTimeout size the notification
	// worker pool. Zero values use the pool defaults.
	NotifyWorkers   uint
	NotifyQueueSize uint
	NotifyTimeout   time.Duration
}

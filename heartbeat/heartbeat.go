// Package heartbeat pings an external uptime monitor after every
// confirmed publish. Strictly best-effort.
package heartbeat

import (
	"net/http"
	"time"

	"github.com/CataIana/solismqtt/logger"
)

// Pinger issues a GET to the configured uptime URI. A Pinger with an empty
// URI is a no-op.
type Pinger struct {
	uri    string
	client *http.Client
}

// New creates a pinger for the given uptime URI. uri may be empty.
func New(uri string) *Pinger {
	return &Pinger{
		uri:    uri,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify pings the uptime monitor. Failures are logged and swallowed; the
// heartbeat must never affect publish semantics.
func (p *Pinger) Notify() {
	if p.uri == "" {
		return
	}

	resp, err := p.client.Get(p.uri)
	if err != nil {
		logger.Warn("uptime ping failed: %v", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("uptime ping returned %s", resp.Status)
	}
}

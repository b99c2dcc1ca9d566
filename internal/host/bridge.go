// Package host provides the client for the extension host bridge, which
// relays popup messages to the background process and to tab content
// scripts over a Unix socket using NDJSON.
package host

import (
	"errors"

	"github.com/jwulff/trustguard/internal/protocol"
)

// Bridge operations.
const (
	OpActiveTab   = "activeTab"
	OpSendTab     = "sendTab"
	OpSendRuntime = "sendRuntime"
	OpSubscribe   = "subscribe"
)

// ErrNoActiveTab is returned when the host has no focused tab.
var ErrNoActiveTab = errors.New("no active tab")

// Tab is a browser tab as reported by the host.
type Tab struct {
	ID    int    `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// Request is sent from the popup to the bridge.
type Request struct {
	ID      string            `json:"id"`
	Op      string            `json:"op"`
	TabID   int               `json:"tabId,omitempty"`
	Message *protocol.Message `json:"message,omitempty"`
}

// Response is returned by the bridge for each request. Reply carries the
// recipient's answer for sendTab and sendRuntime.
type Response struct {
	ID    string          `json:"id,omitempty"`
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Tab   *Tab            `json:"tab,omitempty"`
	Reply *protocol.Reply `json:"reply,omitempty"`
}

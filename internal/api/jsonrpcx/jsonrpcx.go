// Package jsonrpcx encodes JSON-RPC 2.0 notifications for display clients
package jsonrpcx

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Version is the protocol version carried by every message
const Version = "2.0"

// JsonRpcNotification is a JSON-RPC 2.0 notification (no id, no reply)
type JsonRpcNotification struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewNotification creates a notification for method
func NewNotification(method string, params any) JsonRpcNotification {
	return JsonRpcNotification{Jsonrpc: Version, Method: method, Params: params}
}

// StreamWriter writes notifications as newline-delimited JSON. It is safe
// for concurrent use.
type StreamWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStreamWriter creates a writer over w
func NewStreamWriter(w io.Writer) *StreamWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &StreamWriter{enc: enc}
}

// Notify writes one notification line
func (s *StreamWriter) Notify(n JsonRpcNotification) error {
	if n.Jsonrpc == "" {
		n.Jsonrpc = Version
	}
	if n.Method == "" {
		return fmt.Errorf("notification method cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(n)
}

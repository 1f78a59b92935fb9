// Package transport implements the push connection to the telemetry
// server and the delivery-path selection between push, polling, and
// HTTP fallback.
package transport

import "encoding/json"

// Inbound message types.
const (
	MsgServerInfo       = "server_info"
	MsgServerRestarting = "server_restarting"
	MsgLogBatch         = "log_record_batch"
	MsgPong             = "si_pong"
)

// Outbound message types.
const (
	MsgRequestServerInfo = "request_server_info"
	MsgSubscribeLogs     = "subscribe_logs"
	MsgUnsubscribeLogs   = "unsubscribe_logs"
	MsgPing              = "si_ping"
)

// Envelope is the wire frame for both directions. Payload shape depends
// on Type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload carries log subscription parameters.
type SubscribePayload struct {
	Level string `json:"level"`
	Grep  string `json:"grep,omitempty"`
}

// PingPayload carries the client send time for RTT correlation.
type PingPayload struct {
	T int64 `json:"t"`
}

// Outbound is a typed message ready to send.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// RequestServerInfo asks the server for one snapshot.
func RequestServerInfo() Outbound {
	return Outbound{Type: MsgRequestServerInfo}
}

// SubscribeLogs requests a push log subscription at the given minimum
// level with an optional text filter.
func SubscribeLogs(level, grep string) Outbound {
	return Outbound{Type: MsgSubscribeLogs, Payload: SubscribePayload{Level: level, Grep: grep}}
}

// UnsubscribeLogs cancels the push log subscription.
func UnsubscribeLogs() Outbound {
	return Outbound{Type: MsgUnsubscribeLogs}
}

// Ping sends the current wall clock in milliseconds; the server echoes
// it back in si_pong.
func Ping(tMillis int64) Outbound {
	return Outbound{Type: MsgPing, Payload: PingPayload{T: tMillis}}
}

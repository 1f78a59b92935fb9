package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srvscope/srvscope/internal/errors"
)

func TestDispatchRoutesByType(t *testing.T) {
	var gotInfo, gotRestart, gotBatch bool
	var gotPong PingPayload
	var anyCount int

	c := NewConn("ws://unused", Handlers{
		OnEnvelope:   func(Envelope) { anyCount++ },
		OnServerInfo: func(json.RawMessage) { gotInfo = true },
		OnRestarting: func() { gotRestart = true },
		OnLogBatch:   func(json.RawMessage) { gotBatch = true },
		OnPong:       func(p PingPayload) { gotPong = p },
	})

	c.dispatch(Envelope{Type: MsgServerInfo, Payload: json.RawMessage(`{}`)})
	c.dispatch(Envelope{Type: MsgServerRestarting})
	c.dispatch(Envelope{Type: MsgLogBatch, Payload: json.RawMessage(`{"logs":[]}`)})
	c.dispatch(Envelope{Type: MsgPong, Payload: json.RawMessage(`{"t":123}`)})
	c.dispatch(Envelope{Type: "future_thing"})

	assert.True(t, gotInfo)
	assert.True(t, gotRestart)
	assert.True(t, gotBatch)
	assert.Equal(t, int64(123), gotPong.T)
	assert.Equal(t, 5, anyCount, "the any-listener sees every frame, unknown types included")
}

func TestDispatchMalformedPongIgnored(t *testing.T) {
	called := false
	c := NewConn("ws://unused", Handlers{
		OnPong: func(PingPayload) { called = true },
	})

	c.dispatch(Envelope{Type: MsgPong, Payload: json.RawMessage(`"not an object"`)})
	assert.False(t, called)
}

func TestSendWhileDisconnected(t *testing.T) {
	c := NewConn("ws://unused", Handlers{})

	err := c.Send(context.Background(), RequestServerInfo())
	require.Error(t, err)
}

func TestConnRoundTrip(t *testing.T) {
	received := make(chan Envelope, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.CloseNow()

		ctx := r.Context()

		// Push one snapshot frame to the client
		err = wsjson.Write(ctx, ws, Envelope{
			Type:    MsgServerInfo,
			Payload: json.RawMessage(`{"cpu_percent": 12.5}`),
		})
		if err != nil {
			return
		}

		// Then read one frame back
		var env Envelope
		if err := wsjson.Read(ctx, ws, &env); err != nil {
			return
		}
		received <- env

		// Hold the connection open until the client goes away
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	connected := make(chan struct{})
	gotInfo := make(chan json.RawMessage, 1)

	c := NewConn(wsURL, Handlers{
		OnConnect:    func() { close(connected) },
		OnServerInfo: func(p json.RawMessage) { gotInfo <- p },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}

	select {
	case payload := <-gotInfo:
		assert.JSONEq(t, `{"cpu_percent": 12.5}`, string(payload))
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot frame never arrived")
	}

	require.NoError(t, c.Send(ctx, SubscribeLogs("INFO", "")))

	select {
	case env := <-received:
		assert.Equal(t, MsgSubscribeLogs, env.Type)
		var p SubscribePayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		assert.Equal(t, "INFO", p.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("outbound frame never arrived")
	}

	// A write that fails on an established socket comes back as a
	// transport-coded error
	expired, expire := context.WithCancel(context.Background())
	expire()
	err := c.Send(expired, RequestServerInfo())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTransport))

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not exit on cancel")
	}
}

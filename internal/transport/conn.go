package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/srvscope/srvscope/internal/errors"
	"github.com/srvscope/srvscope/internal/logger"
)

// Reconnect backoff bounds for the push connection.
const (
	reconnectMin = 1 * time.Second
	reconnectMax = 30 * time.Second
)

// Handlers receives decoded inbound traffic. Nil handlers are skipped.
// All handlers are invoked from the connection's read goroutine.
type Handlers struct {
	// OnEnvelope receives every decoded frame, before the typed
	// handlers. Used to timestamp inter-arrival gaps; it must not
	// interpret payload contents.
	OnEnvelope func(Envelope)

	OnServerInfo func(json.RawMessage)
	OnRestarting func()
	OnLogBatch   func(json.RawMessage)
	OnPong       func(PingPayload)
	OnConnect    func()
	OnDisconnect func(error)
}

// Conn maintains a push connection with automatic reconnect. Outbound
// sends while disconnected return a transport error rather than
// queueing.
type Conn struct {
	url      string
	handlers Handlers
	log      logger.Logger

	mu        sync.Mutex
	ws        *websocket.Conn
	connected bool
	closed    bool
}

// NewConn creates a connection to the given WebSocket URL. Run must be
// called to establish it.
func NewConn(url string, handlers Handlers) *Conn {
	return &Conn{
		url:      url,
		handlers: handlers,
		log:      logger.NewEnvLogger("[transport]"),
	}
}

// Connected reports whether the push connection is currently up.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Send writes a typed message. Returns a transport error when the
// connection is down.
func (c *Conn) Send(ctx context.Context, msg Outbound) error {
	c.mu.Lock()
	ws := c.ws
	connected := c.connected
	c.mu.Unlock()

	if !connected || ws == nil {
		return errors.New(errors.ErrTransport,
			"Push connection is not established",
			"The client reconnects automatically; retry shortly")
	}

	if err := wsjson.Write(ctx, ws, msg); err != nil {
		return errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to send message", "Check the server is reachable")
	}
	return nil
}

// Run connects and reads until ctx is canceled, reconnecting with
// exponential backoff after each drop. It returns when ctx is done.
func (c *Conn) Run(ctx context.Context) {
	backoff := reconnectMin

	for {
		if ctx.Err() != nil {
			return
		}

		ws, _, err := websocket.Dial(ctx, c.url, nil)
		if err != nil {
			c.log.Debug("dial %s failed: %v", c.url, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}

		backoff = reconnectMin
		c.setConn(ws)
		if c.handlers.OnConnect != nil {
			c.handlers.OnConnect()
		}

		err = c.readLoop(ctx, ws)

		c.setConn(nil)
		ws.Close(websocket.StatusNormalClosure, "")
		if c.handlers.OnDisconnect != nil {
			c.handlers.OnDisconnect(err)
		}
	}
}

// Close marks the connection closed. The Run loop exits via its context;
// Close only prevents further sends from racing a dying socket.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.connected = false
	if c.ws != nil {
		c.ws.Close(websocket.StatusNormalClosure, "")
		c.ws = nil
	}
}

func (c *Conn) setConn(ws *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws = ws
	c.connected = ws != nil && !c.closed
}

func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn) error {
	for {
		var env Envelope
		if err := wsjson.Read(ctx, ws, &env); err != nil {
			return err
		}
		c.dispatch(env)
	}
}

// dispatch routes one frame. Unknown types are ignored so server-side
// additions do not break older clients.
func (c *Conn) dispatch(env Envelope) {
	if c.handlers.OnEnvelope != nil {
		c.handlers.OnEnvelope(env)
	}

	switch env.Type {
	case MsgServerInfo:
		if c.handlers.OnServerInfo != nil {
			c.handlers.OnServerInfo(env.Payload)
		}
	case MsgServerRestarting:
		if c.handlers.OnRestarting != nil {
			c.handlers.OnRestarting()
		}
	case MsgLogBatch:
		if c.handlers.OnLogBatch != nil {
			c.handlers.OnLogBatch(env.Payload)
		}
	case MsgPong:
		var p PingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.log.Debug("malformed si_pong payload: %v", err)
			return
		}
		if c.handlers.OnPong != nil {
			c.handlers.OnPong(p)
		}
	default:
		c.log.Debug("ignoring unknown message type %q", env.Type)
	}
}

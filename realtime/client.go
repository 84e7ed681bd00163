package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Server events the client reacts to.
const (
	eventFunctionCallDone = "response.function_call_arguments.done"
	eventError            = "error"
)

// Client is a websocket connection to the realtime model that runs the
// assistant's tool calls against a Handler.
type Client struct {
	conn    *websocket.Conn
	handler Handler
	log     *zap.Logger

	writeMu sync.Mutex
	once    sync.Once
}

// Dial connects to endpoint for model, authenticating with key (an API key
// or a session credential).
func Dial(ctx context.Context, endpoint, model, key string, h Handler, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("realtime: bad endpoint: %w", err)
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+key)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime: dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("realtime: dial: %w", err)
	}
	return NewClient(conn, h, log), nil
}

// NewClient wraps an open connection.
func NewClient(conn *websocket.Conn, h Handler, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	conn.SetReadLimit(maxMessageSize)
	return &Client{conn: conn, handler: h, log: log.Named("realtime")}
}

type serverEvent struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	CallID    string `json:"call_id"`
	Arguments string `json:"arguments"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Configure sends session.update with the tool catalogue.
func (c *Client) Configure() error {
	return c.send(map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"modalities": []string{"text", "audio"},
			"tools":      Tools(),
		},
	})
}

// Run configures the session and processes events until ctx is cancelled
// or the connection closes. The connection is closed on return.
func (c *Client) Run(ctx context.Context) error {
	defer c.Close()
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if err := c.Configure(); err != nil {
		return err
	}
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("realtime: read: %w", err)
		}
		if err := c.handle(data); err != nil {
			return err
		}
	}
}

// handle processes one server event. Only write failures are returned.
func (c *Client) handle(data []byte) error {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		c.log.Warn("undecodable server event", zap.Error(err))
		return nil
	}
	switch ev.Type {
	case eventFunctionCallDone:
		return c.call(ev)
	case eventError:
		if ev.Error != nil {
			c.log.Warn("realtime server error", zap.String("message", ev.Error.Message))
		}
	}
	return nil
}

func (c *Client) call(ev serverEvent) error {
	out := c.run(ev.Name, ev.Arguments)
	encoded, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("realtime: encoding output: %w", err)
	}
	if err := c.send(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": ev.CallID,
			"output":  string(encoded),
		},
	}); err != nil {
		return err
	}
	return c.send(map[string]any{"type": "response.create"})
}

// run executes a call and reports failures as an output the model can read.
func (c *Client) run(name, args string) Output {
	cmd, err := ParseCall(name, args)
	if err != nil {
		c.log.Info("rejected tool call", zap.String("name", name), zap.Error(err))
		return Output{"success": false, "error": err.Error()}
	}
	out, err := Dispatch(cmd, c.handler)
	if err != nil {
		c.log.Warn("tool call failed", zap.String("name", name), zap.Error(err))
		return Output{"success": false, "error": err.Error()}
	}
	c.log.Debug("tool call", zap.String("name", name))
	return out
}

func (c *Client) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("realtime: write: %w", err)
	}
	return nil
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}

// ABOUTME: WebSocket remote control client
// ABOUTME: Handles connection, handshake and request/response matching
package remote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientConfig holds client configuration
type ClientConfig struct {
	// Addr is host:port of the mixer
	Addr   string
	Path   string
	Name   string
	Logger *log.Logger
}

// Client talks to a remote mixer
type Client struct {
	config ClientConfig
	conn   *websocket.Conn
	logger *log.Logger
	hello  ServerHello

	writeMu sync.Mutex
	nextID  atomic.Uint64

	pendingMu sync.Mutex
	pending   map[string]chan Message
	closed    bool

	done chan struct{}
}

// Dial connects and performs the handshake
func Dial(ctx context.Context, config ClientConfig) (*Client, error) {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	u := url.URL{Scheme: "ws", Host: config.Addr, Path: config.Path}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &Client{
		config:  config,
		conn:    conn,
		logger:  config.Logger.WithPrefix("mixerctl"),
		pending: make(map[string]chan Message),
		done:    make(chan struct{}),
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	go c.readMessages()
	return c, nil
}

func (c *Client) handshake() error {
	hello, err := NewMessage(TypeClientHello, "", ClientHello{
		ClientID: uuid.New().String(),
		Name:     c.config.Name,
		Version:  ProtocolVersion,
	})
	if err != nil {
		return err
	}
	if err := c.conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("failed to send hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer c.conn.SetReadDeadline(time.Time{})

	var reply Message
	if err := c.conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("failed to read server hello: %w", err)
	}
	if reply.Type == TypeError {
		var e ErrorPayload
		reply.Decode(&e)
		return &RemoteError{Code: e.Code, Message: e.Message}
	}
	if reply.Type != TypeServerHello {
		return fmt.Errorf("expected %s, got %s", TypeServerHello, reply.Type)
	}
	if err := reply.Decode(&c.hello); err != nil {
		return err
	}

	c.logger.Debug("Handshake complete", "server", c.hello.Name, "backend", c.hello.Backend)
	return nil
}

// Server returns the server hello received during the handshake
func (c *Client) Server() ServerHello {
	return c.hello
}

// readMessages routes responses to waiting requests
func (c *Client) readMessages() {
	defer c.shutdown()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("Read failed", "err", err)
			}
			return
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.pendingMu.Unlock()

		if !ok {
			c.logger.Debug("Unsolicited message", "type", msg.Type)
			continue
		}
		ch <- msg
	}
}

func (c *Client) shutdown() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// request sends msgType and waits for the matching response
func (c *Client) request(ctx context.Context, msgType string, payload interface{}) (Message, error) {
	id := strconv.FormatUint(c.nextID.Add(1), 10)
	msg, err := NewMessage(msgType, id, payload)
	if err != nil {
		return Message{}, err
	}

	ch := make(chan Message, 1)
	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()
		return Message{}, ErrNotConnected
	}
	c.pending[id] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err = c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		return Message{}, fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	select {
	case resp := <-ch:
		if resp.Type == TypeError {
			var e ErrorPayload
			if err := resp.Decode(&e); err != nil {
				return Message{}, err
			}
			return Message{}, &RemoteError{Code: e.Code, Message: e.Message}
		}
		return resp, nil
	case <-c.done:
		return Message{}, ErrNotConnected
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Play starts a file on the mixer
func (c *Client) Play(ctx context.Context, req PlayRequest) (Played, error) {
	resp, err := c.request(ctx, TypePlay, req)
	if err != nil {
		return Played{}, err
	}
	var played Played
	err = resp.Decode(&played)
	return played, err
}

// Stop stops one sound, or all of them when req.SoundID is empty
func (c *Client) Stop(ctx context.Context, req StopRequest) error {
	_, err := c.request(ctx, TypeStop, req)
	return err
}

// SetVolume changes a sound or main track volume
func (c *Client) SetVolume(ctx context.Context, req VolumeRequest) error {
	_, err := c.request(ctx, TypeVolume, req)
	return err
}

// SetListener moves the listener
func (c *Client) SetListener(ctx context.Context, req ListenerRequest) error {
	_, err := c.request(ctx, TypeListener, req)
	return err
}

// Status fetches the mixer state
func (c *Client) Status(ctx context.Context) (Status, error) {
	resp, err := c.request(ctx, TypeStatus, nil)
	if err != nil {
		return Status{}, err
	}
	var status Status
	err = resp.Decode(&status)
	return status, err
}

// Close closes the connection
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

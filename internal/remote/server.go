// ABOUTME: WebSocket remote control server
// ABOUTME: Accepts mixerctl connections and turns requests into mixer commands
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval  = 30 * time.Second
	writeDeadline = 10 * time.Second
	helloTimeout  = 5 * time.Second
	sendQueueSize = 32
)

// Mixer is the engine surface the server controls
type Mixer interface {
	Play(req PlayRequest) (Played, error)
	Stop(req StopRequest) error
	SetVolume(req VolumeRequest) error
	SetListener(req ListenerRequest) error
	Status() Status
}

// Config holds server configuration
type Config struct {
	// Addr to listen on, e.g. ":8928"
	Addr   string
	Name   string
	Path   string
	Logger *log.Logger
}

// Server serves the remote control endpoint
type Server struct {
	config   Config
	serverID string
	mixer    Mixer
	logger   *log.Logger
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener

	clients   map[string]*conn
	clientsMu sync.Mutex
	wg        sync.WaitGroup
}

// conn is one connected client
type conn struct {
	id       string
	name     string
	ws       *websocket.Conn
	sendChan chan Message
}

// NewServer creates a server for mixer
func NewServer(config Config, mixer Mixer) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &Server{
		config:   config,
		serverID: uuid.New().String(),
		mixer:    mixer,
		logger:   config.Logger.WithPrefix("remote"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Browsers are only accepted from the local machine
				origin := r.Header.Get("Origin")
				return origin == "" || origin == "http://localhost" || origin == "http://127.0.0.1"
			},
		},
		clients: make(map[string]*conn),
	}
}

// Handler returns the HTTP handler serving the control endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleWebSocket)
	return mux
}

// Start listens and serves in the background
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = l
	s.httpServer = &http.Server{Handler: s.Handler()}

	s.logger.Info("Remote control listening", "addr", l.Addr().String(), "path", s.config.Path)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "err", err)
		}
	}()
	return nil
}

// Addr returns the listening address once started
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the listening port once started
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Stop closes every connection and shuts the HTTP server down
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Hijacked websocket connections are not closed by Shutdown
	s.clientsMu.Lock()
	for _, c := range s.clients {
		c.ws.Close()
	}
	s.clientsMu.Unlock()

	s.wg.Wait()
	return err
}

// Clients returns the names of connected clients
func (s *Server) Clients() []string {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	names := make([]string, 0, len(s.clients))
	for _, c := range s.clients {
		names = append(names, c.name)
	}
	return names
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "err", err)
		return
	}

	s.logger.Debug("New connection", "remote", r.RemoteAddr)
	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(ws)
}

func (s *Server) handleConnection(ws *websocket.Conn) {
	defer ws.Close()

	hello, err := s.readHello(ws)
	if err != nil {
		s.logger.Warn("Handshake failed", "err", err)
		return
	}

	c := &conn{
		id:       hello.ClientID,
		name:     hello.Name,
		ws:       ws,
		sendChan: make(chan Message, sendQueueSize),
	}

	s.clientsMu.Lock()
	if _, exists := s.clients[c.id]; exists {
		s.clientsMu.Unlock()
		s.logger.Warn("Rejecting duplicate client", "id", c.id, "name", c.name)
		msg, _ := NewMessage(TypeError, "", ErrorPayload{Code: "duplicate_client_id", Message: "client ID already connected"})
		ws.WriteJSON(msg)
		return
	}
	s.clients[c.id] = c
	s.clientsMu.Unlock()

	s.logger.Info("Client connected", "name", c.name, "id", c.id)

	status := s.mixer.Status()
	reply, err := NewMessage(TypeServerHello, "", ServerHello{
		ServerID:   s.serverID,
		Name:       s.config.Name,
		Version:    ProtocolVersion,
		Backend:    status.Backend,
		SampleRate: status.SampleRate,
	})
	if err == nil {
		c.sendChan <- reply
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.clientWriter(c)
	}()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		close(c.sendChan)
		<-writerDone
		s.logger.Info("Client disconnected", "name", c.name)
	}()

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Read failed", "name", c.name, "err", err)
			}
			return
		}
		s.send(c, s.handleRequest(msg))
	}
}

func (s *Server) readHello(ws *websocket.Conn) (ClientHello, error) {
	ws.SetReadDeadline(time.Now().Add(helloTimeout))
	defer ws.SetReadDeadline(time.Time{})

	var msg Message
	if err := ws.ReadJSON(&msg); err != nil {
		return ClientHello{}, fmt.Errorf("failed to read hello: %w", err)
	}
	if msg.Type != TypeClientHello {
		return ClientHello{}, fmt.Errorf("expected %s, got %s", TypeClientHello, msg.Type)
	}

	var hello ClientHello
	if err := msg.Decode(&hello); err != nil {
		return ClientHello{}, err
	}
	if hello.ClientID == "" || hello.Name == "" {
		return ClientHello{}, fmt.Errorf("hello missing client ID or name")
	}
	return hello, nil
}

// handleRequest runs one request and builds its response
func (s *Server) handleRequest(msg Message) Message {
	var (
		payload interface{}
		err     error
	)

	switch msg.Type {
	case TypePlay:
		var req PlayRequest
		if err = msg.Decode(&req); err == nil {
			if req.File == "" {
				err = badRequest("file is required")
			} else {
				payload, err = s.mixer.Play(req)
			}
		}
	case TypeStop:
		var req StopRequest
		if len(msg.Payload) > 0 {
			err = msg.Decode(&req)
		}
		if err == nil {
			err = s.mixer.Stop(req)
		}
	case TypeVolume:
		var req VolumeRequest
		if err = msg.Decode(&req); err == nil {
			err = s.mixer.SetVolume(req)
		}
	case TypeListener:
		var req ListenerRequest
		if err = msg.Decode(&req); err == nil {
			err = s.mixer.SetListener(req)
		}
	case TypeStatus:
		payload = s.mixer.Status()
	default:
		return errorMessage(msg.ID, &RemoteError{Code: CodeUnknownType, Message: msg.Type})
	}

	if err != nil {
		s.logger.Debug("Request failed", "type", msg.Type, "err", err)
		return errorMessage(msg.ID, err)
	}

	respType := TypeOK
	switch msg.Type {
	case TypePlay:
		respType = TypePlayed
	case TypeStatus:
		respType = TypeReport
	}
	resp, err := NewMessage(respType, msg.ID, payload)
	if err != nil {
		return errorMessage(msg.ID, err)
	}
	return resp
}

func badRequest(message string) error {
	return &RemoteError{Code: CodeBadRequest, Message: message}
}

func errorMessage(id string, err error) Message {
	payload := ErrorPayload{Code: CodeFailed, Message: err.Error()}

	var remoteErr *RemoteError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &remoteErr):
		payload = ErrorPayload{Code: remoteErr.Code, Message: remoteErr.Message}
	case errors.Is(err, ErrSoundNotFound):
		payload.Code = CodeNotFound
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		payload.Code = CodeBadRequest
	}

	msg, _ := NewMessage(TypeError, id, payload)
	return msg
}

// send queues msg without blocking the reader
func (s *Server) send(c *conn, msg Message) {
	select {
	case c.sendChan <- msg:
	default:
		s.logger.Warn("Client send buffer full, dropping response", "name", c.name, "type", msg.Type)
	}
}

// clientWriter sends queued messages and keeps the connection alive
func (s *Server) clientWriter(c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteJSON(msg); err != nil {
				s.logger.Debug("Write failed", "name", c.name, "err", err)
				c.ws.Close()
				// Drain so the reader never blocks on a dead connection
				for range c.sendChan {
				}
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				c.ws.Close()
				for range c.sendChan {
				}
				return
			}
		}
	}
}

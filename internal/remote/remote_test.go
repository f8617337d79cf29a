// ABOUTME: Tests for the remote control server and client
// ABOUTME: Runs both ends over an httptest server against a fake mixer
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeMixer struct {
	mu       sync.Mutex
	played   []PlayRequest
	stopped  []StopRequest
	volumes  []VolumeRequest
	listener *ListenerRequest
}

func (m *fakeMixer) Play(req PlayRequest) (Played, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.HasSuffix(req.File, ".txt") {
		return Played{}, fmt.Errorf("unsupported audio format: .txt")
	}
	m.played = append(m.played, req)
	return Played{SoundID: fmt.Sprintf("sound-%d", len(m.played)), Name: req.File, Duration: 2.5}, nil
}

func (m *fakeMixer) Stop(req StopRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.SoundID == "missing" {
		return fmt.Errorf("%w: %s", ErrSoundNotFound, req.SoundID)
	}
	m.stopped = append(m.stopped, req)
	return nil
}

func (m *fakeMixer) SetVolume(req VolumeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumes = append(m.volumes, req)
	return nil
}

func (m *fakeMixer) SetListener(req ListenerRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = &req
	return nil
}

func (m *fakeMixer) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := Status{Backend: "null", SampleRate: 48000, StreamState: "running"}
	for i, p := range m.played {
		status.Sounds = append(status.Sounds, SoundStatus{ID: fmt.Sprintf("sound-%d", i+1), Name: p.File, State: "playing"})
	}
	return status
}

// startServer runs a server over httptest and returns its host:port
func startServer(t *testing.T, mixer Mixer) (*Server, string) {
	t.Helper()
	srv := NewServer(Config{Name: "Test Mixer"}, mixer)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
		ts.Close()
	})
	return srv, strings.TrimPrefix(ts.URL, "http://")
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, ClientConfig{Addr: addr, Name: "test"})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func ctxTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestHandshake(t *testing.T) {
	_, addr := startServer(t, &fakeMixer{})
	c := dial(t, addr)

	hello := c.Server()
	if hello.Name != "Test Mixer" {
		t.Errorf("expected name Test Mixer, got %s", hello.Name)
	}
	if hello.Backend != "null" || hello.SampleRate != 48000 {
		t.Errorf("unexpected hello %+v", hello)
	}
	if hello.Version != ProtocolVersion {
		t.Errorf("expected version %d, got %d", ProtocolVersion, hello.Version)
	}
}

func TestPlayAndStatus(t *testing.T) {
	mixer := &fakeMixer{}
	_, addr := startServer(t, mixer)
	c := dial(t, addr)

	played, err := c.Play(ctxTimeout(t), PlayRequest{File: "rain.ogg", Streaming: true, VolumeDB: -6, Loop: &Loop{Start: 1}})
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if played.SoundID != "sound-1" || played.Duration != 2.5 {
		t.Errorf("unexpected played %+v", played)
	}

	mixer.mu.Lock()
	req := mixer.played[0]
	mixer.mu.Unlock()
	if !req.Streaming || req.VolumeDB != -6 || req.Loop == nil || req.Loop.Start != 1 {
		t.Errorf("request not passed through: %+v", req)
	}

	status, err := c.Status(ctxTimeout(t))
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if len(status.Sounds) != 1 || status.Sounds[0].Name != "rain.ogg" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestRequestErrors(t *testing.T) {
	_, addr := startServer(t, &fakeMixer{})
	c := dial(t, addr)

	tests := []struct {
		name string
		run  func() error
		code string
	}{
		{"missing file", func() error {
			_, err := c.Play(ctxTimeout(t), PlayRequest{})
			return err
		}, CodeBadRequest},
		{"mixer failure", func() error {
			_, err := c.Play(ctxTimeout(t), PlayRequest{File: "notes.txt"})
			return err
		}, CodeFailed},
		{"unknown sound", func() error {
			return c.Stop(ctxTimeout(t), StopRequest{SoundID: "missing"})
		}, CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var remoteErr *RemoteError
			if !errors.As(err, &remoteErr) {
				t.Fatalf("expected remote error, got %v", err)
			}
			if remoteErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, remoteErr.Code)
			}
		})
	}

	err := c.Stop(ctxTimeout(t), StopRequest{SoundID: "missing"})
	if !errors.Is(err, ErrSoundNotFound) {
		t.Errorf("expected ErrSoundNotFound, got %v", err)
	}
}

func TestCommandsReachMixer(t *testing.T) {
	mixer := &fakeMixer{}
	_, addr := startServer(t, mixer)
	c := dial(t, addr)

	if err := c.Stop(ctxTimeout(t), StopRequest{FadeMs: 250}); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := c.SetVolume(ctxTimeout(t), VolumeRequest{VolumeDB: -12}); err != nil {
		t.Fatalf("volume failed: %v", err)
	}
	if err := c.SetListener(ctxTimeout(t), ListenerRequest{Position: [3]float64{1, 2, 3}, Yaw: 45}); err != nil {
		t.Fatalf("listener failed: %v", err)
	}

	mixer.mu.Lock()
	defer mixer.mu.Unlock()
	if len(mixer.stopped) != 1 || mixer.stopped[0].FadeMs != 250 || mixer.stopped[0].SoundID != "" {
		t.Errorf("unexpected stop requests %+v", mixer.stopped)
	}
	if len(mixer.volumes) != 1 || mixer.volumes[0].VolumeDB != -12 {
		t.Errorf("unexpected volume requests %+v", mixer.volumes)
	}
	if mixer.listener == nil || mixer.listener.Position != [3]float64{1, 2, 3} || mixer.listener.Yaw != 45 {
		t.Errorf("unexpected listener request %+v", mixer.listener)
	}
}

func rawDial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+DefaultPath, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	return ws
}

func rawHello(t *testing.T, ws *websocket.Conn, id string) Message {
	t.Helper()
	hello, _ := NewMessage(TypeClientHello, "", ClientHello{ClientID: id, Name: "raw", Version: ProtocolVersion})
	if err := ws.WriteJSON(hello); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var reply Message
	if err := ws.ReadJSON(&reply); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return reply
}

func TestUnknownMessageType(t *testing.T) {
	_, addr := startServer(t, &fakeMixer{})
	ws := rawDial(t, addr)

	if reply := rawHello(t, ws, "raw-1"); reply.Type != TypeServerHello {
		t.Fatalf("expected server hello, got %s", reply.Type)
	}

	ws.WriteJSON(Message{Type: "mixer/dance", ID: "7"})
	var reply Message
	if err := ws.ReadJSON(&reply); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var e ErrorPayload
	if err := reply.Decode(&e); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if reply.Type != TypeError || reply.ID != "7" || e.Code != CodeUnknownType {
		t.Errorf("unexpected reply %s/%s: %+v", reply.Type, reply.ID, e)
	}
}

func TestDuplicateClientRejected(t *testing.T) {
	_, addr := startServer(t, &fakeMixer{})

	first := rawDial(t, addr)
	if reply := rawHello(t, first, "same"); reply.Type != TypeServerHello {
		t.Fatalf("expected server hello, got %s", reply.Type)
	}

	second := rawDial(t, addr)
	if reply := rawHello(t, second, "same"); reply.Type != TypeError {
		t.Errorf("expected duplicate to be rejected, got %s", reply.Type)
	}
}

func TestHandshakeRequiresHello(t *testing.T) {
	_, addr := startServer(t, &fakeMixer{})
	ws := rawDial(t, addr)

	ws.WriteJSON(Message{Type: TypeStatus, ID: "1"})
	var reply Message
	if err := ws.ReadJSON(&reply); err == nil {
		t.Errorf("expected connection to close, got %s", reply.Type)
	}
}

func TestRequestAfterServerStop(t *testing.T) {
	srv, addr := startServer(t, &fakeMixer{})
	c := dial(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Stop(ctx)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected client to notice the closed connection")
	}
	if _, err := c.Status(ctxTimeout(t)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"remote", &RemoteError{Code: CodeBadRequest, Message: "x"}, CodeBadRequest},
		{"not found", fmt.Errorf("stop: %w", ErrSoundNotFound), CodeNotFound},
		{"generic", errors.New("boom"), CodeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := errorMessage("3", tt.err)
			var e ErrorPayload
			if err := msg.Decode(&e); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if e.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, e.Code)
			}
			if msg.ID != "3" {
				t.Errorf("expected ID 3, got %s", msg.ID)
			}
		})
	}
}

func TestBadPayloadType(t *testing.T) {
	srv := NewServer(Config{}, &fakeMixer{})
	resp := srv.handleRequest(Message{Type: TypeVolume, ID: "1", Payload: []byte(`{"volume_db":"loud"}`)})

	var e ErrorPayload
	if err := resp.Decode(&e); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if e.Code != CodeBadRequest {
		t.Errorf("expected bad_request, got %s", e.Code)
	}
}

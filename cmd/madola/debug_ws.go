package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/netutil"

	"madola/interpreter-go/pkg/debugger"
	"madola/interpreter-go/pkg/interpreter"
	"madola/interpreter-go/pkg/runtime"
)

const debugPath = "/debug"

// wsFrame is one JSON message sent to the remote debugger client.
type wsFrame struct {
	Type       string              `json:"type"`
	Text       string              `json:"text,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	Line       int                 `json:"line,omitempty"`
	Column     int                 `json:"column,omitempty"`
	Function   string              `json:"function,omitempty"`
	Depth      int                 `json:"depth,omitempty"`
	Breakpoint int                 `json:"breakpoint,omitempty"`
	Name       string              `json:"name,omitempty"`
	Before     string              `json:"before,omitempty"`
	After      string              `json:"after,omitempty"`
	Result     *interpreter.Result `json:"result,omitempty"`
}

// wsSession serves one debug session over a websocket. Text messages from the
// client are command lines; everything the debugger reports goes back as
// frames.
type wsSession struct {
	conn   *websocket.Conn
	srv    *http.Server
	logger *slog.Logger

	// mu serializes writes; the connection allows a single writer.
	mu       sync.Mutex
	commands chan string
	done     chan struct{}
	once     sync.Once
}

var (
	_ debugger.CommandSource = (*wsSession)(nil)
	_ debugger.Listener      = (*wsSession)(nil)
)

// listenDebug opens the debug listener. It admits one connection at a time.
func listenDebug(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return netutil.LimitListener(ln, 1), nil
}

// acceptDebugClient serves ln until one client completes the websocket
// handshake on /debug. Later clients are turned away.
func acceptDebugClient(ctx context.Context, ln net.Listener, logger *slog.Logger) (*wsSession, error) {
	connCh := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	var claimed sync.Once
	mux := http.NewServeMux()
	mux.HandleFunc(debugPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("debug handshake failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		accepted := false
		claimed.Do(func() {
			connCh <- conn
			accepted = true
		})
		if !accepted {
			msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "debug session in use")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("debug server stopped", "error", err)
		}
	}()

	select {
	case conn := <-connCh:
		logger.Info("debug client connected", "remote", conn.RemoteAddr().String())
		s := &wsSession{
			conn:     conn,
			srv:      srv,
			logger:   logger,
			commands: make(chan string, 16),
			done:     make(chan struct{}),
		}
		go s.readLoop()
		return s, nil
	case <-ctx.Done():
		_ = srv.Close()
		return nil, ctx.Err()
	}
}

func (s *wsSession) readLoop() {
	defer close(s.commands)
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("debug client read failed", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case s.commands <- string(data):
		case <-s.done:
			return
		}
	}
}

func (s *wsSession) send(frame wsFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Warn("debug frame encode failed", "type", frame.Type, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("debug client write failed", "error", err)
	}
}

// ReadCommand announces a prompt and waits for the client's next line. A
// closed connection ends the session.
func (s *wsSession) ReadCommand(debugger.ExecutionContext) (string, error) {
	s.send(wsFrame{Type: "prompt"})
	line, ok := <-s.commands
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (s *wsSession) OnBreakpointHit(bp debugger.Breakpoint) {
	s.send(wsFrame{Type: "breakpoint", Breakpoint: bp.ID, Text: bp.What()})
}

func (s *wsSession) OnStep(pc debugger.ExecutionContext) {
	s.send(wsFrame{
		Type:     "stopped",
		Reason:   pc.Reason.String(),
		Line:     pc.Location.Line,
		Column:   pc.Location.Column,
		Function: pc.Function,
		Depth:    pc.Depth,
	})
}

func (s *wsSession) OnVariableChange(name string, before, after runtime.Value) {
	frame := wsFrame{Type: "change", Name: name, After: runtime.Format(after)}
	if before != nil {
		frame.Before = runtime.Format(before)
	}
	s.send(frame)
}

func (s *wsSession) OnTerminated(res *interpreter.Result) {
	s.send(wsFrame{Type: "terminated", Result: res})
}

// stream adapts the session to an io.Writer emitting frames of the given type.
func (s *wsSession) stream(kind string) io.Writer {
	return frameWriter{s: s, kind: kind}
}

type frameWriter struct {
	s    *wsSession
	kind string
}

func (w frameWriter) Write(p []byte) (int, error) {
	w.s.send(wsFrame{Type: w.kind, Text: string(p)})
	return len(p), nil
}

func (s *wsSession) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finished")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		s.mu.Unlock()
		err = s.conn.Close()
		if cerr := s.srv.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

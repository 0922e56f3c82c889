package server

import (
	"io"
	"time"

	"github.com/gorilla/websocket"
)

// fakeConn is a channel-backed stand-in for *websocket.Conn so room actor
// tests can drive open/message/close without a real network socket.
type fakeConn struct {
	inbound  chan []byte
	outbound chan []byte
	closed   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:  make(chan []byte, 32),
		outbound: make(chan []byte, 32),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg, ok := <-f.inbound:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, msg, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case f.outbound <- data:
	case <-f.closed:
	}
	return nil
}

func (f *fakeConn) WriteControl(_ int, _ []byte, _ time.Time) error {
	return nil
}

type fakeWriter struct {
	conn *fakeConn
	buf  []byte
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *fakeWriter) Close() error {
	select {
	case w.conn.outbound <- w.buf:
	case <-w.conn.closed:
	}
	return nil
}

func (f *fakeConn) NextWriter(_ int) (io.WriteCloser, error) {
	return &fakeWriter{conn: f}, nil
}

func (f *fakeConn) SetReadLimit(int64)                       {}
func (f *fakeConn) SetReadDeadline(time.Time) error          { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error         { return nil }
func (f *fakeConn) SetPongHandler(func(string) error)        {}

func (f *fakeConn) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

// send pushes a raw client frame into the fake connection's read side.
func (f *fakeConn) send(data []byte) {
	select {
	case f.inbound <- data:
	case <-f.closed:
	}
}

// recv drains one outbound frame, returning ok=false if nothing arrives
// within timeout; recvTyped builds on it and fails the test instead.
func (f *fakeConn) recv(timeout time.Duration) ([]byte, bool) {
	select {
	case data := <-f.outbound:
		return data, true
	case <-time.After(timeout):
		return nil, false
	}
}

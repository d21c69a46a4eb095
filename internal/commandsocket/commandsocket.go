// Package commandsocket is the reference line-protocol adapter used for
// integration testing: it accepts PING/STATUS/START/STOP/DEBUG:<hex>
// lines over a Unix domain socket and delegates to the state machine and
// debug-frame handler. cmd/plcruntime serves it as the process's command
// socket; other front ends can be wired against the same
// StateController/DebugHandler interfaces.
package commandsocket

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
)

// StateController is the subset of orchestrator.Runtime the command
// socket needs.
type StateController interface {
	GetState() string
	RequestStart() error
	RequestStop() error
}

// DebugHandler processes a raw debug frame and returns the reply bytes.
type DebugHandler interface {
	Handle(data []byte) []byte
}

// Server listens on a Unix domain socket and serves the line protocol.
type Server struct {
	path    string
	state   StateController
	debug   DebugHandler
	limiter *rate.Limiter

	listener net.Listener
}

// New builds a command socket server. ratePerSec/burst bound how many
// commands all connections together may issue per second: one limiter is
// shared by every connection.
func New(path string, state StateController, debug DebugHandler, ratePerSec, burst int) *Server {
	return &Server{
		path:    path,
		state:   state,
		debug:   debug,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// Serve listens and accepts connections until the listener is closed.
func (s *Server) Serve() error {
	l, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	s.listener = l

	log := logger.CommandSocket()
	log.Info().Str("path", s.path).Msg("command socket listening")

	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if !s.limiter.Allow() {
			fmt.Fprintln(conn, "COMMAND:ERROR")
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		reply := s.dispatch(line)
		fmt.Fprintln(conn, reply)
	}
}

func (s *Server) dispatch(line string) string {
	switch {
	case line == "PING":
		return "PONG"

	case line == "STATUS":
		return "STATUS:" + s.state.GetState()

	case line == "START":
		if s.state.GetState() == "RUNNING" {
			return "START:ERROR_ALREADY_RUNNING"
		}
		if err := s.state.RequestStart(); err != nil {
			return "START:ERROR"
		}
		return "START:OK"

	case line == "STOP":
		if err := s.state.RequestStop(); err != nil {
			return "STOP:ERROR"
		}
		return "STOP:OK"

	case strings.HasPrefix(line, "DEBUG:"):
		raw, err := hex.DecodeString(strings.TrimPrefix(line, "DEBUG:"))
		if err != nil {
			return "COMMAND:ERROR"
		}
		reply := s.debug.Handle(raw)
		return "DEBUG:" + hex.EncodeToString(reply)

	default:
		return "COMMAND:ERROR"
	}
}

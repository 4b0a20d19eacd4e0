package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
)

// ArrowServer is a TCP server that answers length-prefixed Arrow IPC
// requests with kernel results.
type ArrowServer struct {
	listener net.Listener
	handler  *ArrowHandler
	auth     *Authenticator
	conns    map[net.Conn]struct{}
	running  bool
	mu       sync.Mutex
	quit     chan struct{}
	wg       sync.WaitGroup
}

// errorResponse is the JSON frame sent when a request fails. A valid
// response is always an Arrow IPC stream, so clients can tell the two
// apart by the payload's magic bytes.
type errorResponse struct {
	Error string `json:"error"`
}

// NewArrowServer creates a server around the given handler. A nil
// handler gets a sequential default.
func NewArrowServer(handler *ArrowHandler) *ArrowServer {
	if handler == nil {
		handler = NewArrowHandler()
	}
	return &ArrowServer{
		handler: handler,
		auth:    NewAuthenticatorFromEnv(),
		conns:   make(map[net.Conn]struct{}),
		quit:    make(chan struct{}),
	}
}

// SetAuthenticator replaces the env-derived authenticator.
func (s *ArrowServer) SetAuthenticator(auth *Authenticator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
}

// Start starts the server on the specified address. This method
// blocks until the server is stopped or fails.
func (s *ArrowServer) Start(address string) error {
	if err := s.listen(address); err != nil {
		return err
	}

	defer s.Stop()
	s.acceptLoop()
	return nil
}

// StartAsync starts the server in a background goroutine.
func (s *ArrowServer) StartAsync(address string) error {
	if err := s.listen(address); err != nil {
		return err
	}

	go s.acceptLoop()
	return nil
}

// Addr returns the address the server is listening on, or empty if it
// is not running.
func (s *ArrowServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *ArrowServer) listen(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	lis, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.listener = lis
	s.running = true
	return nil
}

func (s *ArrowServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				continue
			}
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Stop stops the server, closing active connections, and waits for
// their goroutines.
func (s *ArrowServer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.quit)
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			_ = err // shutdown path, connection already going away
		}
	}
	for conn := range s.conns {
		if err := conn.Close(); err != nil {
			_ = err // shutdown path
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// handleConnection serves a single client: an optional auth handshake
// followed by any number of request/response round trips.
func (s *ArrowServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	if err := s.authenticate(conn); err != nil {
		return
	}

	for {
		data, err := ReadMessage(conn)
		if err != nil {
			if err != io.EOF {
				select {
				case <-s.quit: // shutdown closed the connection
				default:
					log.Printf("arrow server: read failed: %v", err)
				}
			}
			return
		}

		response, err := s.handler.Process(data)
		if err != nil {
			log.Printf("arrow server: request failed: %v", err)
			if werr := s.writeError(conn, err); werr != nil {
				return
			}
			continue
		}

		if err := WriteMessage(conn, response); err != nil {
			log.Printf("arrow server: write failed: %v", err)
			return
		}
	}
}

// authenticate runs the token handshake when auth is enabled. The
// client's first frame must be a JSON AuthMessage; the server replies
// with an AuthResponse and closes the connection on failure.
func (s *ArrowServer) authenticate(conn net.Conn) error {
	s.mu.Lock()
	auth := s.auth
	s.mu.Unlock()

	if auth == nil || !auth.IsEnabled() {
		return nil
	}

	data, err := ReadMessage(conn)
	if err != nil {
		return err
	}

	var msg AuthMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "auth" {
		s.writeAuthResponse(conn, false, "auth handshake expected")
		return ErrAuthRequired
	}

	if err := auth.ValidateToken(msg.Token); err != nil {
		s.writeAuthResponse(conn, false, err.Error())
		return err
	}

	s.writeAuthResponse(conn, true, "")
	return nil
}

func (s *ArrowServer) writeAuthResponse(conn net.Conn, success bool, errMsg string) {
	data, err := json.Marshal(AuthResponse{Success: success, Error: errMsg})
	if err != nil {
		return
	}
	_ = WriteMessage(conn, data)
}

func (s *ArrowServer) writeError(conn net.Conn, reqErr error) error {
	data, err := json.Marshal(errorResponse{Error: reqErr.Error()})
	if err != nil {
		return err
	}
	return WriteMessage(conn, data)
}

// Package network exposes the primality kernel over ZeroMQ.
//
// The endpoint speaks the same Arrow IPC payloads as the TCP server in
// package api, but over a REP socket, for callers already embedded in
// a zmq mesh. One request frame in, one response frame out.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/go-zeromq/zmq4"

	"github.com/datapythonista/arrow-prime/api"
)

// Common errors for the zmq endpoint
var (
	ErrNotRunning     = errors.New("endpoint is not running")
	ErrAlreadyRunning = errors.New("endpoint is already running")
)

// errorReply is the JSON frame sent when a request fails. Valid
// replies are Arrow IPC streams, so clients can tell them apart.
type errorReply struct {
	Error string `json:"error"`
}

// Endpoint is a ZeroMQ REP endpoint answering kernel requests.
type Endpoint struct {
	address string
	handler *api.ArrowHandler

	ctx    context.Context
	cancel context.CancelFunc

	rep zmq4.Socket

	running bool
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// NewEndpoint creates an endpoint bound to the given zmq address
// (e.g. "tcp://0.0.0.0:5555"). A nil handler gets a sequential
// default.
func NewEndpoint(address string, handler *api.ArrowHandler) *Endpoint {
	if handler == nil {
		handler = api.NewArrowHandler()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Endpoint{
		address: address,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start binds the REP socket and begins serving requests in a
// background goroutine.
func (e *Endpoint) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}

	e.rep = zmq4.NewRep(e.ctx)
	if err := e.rep.Listen(e.address); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to bind rep socket: %w", err)
	}

	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.serveLoop()

	return nil
}

// Stop shuts down the endpoint and waits for the serve loop.
func (e *Endpoint) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	e.cancel()
	if e.rep != nil {
		if err := e.rep.Close(); err != nil {
			_ = err // shutdown path
		}
	}

	e.wg.Wait()
}

// IsRunning returns true while the endpoint serves requests.
func (e *Endpoint) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Addr returns the bound socket address, or nil before Start.
func (e *Endpoint) Addr() net.Addr {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.rep == nil {
		return nil
	}
	return e.rep.Addr()
}

// serveLoop answers one request frame at a time. REP sockets require
// a reply for every request, so failures produce an error frame
// instead of silence.
func (e *Endpoint) serveLoop() {
	defer e.wg.Done()

	for {
		msg, err := e.rep.Recv()
		if err != nil {
			select {
			case <-e.ctx.Done():
				return
			default:
				log.Printf("zmq endpoint: recv failed: %v", err)
				continue
			}
		}

		response, err := e.handler.Process(msg.Bytes())
		if err != nil {
			log.Printf("zmq endpoint: request failed: %v", err)
			response = e.marshalError(err)
		}

		if err := e.rep.Send(zmq4.NewMsg(response)); err != nil {
			select {
			case <-e.ctx.Done():
				return
			default:
				log.Printf("zmq endpoint: send failed: %v", err)
			}
		}
	}
}

func (e *Endpoint) marshalError(reqErr error) []byte {
	data, err := json.Marshal(errorReply{Error: reqErr.Error()})
	if err != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return data
}

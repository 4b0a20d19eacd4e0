package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	arrowio "github.com/datapythonista/arrow-prime/arrow"
	"github.com/datapythonista/arrow-prime/engine"
	"github.com/datapythonista/arrow-prime/kernel"
)

// ArrowHandler executes kernel operations on Arrow IPC request
// payloads.
type ArrowHandler struct {
	mem     memory.Allocator
	ipc     *arrowio.IPCWriter
	pool    *engine.Pool
	metrics *Metrics
}

// NewArrowHandler creates a handler running the kernel sequentially.
func NewArrowHandler() *ArrowHandler {
	return &ArrowHandler{
		mem: memory.NewGoAllocator(),
		ipc: arrowio.NewIPCWriter(),
	}
}

// WithPool makes the handler run classify and reduce on the pool.
func (h *ArrowHandler) WithPool(pool *engine.Pool) *ArrowHandler {
	h.pool = pool
	return h
}

// WithMetrics makes the handler record Prometheus metrics.
func (h *ArrowHandler) WithMetrics(m *Metrics) *ArrowHandler {
	h.metrics = m
	return h
}

// Process parses the request, runs the requested operation and
// serializes the response. Unknown operations, unsupported column
// types and malformed columns all fail the whole call; no partial
// results are produced.
func (h *ArrowHandler) Process(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("received empty request")
	}

	col, op, err := h.ipc.DeserializeRequest(data)
	if err != nil {
		h.recordError("decode")
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	defer col.Release()

	start := time.Now()
	resp, err := h.process(col, op)
	if err != nil {
		h.recordError(errorKind(err))
		return nil, err
	}

	if h.metrics != nil {
		h.metrics.RecordRequest(op, col.Len(), time.Since(start))
	}
	return resp, nil
}

func (h *ArrowHandler) process(col arrow.Array, op string) ([]byte, error) {
	switch op {
	case arrowio.OpIsPrime:
		res, err := h.classify(col)
		if err != nil {
			return nil, err
		}
		defer res.Release()
		return h.ipc.SerializeResult(res)

	case arrowio.OpAreAllPrimes:
		verdict, err := h.allPrime(col)
		if err != nil {
			return nil, err
		}
		if h.metrics != nil {
			h.metrics.RecordVerdict(verdict)
		}
		return h.ipc.SerializeVerdict(verdict)

	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func (h *ArrowHandler) classify(col arrow.Array) (*array.Boolean, error) {
	if h.pool != nil {
		return kernel.ClassifyParallel(context.Background(), h.mem, col, h.pool)
	}
	return kernel.Classify(h.mem, col)
}

func (h *ArrowHandler) allPrime(col arrow.Array) (kernel.Tristate, error) {
	if h.pool != nil {
		return kernel.AllPrimeParallel(context.Background(), col, h.pool)
	}
	return kernel.AllPrime(col)
}

func (h *ArrowHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.Errors.WithLabelValues(kind).Inc()
	}
}

// errorKind maps a kernel error to its metrics label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, kernel.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, kernel.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

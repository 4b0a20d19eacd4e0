package arrow

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/datapythonista/arrow-prime/kernel"
)

// IPCWriter serializes kernel requests and results to Arrow IPC
// streams and back.
type IPCWriter struct {
	allocator memory.Allocator
}

// NewIPCWriter creates a new IPCWriter with the default allocator.
func NewIPCWriter() *IPCWriter {
	return &IPCWriter{
		allocator: memory.DefaultAllocator,
	}
}

// SerializeColumn wraps an integer column in a request record for the
// given operation and serializes it to IPC bytes.
func (w *IPCWriter) SerializeColumn(col arrow.Array, op string) ([]byte, error) {
	schema := RequestSchema(col.DataType(), op)
	rec := array.NewRecord(schema, []arrow.Array{col}, int64(col.Len()))
	defer rec.Release()
	return w.serialize(rec)
}

// SerializeResult serializes a classify result column to IPC bytes.
func (w *IPCWriter) SerializeResult(res *array.Boolean) ([]byte, error) {
	rec := array.NewRecord(IsPrimeSchema(), []arrow.Array{res}, int64(res.Len()))
	defer rec.Release()
	return w.serialize(rec)
}

// SerializeVerdict serializes a reduction verdict as a length-1
// nullable boolean column.
func (w *IPCWriter) SerializeVerdict(v kernel.Tristate) ([]byte, error) {
	b := array.NewBooleanBuilder(w.allocator)
	defer b.Release()

	switch v {
	case kernel.Null:
		b.AppendNull()
	case kernel.False:
		b.Append(false)
	case kernel.True:
		b.Append(true)
	}

	col := b.NewBooleanArray()
	defer col.Release()

	rec := array.NewRecord(AllPrimesSchema(), []arrow.Array{col}, 1)
	defer rec.Release()
	return w.serialize(rec)
}

// serialize writes a single record as an IPC stream.
func (w *IPCWriter) serialize(record arrow.Record) ([]byte, error) {
	var buf bytes.Buffer

	writer := ipc.NewWriter(&buf, ipc.WithSchema(record.Schema()), ipc.WithAllocator(w.allocator))
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to write record: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// DeserializeRequest parses IPC bytes into the request column and
// operation name. The returned column is retained and must be
// released by the caller.
func (w *IPCWriter) DeserializeRequest(data []byte) (arrow.Array, string, error) {
	rec, err := w.readRecord(data)
	if err != nil {
		return nil, "", err
	}
	defer rec.Release()

	if rec.NumCols() != 1 {
		return nil, "", fmt.Errorf("request must have exactly 1 column, got %d", rec.NumCols())
	}

	op := OpIsPrime
	md := rec.Schema().Metadata()
	if idx := md.FindKey(MetadataOpKey); idx >= 0 {
		op = md.Values()[idx]
	}

	col := rec.Column(0)
	col.Retain()
	return col, op, nil
}

// DeserializeResult parses IPC bytes into a classify result column.
// The returned array is retained and must be released by the caller.
func (w *IPCWriter) DeserializeResult(data []byte) (*array.Boolean, error) {
	rec, err := w.readRecord(data)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	if rec.NumCols() != 1 {
		return nil, fmt.Errorf("result must have exactly 1 column, got %d", rec.NumCols())
	}

	col, ok := rec.Column(0).(*array.Boolean)
	if !ok {
		return nil, fmt.Errorf("result column must be boolean, got %s", rec.Column(0).DataType())
	}

	col.Retain()
	return col, nil
}

// DeserializeVerdict parses IPC bytes into a reduction verdict.
func (w *IPCWriter) DeserializeVerdict(data []byte) (kernel.Tristate, error) {
	col, err := w.DeserializeResult(data)
	if err != nil {
		return kernel.Null, err
	}
	defer col.Release()

	if col.Len() != 1 {
		return kernel.Null, fmt.Errorf("verdict column must have 1 row, got %d", col.Len())
	}

	switch {
	case col.IsNull(0):
		return kernel.Null, nil
	case col.Value(0):
		return kernel.True, nil
	default:
		return kernel.False, nil
	}
}

// readRecord reads the first record of an IPC stream, retained for
// the caller.
func (w *IPCWriter) readRecord(data []byte) (arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(w.allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if reader.Err() != nil {
			return nil, reader.Err()
		}
		return nil, fmt.Errorf("no records in IPC data")
	}

	record := reader.Record()
	record.Retain() // keep the record alive past the reader's release
	return record, nil
}

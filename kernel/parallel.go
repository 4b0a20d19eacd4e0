package kernel

import (
	"context"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/datapythonista/arrow-prime/engine"
	"github.com/datapythonista/arrow-prime/prime"
)

// ClassifyParallel computes Classify by partitioning the column into
// contiguous spans on the pool. Per-element primality has no
// cross-element dependency, so span results land in disjoint slice
// ranges and the output is identical to the sequential path.
func ClassifyParallel(ctx context.Context, mem memory.Allocator, arr arrow.Array, pool *engine.Pool) (*array.Boolean, error) {
	read, err := readerFor(arr)
	if err != nil {
		return nil, err
	}
	if err := validateValidity(arr); err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	n := arr.Len()
	values := make([]bool, n)
	valid := make([]bool, n)

	err = pool.Map(ctx, n, func(s engine.Span) error {
		for i := s.Start; i < s.End; i++ {
			if arr.IsNull(i) {
				continue
			}
			valid[i] = true
			v, negative := read(i)
			values[i] = !negative && prime.IsPrimeUint64(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewBooleanArray(), nil
}

// AllPrimeParallel computes AllPrime by folding per-span verdicts with
// the three-valued AND. The fold is order-insensitive, so the result
// matches the sequential scan regardless of span boundaries or worker
// scheduling.
func AllPrimeParallel(ctx context.Context, arr arrow.Array, pool *engine.Pool) (Tristate, error) {
	read, err := readerFor(arr)
	if err != nil {
		return Null, err
	}
	if err := validateValidity(arr); err != nil {
		return Null, err
	}

	n := arr.Len()
	if n == 0 {
		return Null, nil
	}

	var mu sync.Mutex
	verdict := True // identity of the three-valued AND

	err = pool.Map(ctx, n, func(s engine.Span) error {
		sv := spanVerdict(read, arr, s)
		mu.Lock()
		verdict = verdict.And(sv)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return Null, err
	}

	return verdict, nil
}

// spanVerdict reduces one span: False on any non-prime, Null when the
// span holds no non-null elements or nulls alongside primes only, True
// otherwise.
func spanVerdict(read intReader, arr arrow.Array, s engine.Span) Tristate {
	sawNull := false
	sawPrime := false

	for i := s.Start; i < s.End; i++ {
		if arr.IsNull(i) {
			sawNull = true
			continue
		}
		v, negative := read(i)
		if negative || !prime.IsPrimeUint64(v) {
			return False
		}
		sawPrime = true
	}

	if !sawPrime || sawNull {
		return Null
	}
	return True
}

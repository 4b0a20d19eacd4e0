package kernel

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/datapythonista/arrow-prime/prime"
)

// Tristate is a three-valued boolean, the result of reducing a column
// that may contain nulls.
type Tristate int8

// Tristate values. The zero value is Null.
const (
	Null Tristate = iota
	False
	True
)

// String returns "null", "false" or "true".
func (t Tristate) String() string {
	switch t {
	case False:
		return "false"
	case True:
		return "true"
	default:
		return "null"
	}
}

// And folds two verdicts with three-valued AND semantics: False
// dominates everything, Null dominates True. The fold is commutative
// and associative, so partial verdicts can be combined in any order.
func (t Tristate) And(other Tristate) Tristate {
	if t == False || other == False {
		return False
	}
	if t == Null || other == Null {
		return Null
	}
	return True
}

// intReader yields element i of an integer column as a uint64 plus a
// flag for negative values, which are never prime.
type intReader func(i int) (v uint64, negative bool)

// readerFor returns a typed element accessor for a supported integer
// column, or ErrUnsupported for any other data type.
func readerFor(arr arrow.Array) (intReader, error) {
	switch a := arr.(type) {
	case *array.Int8:
		return func(i int) (uint64, bool) {
			v := a.Value(i)
			return uint64(v), v < 0
		}, nil
	case *array.Int16:
		return func(i int) (uint64, bool) {
			v := a.Value(i)
			return uint64(v), v < 0
		}, nil
	case *array.Int32:
		return func(i int) (uint64, bool) {
			v := a.Value(i)
			return uint64(v), v < 0
		}, nil
	case *array.Int64:
		return func(i int) (uint64, bool) {
			v := a.Value(i)
			return uint64(v), v < 0
		}, nil
	case *array.Uint8:
		return func(i int) (uint64, bool) { return uint64(a.Value(i)), false }, nil
	case *array.Uint16:
		return func(i int) (uint64, bool) { return uint64(a.Value(i)), false }, nil
	case *array.Uint32:
		return func(i int) (uint64, bool) { return uint64(a.Value(i)), false }, nil
	case *array.Uint64:
		return func(i int) (uint64, bool) { return a.Value(i), false }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, arr.DataType())
	}
}

// validateValidity checks that the column's validity bitmap, when
// present, covers the full column length.
func validateValidity(arr arrow.Array) error {
	data := arr.Data()
	buffers := data.Buffers()
	if len(buffers) == 0 || buffers[0] == nil {
		return nil
	}
	need := bitutil.BytesForBits(int64(data.Offset() + data.Len()))
	if int64(buffers[0].Len()) < need {
		return fmt.Errorf("%w: validity bitmap has %d bytes, need %d for %d elements",
			ErrInvalidInput, buffers[0].Len(), need, data.Len())
	}
	return nil
}

// Validate checks a column eagerly: the data type must be a supported
// fixed-width integer type and the validity bitmap must cover the
// column length. Classify and AllPrime run the same checks before any
// per-element work.
func Validate(arr arrow.Array) error {
	if _, err := readerFor(arr); err != nil {
		return err
	}
	return validateValidity(arr)
}

// Classify computes per-element primality for an integer column.
//
// The result is a nullable boolean column of the same length carrying
// the input's null pattern: null elements stay null, every other
// element becomes true exactly when its value is prime. Negative
// values, zero and one are not prime. The input is never mutated; the
// returned array is owned by the caller, which must Release it.
func Classify(mem memory.Allocator, arr arrow.Array) (*array.Boolean, error) {
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

	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.Reserve(arr.Len())

	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		v, negative := read(i)
		b.Append(!negative && prime.IsPrimeUint64(v))
	}

	return b.NewBooleanArray(), nil
}

// AllPrime reduces a column to a single three-valued verdict: False if
// any non-null element is not prime, Null if the column has no
// non-null elements or contains nulls alongside primes only, True
// otherwise. Nulls suppress True but never False. The scan stops at
// the first non-prime.
func AllPrime(arr arrow.Array) (Tristate, error) {
	read, err := readerFor(arr)
	if err != nil {
		return Null, err
	}
	if err := validateValidity(arr); err != nil {
		return Null, err
	}

	sawPrime := false
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		v, negative := read(i)
		if negative || !prime.IsPrimeUint64(v) {
			return False, nil
		}
		sawPrime = true
	}

	if !sawPrime || arr.NullN() > 0 {
		return Null, nil
	}
	return True, nil
}

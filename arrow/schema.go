package arrow

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// MetadataOpKey is the schema metadata key naming the requested
// operation on a request stream.
const MetadataOpKey = "arrow_prime.op"

// Operation names accepted in request metadata. A request without the
// metadata key defaults to OpIsPrime.
const (
	OpIsPrime      = "is_prime"
	OpAreAllPrimes = "are_all_primes"
)

// RequestSchema returns the schema of a request record carrying the
// given value type under the given operation.
//
// Fields:
//   - values: any fixed-width integer type (nullable) - Column to test
func RequestSchema(valueType arrow.DataType, op string) *arrow.Schema {
	md := arrow.NewMetadata([]string{MetadataOpKey}, []string{op})
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "values", Type: valueType, Nullable: true},
		},
		&md,
	)
}

// IsPrimeSchema returns the schema of a classify response.
//
// Fields:
//   - is_prime: bool (nullable) - Per-element primality, nulls propagated
func IsPrimeSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "is_prime", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		},
		nil,
	)
}

// AllPrimesSchema returns the schema of a reduction response. The
// single row is null when the column holds no non-null elements or
// when nulls suppress a true verdict.
//
// Fields:
//   - all_primes: bool (nullable) - Three-valued reduction verdict
func AllPrimesSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "all_primes", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		},
		nil,
	)
}

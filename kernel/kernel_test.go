package kernel

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func buildInt64(t *testing.T, values []int64, valid []bool) *array.Int64 {
	t.Helper()
	b := array.NewInt64Builder(memory.NewGoAllocator())
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewInt64Array()
}

func classifyOrFatal(t *testing.T, col arrow.Array) *array.Boolean {
	t.Helper()
	res, err := Classify(nil, col)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	return res
}

func TestClassifySingleValues(t *testing.T) {
	cases := []struct {
		value int64
		want  bool
	}{
		{2, true},
		{4, false},
		{1, false},
		{-7, false},
	}

	for _, c := range cases {
		col := buildInt64(t, []int64{c.value}, nil)
		res := classifyOrFatal(t, col)

		if res.Len() != 1 {
			t.Fatalf("Classify([%d]) has length %d, want 1", c.value, res.Len())
		}
		if res.IsNull(0) {
			t.Errorf("Classify([%d]) is null, want %v", c.value, c.want)
		} else if res.Value(0) != c.want {
			t.Errorf("Classify([%d]) = %v, want %v", c.value, res.Value(0), c.want)
		}

		res.Release()
		col.Release()
	}
}

func TestClassifyWithNulls(t *testing.T) {
	col := buildInt64(t, []int64{2, 3, 4, 5, 0, 9}, []bool{true, true, true, true, false, true})
	defer col.Release()

	res := classifyOrFatal(t, col)
	defer res.Release()

	if res.Len() != col.Len() {
		t.Fatalf("result length %d, want %d", res.Len(), col.Len())
	}

	want := []struct {
		null  bool
		value bool
	}{
		{false, true},
		{false, true},
		{false, false},
		{false, true},
		{true, false},
		{false, false},
	}

	for i, w := range want {
		if res.IsNull(i) != w.null {
			t.Errorf("result[%d] null = %v, want %v", i, res.IsNull(i), w.null)
			continue
		}
		if !w.null && res.Value(i) != w.value {
			t.Errorf("result[%d] = %v, want %v", i, res.Value(i), w.value)
		}
	}
}

func TestClassifyEmpty(t *testing.T) {
	col := buildInt64(t, nil, nil)
	defer col.Release()

	res := classifyOrFatal(t, col)
	defer res.Release()

	if res.Len() != 0 {
		t.Errorf("result length %d, want 0", res.Len())
	}
}

func TestClassifyIdempotent(t *testing.T) {
	col := buildInt64(t, []int64{2, 3, 4, -5, 97, 91}, []bool{true, true, false, true, true, true})
	defer col.Release()

	first := classifyOrFatal(t, col)
	defer first.Release()
	second := classifyOrFatal(t, col)
	defer second.Release()

	if !array.Equal(first, second) {
		t.Errorf("Classify is not idempotent: %v != %v", first, second)
	}
}

func TestClassifyAllIntegerWidths(t *testing.T) {
	mem := memory.NewGoAllocator()
	want := []bool{true, true, false, true, false}

	cols := []arrow.Array{}
	{
		b := array.NewInt8Builder(mem)
		b.AppendValues([]int8{2, 3, 4, 5, 6}, nil)
		cols = append(cols, b.NewInt8Array())
		b.Release()
	}
	{
		b := array.NewInt16Builder(mem)
		b.AppendValues([]int16{2, 3, 4, 5, 6}, nil)
		cols = append(cols, b.NewInt16Array())
		b.Release()
	}
	{
		b := array.NewInt32Builder(mem)
		b.AppendValues([]int32{2, 3, 4, 5, 6}, nil)
		cols = append(cols, b.NewInt32Array())
		b.Release()
	}
	{
		b := array.NewUint8Builder(mem)
		b.AppendValues([]uint8{2, 3, 4, 5, 6}, nil)
		cols = append(cols, b.NewUint8Array())
		b.Release()
	}
	{
		b := array.NewUint16Builder(mem)
		b.AppendValues([]uint16{2, 3, 4, 5, 6}, nil)
		cols = append(cols, b.NewUint16Array())
		b.Release()
	}
	{
		b := array.NewUint32Builder(mem)
		b.AppendValues([]uint32{2, 3, 4, 5, 6}, nil)
		cols = append(cols, b.NewUint32Array())
		b.Release()
	}
	{
		b := array.NewUint64Builder(mem)
		b.AppendValues([]uint64{2, 3, 4, 5, 6}, nil)
		cols = append(cols, b.NewUint64Array())
		b.Release()
	}

	for _, col := range cols {
		res := classifyOrFatal(t, col)
		for i, w := range want {
			if res.IsNull(i) || res.Value(i) != w {
				t.Errorf("%s: result[%d] = %v, want %v", col.DataType(), i, res.Value(i), w)
			}
		}
		res.Release()
		col.Release()
	}
}

func TestClassifyUint64FullRange(t *testing.T) {
	b := array.NewUint64Builder(memory.NewGoAllocator())
	defer b.Release()
	// values above MaxInt64 must classify exactly, no truncation path
	b.AppendValues([]uint64{18446744073709551557, 18446744073709551556, 2305843009213693951}, nil)

	col := b.NewUint64Array()
	defer col.Release()

	res := classifyOrFatal(t, col)
	defer res.Release()

	want := []bool{true, false, true}
	for i, w := range want {
		if res.Value(i) != w {
			t.Errorf("result[%d] = %v, want %v", i, res.Value(i), w)
		}
	}
}

func TestClassifyUnsupportedType(t *testing.T) {
	mem := memory.NewGoAllocator()

	fb := array.NewFloat64Builder(mem)
	fb.AppendValues([]float64{2.0, 3.0}, nil)
	floats := fb.NewFloat64Array()
	fb.Release()
	defer floats.Release()

	if _, err := Classify(mem, floats); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Classify(float64) error = %v, want ErrUnsupported", err)
	}
	if _, err := AllPrime(floats); !errors.Is(err, ErrUnsupported) {
		t.Errorf("AllPrime(float64) error = %v, want ErrUnsupported", err)
	}
	if err := Validate(floats); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Validate(float64) error = %v, want ErrUnsupported", err)
	}

	sb := array.NewStringBuilder(mem)
	sb.AppendValues([]string{"2", "3"}, nil)
	strs := sb.NewStringArray()
	sb.Release()
	defer strs.Release()

	if _, err := Classify(mem, strs); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Classify(string) error = %v, want ErrUnsupported", err)
	}
}

func TestClassifyInvalidValidityBitmap(t *testing.T) {
	// 10 int64 values need 2 validity bytes; hand the array only 1.
	const n = 10
	values := memory.NewBufferBytes(make([]byte, 8*n))
	validity := memory.NewBufferBytes([]byte{0xFF})

	data := array.NewData(arrow.PrimitiveTypes.Int64, n,
		[]*memory.Buffer{validity, values}, nil, 2, 0)
	defer data.Release()

	col := array.NewInt64Data(data)
	defer col.Release()

	if err := Validate(col); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate error = %v, want ErrInvalidInput", err)
	}
	if _, err := Classify(nil, col); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Classify error = %v, want ErrInvalidInput", err)
	}
	if _, err := AllPrime(col); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("AllPrime error = %v, want ErrInvalidInput", err)
	}
}

func TestAllPrime(t *testing.T) {
	cases := []struct {
		name   string
		values []int64
		valid  []bool
		want   Tristate
	}{
		{"all primes", []int64{2, 3, 5, 7}, nil, True},
		{"one composite", []int64{2, 3, 4}, nil, False},
		{"empty", nil, nil, Null},
		{"all null", []int64{0, 0}, []bool{false, false}, Null},
		{"null suppresses true", []int64{2, 0}, []bool{true, false}, Null},
		{"false beats null", []int64{4, 0}, []bool{true, false}, False},
		{"negative", []int64{-3}, nil, False},
		{"large prime", []int64{9223372036854775783}, nil, True},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			col := buildInt64(t, c.values, c.valid)
			defer col.Release()

			got, err := AllPrime(col)
			if err != nil {
				t.Fatalf("AllPrime failed: %v", err)
			}
			if got != c.want {
				t.Errorf("AllPrime = %v, want %v", got, c.want)
			}
		})
	}
}

func TestTristateAnd(t *testing.T) {
	cases := []struct {
		a, b, want Tristate
	}{
		{True, True, True},
		{True, Null, Null},
		{True, False, False},
		{Null, Null, Null},
		{Null, False, False},
		{False, False, False},
	}

	for _, c := range cases {
		if got := c.a.And(c.b); got != c.want {
			t.Errorf("%v.And(%v) = %v, want %v", c.a, c.b, got, c.want)
		}
		// the fold is commutative
		if got := c.b.And(c.a); got != c.want {
			t.Errorf("%v.And(%v) = %v, want %v", c.b, c.a, got, c.want)
		}
	}
}

func TestTristateString(t *testing.T) {
	if Null.String() != "null" || False.String() != "false" || True.String() != "true" {
		t.Errorf("unexpected Tristate strings: %v %v %v", Null, False, True)
	}
}

func BenchmarkClassify(b *testing.B) {
	builder := array.NewInt64Builder(memory.NewGoAllocator())
	defer builder.Release()
	for i := 0; i < 100000; i++ {
		builder.Append(int64(i))
	}
	col := builder.NewInt64Array()
	defer col.Release()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		res, err := Classify(nil, col)
		if err != nil {
			b.Fatalf("Classify failed: %v", err)
		}
		res.Release()
	}

	b.ReportMetric(float64(col.Len()*b.N)/b.Elapsed().Seconds(), "elem/sec")
}

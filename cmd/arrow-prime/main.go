package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/datapythonista/arrow-prime/kernel"
)

func main() {
	all := flag.Bool("all", false, "print only the are-all-primes verdict")
	flag.Parse()

	values, valid, err := parseInputs(flag.Args())
	if err != nil {
		log.Fatalf("arrow-prime: %v", err)
	}

	mem := memory.NewGoAllocator()
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)

	col := b.NewInt64Array()
	defer col.Release()

	if *all {
		verdict, err := kernel.AllPrime(col)
		if err != nil {
			log.Fatalf("arrow-prime: %v", err)
		}
		fmt.Println(verdict)
		return
	}

	res, err := kernel.Classify(mem, col)
	if err != nil {
		log.Fatalf("arrow-prime: %v", err)
	}
	defer res.Release()

	for i := 0; i < res.Len(); i++ {
		switch {
		case res.IsNull(i):
			fmt.Println("null\tnull")
		case res.Value(i):
			fmt.Printf("%d\ttrue\n", col.Value(i))
		default:
			fmt.Printf("%d\tfalse\n", col.Value(i))
		}
	}
}

// parseInputs reads integers from the arguments, or from stdin when no
// arguments are given, one value per line. The literal "null" becomes
// a null element.
func parseInputs(args []string) ([]int64, []bool, error) {
	if len(args) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			args = append(args, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, nil, err
		}
	}

	values := make([]int64, len(args))
	valid := make([]bool, len(args))
	for i, arg := range args {
		if arg == "null" {
			continue
		}
		v, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("not an integer: %q", arg)
		}
		values[i] = v
		valid[i] = true
	}
	return values, valid, nil
}

package main

import (
	"fmt"
	"os"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "arrow-prime"
)

func main() {
	fmt.Printf("%s v%s\n", Name, Version)
	fmt.Println("Columnar primality kernel for Apache Arrow integer arrays")
	fmt.Println("Binaries: cmd/arrow-prime, cmd/arrow-prime-server")
	os.Exit(0)
}

// Package kernel implements columnar primality testing over Apache
// Arrow integer arrays.
// This package implements:
// - Classify: per-element primality with null propagation
// - AllPrime: three-valued reduction over a column
// - Parallel variants partitioning a column into contiguous spans
package kernel

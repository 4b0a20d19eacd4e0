// Package arrow provides the Arrow IPC wire format for the primality
// kernel. This package implements:
// - Request/response schema definitions
// - IPC serialization of integer columns and boolean results
// - Tristate encoding as a length-1 nullable boolean column
package arrow

// Package utils provides shared low-level helpers used throughout the
// pipeline internals: lenient string-to-type parsing with JSON repair
// fallback, generic pointer and string utilities, and a simple
// elapsed-time timer.
//
// Key entry points: [ParseStringAs] for parsing manifest fields leniently,
// [Ptr] for converting values to pointers, and [Timer] for measuring phase
// execution latency.
package utils

// Package builtin provides the concrete value representations and installs
// their operators into a value.Dispatcher.
//
// Types installed by Install:
//   - real double scalar, matrix, range, diagonal and permutation matrices
//   - complex scalar and matrix
//   - logical scalar and matrix
//   - compressed-column sparse matrix
//   - char strings, cells, scalar structs and class objects
//   - signed and unsigned 8, 16, 32 and 64 bit integer scalars and matrices
//
// Dense real kernels (matrix product, solve, integer power) use gonum.
// Everything else runs on the package's own column-major arrays.
package builtin

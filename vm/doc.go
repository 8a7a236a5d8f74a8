// Package vm implements the Garnet execution core.
//
// This package contains:
//   - NaN-boxed value representation
//   - Modules, classes, and their method and constant tables
//   - The global method cache and the resolver behind it
//   - Tasks: activation chains, the hot register file, and the
//     bytecode execute loop
//   - Compiled-file encoding and the content-addressed method store
package vm

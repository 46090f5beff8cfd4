// Package vm implements the Maggie virtual machine.
//
// This package contains:
//   - NaN-boxed value representation
//   - Object layout and slot access
//   - VTable-based method dispatch
//   - Bytecode interpreter
//   - Primitive class implementations
package vm

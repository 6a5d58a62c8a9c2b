// Package vm implements the value layer of an ECMAScript engine.
//
// This package contains:
//   - NaN-boxed value representation
//   - Type coercions and Number formatting
//   - Dense and sparse indexed storage for arrays
//   - The Array.prototype algorithms
//   - A mark/sweep heap with persistent and weak handles
package vm

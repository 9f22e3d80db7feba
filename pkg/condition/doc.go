// Package condition compiles rule condition expressions into cached, pure
// predicates over (facts, computed).
//
// Expressions are CEL with macros disabled and a per-document identifier
// allow-list: every variable a condition may reference is declared up
// front, so an unknown identifier is a compile-time error rather than a
// silent runtime miss. Compiled programs are cached by the exact expression
// text, missing facts evaluate to null, and runtime type errors surface as
// per-rule evaluation failures.
package condition

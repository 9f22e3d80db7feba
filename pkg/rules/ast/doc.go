// Package ast defines the in-memory representation of declarative
// validation rules: severity tiers, the Rule record, and the immutable
// RuleSet loaded for one (jurisdiction, product) scope.
//
// Condition expressions are carried here as opaque strings; their grammar
// and compilation live in the condition package.
package ast

// Package engine evaluates validated rule-sets against fact and computed
// contexts, producing classified validation results and, in explainable
// mode, a per-rule account of what was evaluated, skipped and fired.
//
// Evaluation is deterministic and fail-soft: a single rule's runtime
// failure skips that rule and logs it; it never aborts the evaluation.
// IsValid is true exactly when the blocker list is empty.
package engine

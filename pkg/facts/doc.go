// Package facts defines the fact context supplied by callers and the
// computed context derived from it once per evaluation: date arithmetic,
// arrears and deposit-cap thresholds, and notice-period determinations.
package facts

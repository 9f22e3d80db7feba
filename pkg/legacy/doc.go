// Package legacy is the hard-coded rule implementation that predates the
// declarative engine. It is kept verbatim in behaviour for shadow-mode
// comparison and as the fallback path during rollout, and is removed from
// the request path only at the final rollout phase.
//
// Do not extend it: new checks belong in rule documents evaluated by the
// declarative engine.
package legacy

// Package service exposes the rule engine to external callers: evaluate,
// explainable evaluate, tenant rule validation and audit export.
//
// Tenant context is request-scoped. It arrives as a parameter on each
// call and is threaded explicitly through the evaluation; the service
// holds no per-tenant state between requests.
package service

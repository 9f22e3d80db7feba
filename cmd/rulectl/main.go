// Rulectl operates the landlord document rule engine.
//
// Usage:
//
//	# Validate rule documents before deployment
//	rulectl lint --dir rules/
//
//	# Evaluate a facts file against a jurisdiction/product/route
//	rulectl eval --jurisdiction england --product possession --route s21 --facts case.json
//
//	# Export the audit log
//	rulectl audit export --tenant acme --format csv
//
//	# Inspect or change the rollout phase
//	rulectl rollout status
//	rulectl rollout advance --actor ops@example.com --reason "parity stable"
package main

func main() {
	Execute()
}

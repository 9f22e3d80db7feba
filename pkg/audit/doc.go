// Package audit provides the append-only governance log: every override
// application, emergency suppression/restoration and rollout transition is
// recorded with actor and reason, queryable and exportable for compliance
// review. Storage backends live in audit/storage, exporters in
// audit/export, and the retention scheduler in audit/retention.
package audit

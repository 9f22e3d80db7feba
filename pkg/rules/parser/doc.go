// Package parser parses declarative rule documents (YAML) into validated
// RuleSets. The document format is a contract: unknown keys at any level
// are rejected, the shape is checked against an embedded JSON schema, and
// route/severity cross-references are validated structurally. Parsing is
// all-or-nothing; a document with any error never produces a RuleSet.
package parser

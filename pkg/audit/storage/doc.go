// Package storage provides audit.Storage backends: an in-memory
// implementation for tests and a SQLite implementation for production use.
package storage

// Package database provides configuration loading, connection management,
// query hooks, schema migrations, foreign key handling, model registration
// and store error classification built on top of Bun.
package database

// Package directory provides AccountDirectory implementations: a Postgres
// store over the users and accounts tables, and an in-memory store for tests
// and demos.
//
// Both enforce a single Owner. Postgres does it with a partial unique index
// and row locks in TransferOwnership; Memory does it under one mutex.
package directory

// Package pgstore is a PostgreSQL-backed credential provider built on
// pgx/v5 connection pools: a credentials table with row-locked lockout
// updates and a shared_suites table deduplicated by content hash.
package pgstore

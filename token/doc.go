// Package token issues and verifies the signed handles that carry a session
// id between requests. Tokens are a transport detail: all validity decisions
// are made against the session record they point at.
package token

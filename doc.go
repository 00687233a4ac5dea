// Package auth implements the session core for the fleet backend: signed
// credential pairs (a short-lived access token plus a long-lived renewal
// token), transparent rotation of expired access tokens, and a role gate
// for admin-only routes.
//
// The package is transport-aware but storage-agnostic at its center: the
// Auther consumes a Directory (identity lookup, password verification,
// renewal-credential storage) and produces authentication decisions. A
// bun-backed Directory implementation and fiber HTTP bindings live in the
// same package so a server can be assembled from one import.
package auth

// Package middleware wraps tree stores with cross-cutting behavior, such as
// encrypting tree documents at rest.
package middleware

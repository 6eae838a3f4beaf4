// Package v1 is the HTTP surface of the update server: the REST update check,
// the administrative API behind session tokens, health, metrics and local
// artifact downloads.
package v1

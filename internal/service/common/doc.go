// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper for the update service with
// call timeouts, and builds update-check requests from the client settings.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

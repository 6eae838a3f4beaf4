// Package v1 holds the update.v1 gRPC contract generated from
// proto/update/v1/update.proto.
package v1

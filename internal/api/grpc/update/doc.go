// Package update exposes the rollout evaluator over gRPC.
package update

// Package rollout decides whether a client is offered an update.
//
// Bucket assigns every (client, release) pair a stable number in [0,100).
// The Evaluator walks the releases newer than the client's version from the
// newest down and offers the first one whose rollout percentage exceeds the
// client's bucket, so raising a percentage only ever widens eligibility.
package rollout

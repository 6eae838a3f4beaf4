// Package logger wraps zap for the update server and its tools.
//
// A sugared logger travels inside context.Context (ToContext, FromContext,
// WithName, WithKV), so every layer logs with the scope of the request that
// reached it. Setup builds the process logger from configuration: a colored
// console core on stdout and, optionally, a JSON core writing to a rotating
// file through lumberjack.
package logger

// Package logger provides structured logging for the trust core on top of zap.
//
// The command-line tool calls Init once at startup and passes Named loggers
// into the library; library code never reaches for the singleton itself and
// receives a *zap.Logger through options instead.
//
// Secrets never go into fields: no nonces, signatures, private keys or
// plaintext. The helpers in fields.go only cover identifiers.
package logger

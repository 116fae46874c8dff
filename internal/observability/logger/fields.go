package logger

import (
	"time"

	"go.uber.org/zap"
)

// Component names the emitting component.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op names the current operation.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Serial is a certificate serial number in hex.
func Serial(v string) zap.Field {
	return zap.String("serial", v)
}

// Username is the subject of an identity.
func Username(v string) zap.Field {
	return zap.String("username", v)
}

// KeyID is a public key fingerprint.
func KeyID(v string) zap.Field {
	return zap.String("kid", v)
}

// ChallengeID is the identifier of a challenge, never its nonce.
func ChallengeID(v string) zap.Field {
	return zap.String("challenge_id", v)
}

// Status is a verification outcome.
func Status(v string) zap.Field {
	return zap.String("status", v)
}

// Reason is a revocation or failure reason.
func Reason(v string) zap.Field {
	return zap.String("reason", v)
}

// Count is a generic count.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// Duration is an elapsed time.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Err wraps an error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

package protocol

import "time"

var defaultTTLs = map[string]time.Duration{
	TypeContainerClosed:      24 * time.Hour,
	TypeContainerDispatched:  30 * time.Minute,
	TypeContainerDispatchAck: 30 * time.Minute,
}

// FallbackTTL is used when no specific TTL is configured.
const FallbackTTL = 10 * time.Minute

// DefaultTTLFor returns the default TTL for a message type.
func DefaultTTLFor(msgType string) time.Duration {
	if ttl, ok := defaultTTLs[msgType]; ok {
		return ttl
	}
	return FallbackTTL
}

// IsExpired reports whether the envelope has passed its expiry time.
func IsExpired(env *Envelope) bool {
	return expired(env.ExpiresAt)
}

// IsExpiredHeader checks expiry using only the raw header.
func IsExpiredHeader(hdr *RawHeader) bool {
	return expired(hdr.ExpiresAt)
}

func expired(exp time.Time) bool {
	if exp.IsZero() {
		return false
	}
	return time.Now().UTC().After(exp)
}

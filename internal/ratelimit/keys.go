package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Tier selects one window/limit pair.
type Tier string

const (
	// TierGeneral covers ordinary API traffic.
	TierGeneral Tier = "general"
	// TierAuth covers authentication endpoints, which get much stricter limits.
	TierAuth Tier = "auth"
	// TierSensitive covers high-value operations and adds a hard block once
	// the limit is exhausted.
	TierSensitive Tier = "sensitive"
)

// ClientKey identifies one caller: IP, a short hash of the User-Agent, and
// the user ID (or "anonymous"). Hashing the UA keeps raw header bytes out of
// bucket keys; sanitization stops identifiers containing the delimiter from
// colliding with adjacent buckets.
func ClientKey(ip, userAgent, userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	uaHash := sha256.Sum256([]byte(userAgent))
	return fmt.Sprintf("%s:%s:%s",
		sanitizeKeySegment(ip),
		hex.EncodeToString(uaHash[:])[:12],
		sanitizeKeySegment(userID),
	)
}

// bucketKey scopes a client key to one tier.
func bucketKey(tier Tier, clientKey string) string {
	return string(tier) + ":" + clientKey
}

// sanitizeKeySegment escapes delimiter characters in key segments.
// Escape order matters: the escape character itself goes first, so no two
// distinct inputs can produce the same sanitized output.
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}

// Package session tracks established sessions, binds them to client
// fingerprints, and destroys them on hijack indicators or inactivity.
package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// ComputeFingerprint derives a stable client fingerprint from the origin IP
// and a normalized User-Agent. The UA is reduced to browser/major-version/
// OS/platform before hashing so a routine patch release does not read as a
// different client, while a genuinely different browser or OS does.
func ComputeFingerprint(ip, userAgentString string) string {
	data := fmt.Sprintf("%s|%s", ip, normalizeUserAgent(userAgentString))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func normalizeUserAgent(userAgentString string) string {
	if userAgentString == "" {
		return "unknown|unknown|unknown|desktop"
	}

	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()

	majorVersion := "unknown"
	if version != "" {
		parts := strings.Split(version, ".")
		if len(parts) > 0 && parts[0] != "" {
			majorVersion = parts[0]
		}
	}

	os := ua.OS()
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}
	os = strings.ToLower(strings.TrimSpace(os))
	if os == "" {
		os = "unknown"
	}

	return fmt.Sprintf("%s|%s|%s|%s", browser, majorVersion, os, platform)
}

// FingerprintsMatch compares fingerprints in constant time to avoid leaking
// structure through timing.
func FingerprintsMatch(stored, current string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(current)) == 1
}

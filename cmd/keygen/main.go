// Package main provides a CLI tool for generating careshield key material:
// field encryption keys, admin secret hashes and dev stream tokens.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"careshield/internal/session"
	"careshield/pkg/secrets"
)

func main() {
	fieldkeyCmd := flag.NewFlagSet("fieldkey", flag.ExitOnError)
	fieldkeyJSON := fieldkeyCmd.Bool("json", false, "Output as JSON")

	adminCmd := flag.NewFlagSet("admin-hash", flag.ExitOnError)
	adminSecret := adminCmd.String("secret", "", "Admin secret to hash. Generated if empty.")
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	streamCmd := flag.NewFlagSet("stream-token", flag.ExitOnError)
	streamSecret := streamCmd.String("secret", "", "Session secret the server was started with (required)")
	streamUserID := streamCmd.String("user-id", "", "User ID. Generated if empty.")
	streamSessionID := streamCmd.String("session-id", "", "Session ID. Generated if empty.")
	streamTTL := streamCmd.Duration("ttl", 5*time.Minute, "Token time-to-live")
	streamJSON := streamCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fieldkey":
		fieldkeyCmd.Parse(os.Args[2:])
		generateFieldKey(*fieldkeyJSON)
	case "admin-hash":
		adminCmd.Parse(os.Args[2:])
		generateAdminHash(*adminSecret, *adminJSON)
	case "stream-token":
		streamCmd.Parse(os.Args[2:])
		generateStreamToken(*streamSecret, *streamUserID, *streamSessionID, *streamTTL, *streamJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`keygen - Generate careshield key material

Usage:
  keygen <command> [flags]

Commands:
  fieldkey      Generate a 32-byte AES key for FIELD_ENCRYPTION_KEY
  admin-hash    Generate a bcrypt hash for ADMIN_SECRET_HASH
  stream-token  Issue a dev stream token signed with a session secret

Examples:
  # Generate a field encryption key
  keygen fieldkey

  # Hash an admin secret for the environment
  keygen admin-hash -secret "my-admin-secret"

  # Issue a stream token for manual API testing
  keygen stream-token -secret "dev-session-secret" -ttl 1h

Use "keygen <command> -h" for more information about a command.`)
}

func generateFieldKey(jsonOutput bool) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"hex":    hex.EncodeToString(key),
			"base64": base64.StdEncoding.EncodeToString(key),
			"env":    "FIELD_ENCRYPTION_KEY",
		})
		return
	}

	fmt.Println("Field Encryption Key")
	fmt.Println("====================")
	fmt.Printf("Hex:    %s\n", hex.EncodeToString(key))
	fmt.Printf("Base64: %s\n", base64.StdEncoding.EncodeToString(key))
	fmt.Println()
	fmt.Println("Set either encoding as FIELD_ENCRYPTION_KEY.")
}

func generateAdminHash(secret string, jsonOutput bool) {
	generated := false
	if secret == "" {
		var err error
		secret, err = secrets.Generate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating secret: %v\n", err)
			os.Exit(1)
		}
		generated = true
	}

	hash, err := secrets.Hash(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing secret: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		out := map[string]string{
			"hash": hash,
			"env":  "ADMIN_SECRET_HASH",
		}
		if generated {
			out["secret"] = secret
		}
		printJSON(out)
		return
	}

	fmt.Println("Admin Secret Hash")
	fmt.Println("=================")
	if generated {
		fmt.Printf("Secret: %s\n", secret)
	}
	fmt.Printf("Hash:   %s\n", hash)
	fmt.Println()
	fmt.Println("Set the hash as ADMIN_SECRET_HASH and send the secret in the X-Admin-Secret header.")
}

func generateStreamToken(secret, userID, sessionID string, ttl time.Duration, jsonOutput bool) {
	if secret == "" {
		fmt.Fprintln(os.Stderr, "-secret is required: tokens must be signed with the server's SESSION_SECRET")
		os.Exit(1)
	}
	if userID == "" {
		userID = uuid.New().String()
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	issuer := session.NewTokenIssuer([]byte(secret), ttl)
	token, err := issuer.Issue(userID, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error issuing token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"token":      token,
			"user_id":    userID,
			"session_id": sessionID,
			"expires_in": ttl.String(),
			"header":     "Authorization: Bearer <token>",
		})
		return
	}

	fmt.Println("Stream Token")
	fmt.Println("============")
	fmt.Printf("User ID:    %s\n", userID)
	fmt.Printf("Session ID: %s\n", sessionID)
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/...")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

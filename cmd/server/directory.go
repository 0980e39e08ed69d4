package main

import (
	"context"
	"log/slog"
	"os"

	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/requestcontext"
	"careshield/pkg/secrets"
)

// directory is the demo workforce directory backing the authentication
// endpoints. A real deployment replaces it with the HR system client; the
// transport layer only sees the Authenticate and Principal functions.
type directory struct {
	byEmail map[string]directoryUser
	byID    map[string]directoryUser
}

type directoryUser struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
}

var seedUsers = []struct {
	id, email, password, role string
}{
	{"usr-coordinator", "coordinator@careshield.dev", "coordinator-dev-password", "coordinator"},
	{"usr-carer", "carer@careshield.dev", "carer-dev-password", "carer"},
	{"usr-admin", "admin@careshield.dev", "admin-dev-password", "admin"},
}

func newDirectory(log *slog.Logger) *directory {
	d := &directory{
		byEmail: make(map[string]directoryUser),
		byID:    make(map[string]directoryUser),
	}
	for _, seed := range seedUsers {
		hash, err := secrets.Hash(seed.password)
		if err != nil {
			log.Error("could not seed directory", "error", err, "user", seed.email)
			os.Exit(1)
		}
		user := directoryUser{ID: seed.id, Email: seed.email, PasswordHash: hash, Role: seed.role}
		d.byEmail[user.Email] = user
		d.byID[user.ID] = user
	}
	return d
}

func (d *directory) Authenticate(_ context.Context, email, password string) (string, error) {
	user, ok := d.byEmail[email]
	if !ok {
		// Verify against a throwaway hash anyway so unknown and known
		// accounts take comparable time.
		_, _ = secrets.Hash(password)
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	return user.ID, nil
}

func (d *directory) Principal(_ context.Context, userID string) (requestcontext.Principal, bool) {
	user, ok := d.byID[userID]
	if !ok {
		return requestcontext.Principal{}, false
	}
	return requestcontext.Principal{UserID: user.ID, Role: user.Role}, true
}

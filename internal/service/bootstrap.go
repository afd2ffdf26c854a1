package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
)

// BootstrapConfig describes the initial admin account.
type BootstrapConfig struct {
	Enabled  bool
	Username string
	Email    string
	// Password is generated and logged once when empty.
	Password string
}

// BootstrapAdmin registers the initial admin when no admin exists yet.
// It returns the created admin, or nil when nothing was done. A bootstrap
// username already held by another account is skipped with a warning.
func BootstrapAdmin(ctx context.Context, users UserService, cfg BootstrapConfig, log logrus.FieldLogger) (*domain.User, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	existing, err := users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, u := range existing {
		if u.Role.CanAdminister() {
			return nil, nil
		}
	}

	password := cfg.Password
	generated := strings.TrimSpace(password) == ""
	if generated {
		password, err = generatePassword()
		if err != nil {
			return nil, err
		}
	}

	admin, err := users.Register(ctx, cfg.Username, password, cfg.Email, string(domain.RoleAdmin))
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.WithField("username", cfg.Username).
				Warn("bootstrap username belongs to a non-admin account, skipping initial admin; promote an account or set bootstrap.username")
			return nil, nil
		}
		return nil, fmt.Errorf("register initial admin: %w", err)
	}

	entry := log.WithFields(logrus.Fields{
		"user_id":  admin.ID,
		"username": admin.Username,
	})
	if generated {
		entry.WithField("password", password).Warn("initial admin created with generated password, change it after first login")
	} else {
		entry.Info("initial admin created")
	}
	return admin, nil
}

// generatePassword returns 24 URL-safe characters.
func generatePassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate admin password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

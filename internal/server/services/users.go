// Package services implements the server's application services over the
// repositories: accounts, the synced-document store, and backup presigning.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/farmledger/internal/common"
	"github.com/dmitrijs2005/farmledger/internal/cryptox"
	"github.com/dmitrijs2005/farmledger/internal/server/auth"
	"github.com/dmitrijs2005/farmledger/internal/server/config"
	"github.com/dmitrijs2005/farmledger/internal/server/models"
	"github.com/dmitrijs2005/farmledger/internal/server/repositories/users"
	"github.com/google/uuid"
)

type UserService struct {
	repo   users.Repository
	config *config.Config
}

func NewUserService(repo users.Repository, config *config.Config) *UserService {
	return &UserService{repo: repo, config: config}
}

// Register creates an account from the client-generated salt and verifier.
func (s *UserService) Register(ctx context.Context, username string, salt, verifier []byte) error {
	if username == "" || len(salt) == 0 || len(verifier) == 0 {
		return fmt.Errorf("%w: username, salt and verifier are required", common.ErrInternal)
	}

	u := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Salt:     salt,
		Verifier: verifier,
	}
	return s.repo.Create(ctx, u)
}

// GetSalt returns the user's key-derivation salt. Absent users yield
// common.ErrNotFound; the handler maps it without leaking detail.
func (s *UserService) GetSalt(ctx context.Context, username string) ([]byte, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return u.Salt, nil
}

// Login checks the verifier and issues an access token.
func (s *UserService) Login(ctx context.Context, username string, verifier []byte) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUnauthorized
		}
		return "", err
	}

	if !cryptox.VerifierMatches(u.Verifier, verifier) {
		return "", common.ErrUnauthorized
	}

	return auth.GenerateToken(u.ID, []byte(s.config.SecretKey), s.config.AccessTokenValidityDuration)
}

// Settings returns the user's settings document (an empty object when the
// user has never pushed settings).
func (s *UserService) Settings(ctx context.Context, userID string) (map[string]string, error) {
	raw, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return nil, fmt.Errorf("corrupt settings document: %w", err)
		}
	}
	return settings, nil
}

// SetSettings replaces the user's settings document.
func (s *UserService) SetSettings(ctx context.Context, userID string, settings map[string]string) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.repo.SetSettings(ctx, userID, raw)
}

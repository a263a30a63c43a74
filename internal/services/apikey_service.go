package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const keyPrefix = "ft_"

// ErrKeyRateLimited reports that an API key exhausted its hourly
// request allowance.
var ErrKeyRateLimited = errors.New("api key request limit exceeded")

// APIKeyService issues and authenticates API keys. Only a SHA-256 hash
// of each key is stored; the plaintext is shown once at issue time.
type APIKeyService struct {
	storage         *storage.SQLiteRepository
	requestsPerHour int
}

func NewAPIKeyService(storage *storage.SQLiteRepository, requestsPerHour int) *APIKeyService {
	return &APIKeyService{
		storage:         storage,
		requestsPerHour: requestsPerHour,
	}
}

// Issue generates a new key for the owner and returns the plaintext
// exactly once, alongside the stored record.
func (s *APIKeyService) Issue(ctx context.Context, ownerID, name string) (string, storage.APIKey, error) {
	if strings.TrimSpace(name) == "" {
		return "", storage.APIKey{}, core.ErrEmptyName
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", storage.APIKey{}, fmt.Errorf("generate key material: %w", err)
	}
	plaintext := keyPrefix + hex.EncodeToString(raw)

	key := storage.APIKey{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		KeyHash:   hashKey(plaintext),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.CreateAPIKey(ctx, key); err != nil {
		return "", storage.APIKey{}, fmt.Errorf("store api key: %w", err)
	}
	return plaintext, key, nil
}

// Authenticate resolves a plaintext key to its owner and charges one
// request against the key's hourly allowance. The allowance window
// resets one hour after the key's first counted request.
func (s *APIKeyService) Authenticate(ctx context.Context, plaintext string) (string, error) {
	if !strings.HasPrefix(plaintext, keyPrefix) {
		return "", fmt.Errorf("api key: %w", core.ErrNotFound)
	}

	key, err := s.storage.GetAPIKeyByHash(ctx, hashKey(plaintext))
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	count := key.RequestsCount + 1
	if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) > time.Hour {
		count = 1
	}
	if count > s.requestsPerHour {
		return "", fmt.Errorf("key %s: %w", key.ID, ErrKeyRateLimited)
	}

	// Keep the window anchor on the first request of the window.
	usedAt := now
	if count > 1 && key.LastUsedAt != nil {
		usedAt = *key.LastUsedAt
	}
	if err := s.storage.RecordAPIKeyUsage(ctx, key.ID, count, usedAt); err != nil {
		return "", fmt.Errorf("record key usage: %w", err)
	}

	return key.OwnerID, nil
}

// Revoke deactivates one of the owner's keys.
func (s *APIKeyService) Revoke(ctx context.Context, ownerID, id string) error {
	keys, err := s.storage.ListAPIKeys(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}
	for _, k := range keys {
		if k.ID == id {
			return s.storage.RevokeAPIKey(ctx, id)
		}
	}
	return fmt.Errorf("api key %s: %w", id, core.ErrNotFound)
}

// List returns the owner's keys, hashes included, plaintext never.
func (s *APIKeyService) List(ctx context.Context, ownerID string) ([]storage.APIKey, error) {
	keys, err := s.storage.ListAPIKeys(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	if keys == nil {
		keys = []storage.APIKey{}
	}
	return keys, nil
}

func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

package apikeys

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/quietdash/quietdash/internal/crypto"
	"github.com/quietdash/quietdash/internal/database"
	"github.com/samber/lo"
)

var (
	// ErrNotFound is returned when the key does not exist or belongs to another user.
	ErrNotFound = errors.New("API key not found") //nolint:staticcheck
	// ErrAPIKeyExists is returned when the user already stored a key for the provider.
	ErrAPIKeyExists = errors.New("API key for this provider already exists") //nolint:staticcheck
)

// APIKey is the safe view of a stored key. The secret is never included.
type APIKey struct {
	ID        string
	UserID    string
	Provider  database.Provider
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DecryptedAPIKey holds the plaintext key for internal use by widget data fetchers.
type DecryptedAPIKey struct {
	ID       string
	Provider database.Provider
	APIKey   string
}

// Service manages the encrypted third-party API keys of users.
type Service struct {
	db        database.DB
	encryptor *crypto.Encryptor
}

// New creates an API key service.
func New(db database.DB, encryptor *crypto.Encryptor) *Service {
	return &Service{db: db, encryptor: encryptor}
}

func toAPIKey(k database.APIKey) *APIKey {
	return &APIKey{
		ID:        k.ID,
		UserID:    k.UserID,
		Provider:  k.Provider,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
}

// Create encrypts and stores a key. One key per provider and user.
func (s *Service) Create(ctx context.Context, userID string, provider database.Provider, apiKey string) (*APIKey, error) {
	_, err := s.db.GetAPIKeyByProvider(ctx, userID, provider)
	switch {
	case err == nil:
		return nil, ErrAPIKeyExists
	case !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}

	sealed, err := s.encryptor.Encrypt(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt API key: %w", err)
	}

	key := &database.APIKey{
		UserID:       userID,
		Provider:     provider,
		EncryptedKey: sealed.EncryptedData,
		IV:           sealed.IV,
		AuthTag:      sealed.AuthTag,
	}
	if err := s.db.CreateAPIKey(ctx, key); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAPIKeyExists
		}
		return nil, fmt.Errorf("failed to create API key: %w", err)
	}

	log.Info("API key stored", "user_id", userID, "provider", provider)
	return toAPIKey(*key), nil
}

// List returns the keys of a user, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*APIKey, error) {
	keys, err := s.db.GetAPIKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	return lo.Map(keys, func(k database.APIKey, _ int) *APIKey { return toAPIKey(k) }), nil
}

// Get returns a single key of the user.
func (s *Service) Get(ctx context.Context, userID, id string) (*APIKey, error) {
	key, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return toAPIKey(*key), nil
}

func (s *Service) get(ctx context.Context, userID, id string) (*database.APIKey, error) {
	key, err := s.db.GetAPIKey(ctx, userID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	return key, nil
}

// Update replaces the secret of a key. A nil apiKey leaves it unchanged.
func (s *Service) Update(ctx context.Context, userID, id string, apiKey *string) (*APIKey, error) {
	key, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return toAPIKey(*key), nil
	}

	sealed, err := s.encryptor.Encrypt(*apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt API key: %w", err)
	}
	key.EncryptedKey = sealed.EncryptedData
	key.IV = sealed.IV
	key.AuthTag = sealed.AuthTag

	if err := s.db.UpdateAPIKey(ctx, key); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update API key: %w", err)
	}

	log.Info("API key updated", "user_id", userID, "provider", key.Provider)
	return toAPIKey(*key), nil
}

// Delete removes a key of the user.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.db.DeleteAPIKey(ctx, userID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete API key: %w", err)
	}
	log.Info("API key deleted", "user_id", userID, "id", id)
	return nil
}

// GetDecrypted returns the plaintext key of a provider, or nil if none is stored.
func (s *Service) GetDecrypted(ctx context.Context, userID string, provider database.Provider) (*DecryptedAPIKey, error) {
	key, err := s.db.GetAPIKeyByProvider(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	plaintext, err := s.encryptor.Decrypt(key.EncryptedKey, key.IV, key.AuthTag)
	if err != nil {
		log.Error("Failed to decrypt API key", "user_id", userID, "provider", provider)
		return nil, err
	}

	return &DecryptedAPIKey{ID: key.ID, Provider: key.Provider, APIKey: plaintext}, nil
}

// Package users registers players and serves their match records.
package users

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/duelrooms/internal/dependencies/clock"
	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDisplayNameTaken   = errors.New("display name already taken")
	ErrMissingFields      = errors.New("display name and password are required")
)

// Config holds configuration for the users service
type Config struct {
	// BcryptCost is the work factor for password hashes
	BcryptCost int
}

// DefaultConfig returns default users configuration
func DefaultConfig() Config {
	return Config{
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Service handles registration, login and profile lookup
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	cost    int

	// Serializes registrations so display names stay unique
	registerMu sync.Mutex
}

// New creates a new users service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig().BcryptCost
	}
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "users")),
		cost:    cfg.BcryptCost,
	}
}

// Register creates a user with zeroed stats
func (s *Service) Register(ctx context.Context, displayName, password string) (*model.User, error) {
	if displayName == "" || password == "" {
		return nil, ErrMissingFields
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	// Check if display name exists
	_, err := s.storage.GetUserByDisplayName(ctx, displayName)
	if err == nil {
		return nil, ErrDisplayNameTaken
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &model.User{
		ID:           model.UserID(uuid.NewString()),
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", string(user.ID)),
		slog.String("display_name", displayName),
	)
	return user, nil
}

// Login checks the password and returns the matching user
func (s *Service) Login(ctx context.Context, displayName, password string) (*model.User, error) {
	user, err := s.storage.GetUserByDisplayName(ctx, displayName)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser returns a user by id
func (s *Service) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.storage.GetUser(ctx, id)
}

// Leaderboard returns every user, most wins first, then fewest losses
func (s *Service) Leaderboard(ctx context.Context) ([]*model.User, error) {
	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Wins != users[j].Wins {
			return users[i].Wins > users[j].Wins
		}
		return users[i].Losses < users[j].Losses
	})
	return users, nil
}

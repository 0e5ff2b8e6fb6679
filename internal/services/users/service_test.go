package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/duelrooms/internal/dependencies/mocks"
	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/storage/memory"
	"github.com/mcoot/duelrooms/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger(), Config{BcryptCost: bcrypt.MinCost})
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestRegisterCreatesUser() {
	user, err := s.service.Register(s.ctx, "alice", "secret")
	s.Require().NoError(err)

	_, err = uuid.Parse(string(user.ID))
	s.NoError(err, "user ids are uuids")
	s.Equal("alice", user.DisplayName)
	s.Equal(0, user.Wins)
	s.Equal(0, user.Losses)
	s.Equal(s.clock.Now(), user.CreatedAt)
	s.NotEqual("secret", user.PasswordHash)

	stored, err := s.service.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.DisplayName, stored.DisplayName)
}

func (s *ServiceSuite) TestRegisterRejectsDuplicateDisplayName() {
	_, err := s.service.Register(s.ctx, "alice", "secret")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "alice", "other")
	s.ErrorIs(err, ErrDisplayNameTaken)
}

func (s *ServiceSuite) TestRegisterRequiresFields() {
	_, err := s.service.Register(s.ctx, "", "secret")
	s.ErrorIs(err, ErrMissingFields)

	_, err = s.service.Register(s.ctx, "alice", "")
	s.ErrorIs(err, ErrMissingFields)
}

func (s *ServiceSuite) TestConcurrentRegistrationKeepsNamesUnique() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Register(s.ctx, "alice", "secret")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if !errors.Is(err, ErrDisplayNameTaken) {
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created)
}

func (s *ServiceSuite) TestLogin() {
	registered, _ := s.service.Register(s.ctx, "alice", "secret")

	user, err := s.service.Login(s.ctx, "alice", "secret")
	s.Require().NoError(err)
	s.Equal(registered.ID, user.ID)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	_, _ = s.service.Register(s.ctx, "alice", "secret")

	_, err := s.service.Login(s.ctx, "alice", "wrong")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginUnknownUser() {
	_, err := s.service.Login(s.ctx, "nobody", "secret")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestGetUserNotFound() {
	_, err := s.service.GetUser(s.ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestLeaderboardOrder() {
	records := []struct {
		name   string
		wins   int
		losses int
	}{
		{"carol", 1, 0},
		{"alice", 3, 2},
		{"bob", 3, 1},
		{"dave", 0, 4},
	}
	for _, rec := range records {
		u, err := s.service.Register(s.ctx, rec.name, "pw")
		s.Require().NoError(err)
		u.Wins, u.Losses = rec.wins, rec.losses
		s.Require().NoError(s.storage.SaveUser(s.ctx, u))
		s.clock.Advance(time.Second)
	}

	board, err := s.service.Leaderboard(s.ctx)
	s.Require().NoError(err)

	names := make([]string, len(board))
	for i, u := range board {
		names[i] = u.DisplayName
	}
	s.Equal([]string{"bob", "alice", "carol", "dave"}, names)
}

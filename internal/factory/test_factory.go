package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/duelrooms/internal/dependencies/mocks"
	"github.com/mcoot/duelrooms/internal/services/countdown"
	"github.com/mcoot/duelrooms/internal/services/users"
	"github.com/mcoot/duelrooms/internal/storage/memory"
	"github.com/mcoot/duelrooms/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(
		store,
		mockClock,
		mockRandom,
		countdown.DefaultConfig(),
		users.Config{BcryptCost: bcrypt.MinCost},
		testutil.NopLogger(),
	)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

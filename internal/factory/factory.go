package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/duelrooms/internal/dependencies/clock"
	"github.com/mcoot/duelrooms/internal/dependencies/random"
	"github.com/mcoot/duelrooms/internal/realtime"
	"github.com/mcoot/duelrooms/internal/services/combat"
	"github.com/mcoot/duelrooms/internal/services/countdown"
	"github.com/mcoot/duelrooms/internal/services/matchmaking"
	"github.com/mcoot/duelrooms/internal/services/room"
	"github.com/mcoot/duelrooms/internal/services/users"
	"github.com/mcoot/duelrooms/internal/storage"
	filestorage "github.com/mcoot/duelrooms/internal/storage/file"
	"github.com/mcoot/duelrooms/internal/storage/memory"
	redisstorage "github.com/mcoot/duelrooms/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeFile   = "file"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Realtime fan-out
	HubManager  *realtime.HubManager
	Broadcaster *realtime.Broadcaster
	WSHandler   *realtime.WSHandler

	// Services
	RoomService *room.Service
	Coordinator *matchmaking.Coordinator
	Scheduler   *countdown.Scheduler
	Resolver    *combat.Resolver
	UserService *users.Service
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "file")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// DataDir is where the file backend keeps its database (required if StorageType is "file")
	DataDir string
	// CountdownConfig holds the grace period; zero value means countdown.DefaultConfig()
	CountdownConfig countdown.Config
	// UsersConfig holds password hashing settings; zero value means users.DefaultConfig()
	UsersConfig users.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	countdownCfg := cfg.CountdownConfig
	if countdownCfg.GracePeriod == 0 {
		countdownCfg = countdown.DefaultConfig()
	}
	usersCfg := cfg.UsersConfig
	if usersCfg.BcryptCost == 0 {
		usersCfg = users.DefaultConfig()
	}

	return newWithDependencies(store, clock.New(), random.New(), countdownCfg, usersCfg, logger), nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeFile:
		if cfg.DataDir == "" {
			return nil, errors.New("DataDir required when StorageType is file")
		}
		return filestorage.New(cfg.DataDir)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'file'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	countdownCfg countdown.Config,
	usersCfg users.Config,
	logger *slog.Logger,
) *App {
	hubManager := realtime.NewHubManager(logger)
	broadcaster := realtime.NewBroadcaster(hubManager, store, logger)

	roomService := room.New(store, broadcaster, clk, rnd, logger)
	coordinator := matchmaking.NewCoordinator(store, roomService, broadcaster, clk, logger)
	scheduler := countdown.NewScheduler(store, roomService, broadcaster, clk, logger, countdownCfg)
	resolver := combat.NewResolver(store, roomService, broadcaster, clk, logger)
	userService := users.New(store, clk, logger, usersCfg)

	wsHandler := realtime.NewWSHandler(hubManager, coordinator, scheduler, resolver, store, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		HubManager:  hubManager,
		Broadcaster: broadcaster,
		WSHandler:   wsHandler,
		RoomService: roomService,
		Coordinator: coordinator,
		Scheduler:   scheduler,
		Resolver:    resolver,
		UserService: userService,
	}
}

// Close stops pending countdowns, disconnects realtime clients and
// releases the storage backend
func (a *App) Close() error {
	a.Scheduler.Shutdown()
	a.HubManager.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/yexiu0529666/gobang/internal/client"
	"github.com/yexiu0529666/gobang/internal/match"
	"github.com/yexiu0529666/gobang/internal/realtime"
	"github.com/yexiu0529666/gobang/internal/session"
	"github.com/yexiu0529666/gobang/internal/storage"
	filestorage "github.com/yexiu0529666/gobang/internal/storage/file"
	"github.com/yexiu0529666/gobang/internal/storage/memory"
	redisstorage "github.com/yexiu0529666/gobang/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeFile   = "file"
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired client components
type App struct {
	TokenStorage storage.TokenStorage
	Client       *client.Client
	Session      *session.Store
	Channel      *realtime.Channel
	Match        *match.Store
	Logger       *slog.Logger
}

// Config holds configuration for the client factory
type Config struct {
	// ClientConfig holds HTTP pipeline settings (base URL, timeout)
	ClientConfig client.Config
	// ChannelConfig holds realtime channel settings
	ChannelConfig realtime.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the token storage backend ("file", "memory" or "redis")
	// If empty, defaults to "file"
	StorageType string
	// TokenFile is the token path for file storage (optional)
	TokenFile string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a client application with all dependencies wired:
// the session store is the pipeline's credential source and its
// auth-failure handler, and session invalidation flows into the match
// store and the channel.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var tokens storage.TokenStorage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeFile
	}

	switch storageType {
	case StorageTypeFile:
		path := cfg.TokenFile
		if path == "" {
			path = filestorage.DefaultPath()
		}
		tokens = filestorage.New(path)
	case StorageTypeMemory:
		tokens = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		tokens = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'file', 'memory' or 'redis'")
	}

	sessionStore := session.New(tokens, logger)
	apiClient := client.New(cfg.ClientConfig, sessionStore, logger)
	sessionStore.AttachPipeline(apiClient)

	channel := realtime.NewChannel(cfg.ChannelConfig, sessionStore, logger)
	matchStore := match.New(apiClient, channel, logger)
	sessionStore.OnInvalidate(matchStore.HandleSessionInvalidated)

	return &App{
		TokenStorage: tokens,
		Client:       apiClient,
		Session:      sessionStore,
		Channel:      channel,
		Match:        matchStore,
		Logger:       logger,
	}, nil
}

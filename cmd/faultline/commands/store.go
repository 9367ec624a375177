package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/store"
)

// addStoreFlags binds the record store flags shared by server, analyze and mcp.
func addStoreFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	flags.StringVar(&cfg.StoreKind, "store", cfg.StoreKind, "Record store: redis or file")
	flags.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "JSON file read by the file store")
	flags.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", cfg.RedisAddr), "Redis address (host:port)")
	flags.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flags.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")
	flags.StringVar(&cfg.RedisKey, "redis-key", cfg.RedisKey, "Redis key holding the JSON record array")
	flags.DurationVar(&cfg.StoreTimeout, "store-timeout", cfg.StoreTimeout, "Timeout of a single store read")
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreKind {
	case config.StoreRedis:
		rc := store.DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		rc.Key = cfg.RedisKey
		rc.ReadTimeout = cfg.StoreTimeout
		return store.NewRedisStore(rc)
	case config.StoreFile:
		return store.NewFileStore(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.StoreKind)
	}
}

// storeComponent ties the store's connection to the server lifecycle. An
// unreachable backend does not fail startup; /ready reports it instead.
type storeComponent struct {
	store  store.Store
	kind   string
	logger *logging.Logger
}

func newStoreComponent(s store.Store, kind string) *storeComponent {
	return &storeComponent{store: s, kind: kind, logger: logging.GetLogger("store")}
}

func (c *storeComponent) Start(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		c.logger.Warn("%s store not reachable yet: %v", c.kind, err)
		return nil
	}
	c.logger.Info("%s store reachable", c.kind)
	return nil
}

func (c *storeComponent) Stop(ctx context.Context) error {
	return c.store.Close()
}

func (c *storeComponent) Name() string {
	return "Record Store"
}

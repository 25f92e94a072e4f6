package main

import (
	"context"
	"time"

	"github.com/NicoPieee/onomatoparty2-server-clean/cmd/onomatoparty/shared"
	"github.com/NicoPieee/onomatoparty2-server-clean/internal/assets"
	"github.com/NicoPieee/onomatoparty2-server-clean/internal/audit"
	"github.com/NicoPieee/onomatoparty2-server-clean/internal/game"
	"github.com/NicoPieee/onomatoparty2-server-clean/internal/randutil"
	"github.com/NicoPieee/onomatoparty2-server-clean/internal/server"
	"golang.org/x/sync/errgroup"
)

// ServeCmd runs the websocket game server
type ServeCmd struct {
	Config string `kong:"default='server.hcl',help='Path to HCL configuration file'"`
	Addr   string `kong:"help='Listen address, overrides the config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed (optional)'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel, c.Debug)

	var seed int64
	switch {
	case c.Seed != nil:
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	case cfg.Server.Seed != 0:
		seed = cfg.Server.Seed
		logger.Info("Using configured seed", "seed", seed)
	default:
		seed = time.Now().UnixNano()
		logger.Info("Using random seed", "seed", seed)
	}
	rng := randutil.New(seed)

	provider := assets.NewDirProvider(cfg.Assets.Root)
	decks, err := provider.DeckNames()
	if err != nil {
		logger.Warn("Assets root not readable, no decks available", "root", cfg.Assets.Root, "error", err)
	} else {
		logger.Info("Loaded deck directory", "root", cfg.Assets.Root, "decks", len(decks))
	}

	var sink audit.Sink = audit.NopSink{}
	if cfg.Audit.Enabled {
		redisSink, err := audit.NewRedisSink(audit.Config{
			URL:      cfg.Audit.RedisURL,
			Password: cfg.Audit.Password,
			Stream:   cfg.Audit.Stream,
		}, nil)
		if err != nil {
			return err
		}
		defer func() { _ = redisSink.Close() }()
		sink = redisSink
		logger.Info("Audit sink enabled", "stream", cfg.Audit.Stream)
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	registry := game.NewRegistry(provider, rng, logger)
	srv := server.NewServer(addr, logger)
	srv.SetGameService(server.NewGameService(registry, srv, sink, logger))

	logger.Info("Starting onomatoparty server", "addr", addr, "audit", cfg.Audit.Enabled)

	ctx := shared.SetupSignalHandler(logger)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	return g.Wait()
}

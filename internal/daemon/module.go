// Package daemon composes the session daemon: store, platform adapter,
// orchestrator, outbox sender, sweeper and the admin API, wired together
// with fx lifecycle hooks.
package daemon

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/likeswap/likeswap/internal/bus"
	"github.com/likeswap/likeswap/internal/config"
	"github.com/likeswap/likeswap/internal/executor"
	"github.com/likeswap/likeswap/internal/lock"
	"github.com/likeswap/likeswap/internal/logging"
	"github.com/likeswap/likeswap/internal/orchestrator"
	"github.com/likeswap/likeswap/internal/outbox"
	"github.com/likeswap/likeswap/internal/session"
	"github.com/likeswap/likeswap/internal/store"
	"github.com/likeswap/likeswap/internal/sweep"
	"github.com/likeswap/likeswap/internal/telegram"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideLock,
			provideStore,
			provideAdapter,
			provideExecutor,
			provideOrchestrator,
			provideSender,
			provideSweeper,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideConfig() (*config.Config, error) {
	return config.LoadOrDefault(session.ConfigPath())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideAdapter(cfg *config.Config, b *bus.Bus, logger *zap.Logger) (*telegram.Adapter, error) {
	return telegram.NewAdapter(cfg.Telegram.Token, b, logger)
}

func provideExecutor(cfg *config.Config, logger *zap.Logger) executor.Executor {
	return executor.NewHTTP(cfg.Executor.BaseURL, cfg.Executor.Timeout(), logger)
}

func provideOrchestrator(db *store.DB, b *bus.Bus, exec executor.Executor, cfg *config.Config, logger *zap.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(db, b, exec, cfg, logger)
}

func provideSender(db *store.DB, adapter *telegram.Adapter, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, adapter, b, logger, cfg.Bot.DailySendCap, cfg.Bot.SendsPerMinute)
}

func provideSweeper(orch *orchestrator.Orchestrator, cfg *config.Config, logger *zap.Logger) *sweep.Sweeper {
	return sweep.New(orch, logger, cfg.Bot.SweepInterval(), cfg.Bot.RelaunchInterval())
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, adapter *telegram.Adapter, orch *orchestrator.Orchestrator, sender *outbox.Sender, sweeper *sweep.Sweeper, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Orchestrator first so no inbound event is dropped.
			orch.Start(context.Background())

			if err := adapter.Connect(); err != nil {
				return err
			}

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("admin API error", zap.Error(err))
				}
			}()

			sender.Start(context.Background())
			sweeper.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			sender.Stop()
			adapter.Disconnect()
			orch.Stop()
			srv.Stop(ctx)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/api"
	"github.com/tutu-network/swarmpay/internal/app/credit"
	"github.com/tutu-network/swarmpay/internal/app/referral"
	"github.com/tutu-network/swarmpay/internal/app/reward"
	"github.com/tutu-network/swarmpay/internal/app/stakepool"
	"github.com/tutu-network/swarmpay/internal/app/swarm"
	"github.com/tutu-network/swarmpay/internal/app/taskledger"
	"github.com/tutu-network/swarmpay/internal/app/verify"
	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/health"
	"github.com/tutu-network/swarmpay/internal/infra/logging"
	"github.com/tutu-network/swarmpay/internal/infra/sqlite"
	"github.com/tutu-network/swarmpay/internal/security"
)

// Daemon is the swarmpay runtime. It wires together all services.
type Daemon struct {
	Config  Config
	DB      *sqlite.DB
	Log     *zap.Logger
	Level   zap.AtomicLevel
	Keypair *security.Keypair
	Health  *health.Checker
	Server  *api.Server

	Pools     *stakepool.Service
	Tasks     *taskledger.Service
	Swarms    *swarm.Service
	Referrals *referral.Service
	Rewards   *reward.Service
	Credit    *credit.Service

	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, level, err := logging.Build(logging.Config{
		Level:    cfg.Logging.Level,
		Encoding: cfg.Logging.Encoding,
		File:     cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return newDaemon(cfg, logger, level)
}

func newDaemon(cfg Config, logger *zap.Logger, level zap.AtomicLevel) (*Daemon, error) {
	storeDir := cfg.Store.Dir
	if storeDir == "" {
		storeDir = swarmpayHome()
	}

	db, err := sqlite.Open(storeDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Crypto identity (Ed25519)
	kp, err := security.LoadOrCreateKeypair(storeDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load keypair: %w", err)
	}

	d := &Daemon{
		Config:  cfg,
		DB:      db,
		Log:     logger,
		Level:   level,
		Keypair: kp,
	}

	d.Pools = stakepool.NewService(db, logger)
	d.Tasks = taskledger.NewService(db, logger)
	d.Swarms = swarm.NewService(db, logger)
	d.Referrals = referral.NewService(db, logger)
	d.Rewards = reward.NewService(db, d.Tasks, newVerifier(cfg.Verifier, logger), logger)
	d.Credit = credit.NewService(db, logger)

	d.Health = health.NewChecker(db, parseDuration(cfg.Health.Interval, health.DefaultInterval), logger)

	d.Server = api.NewServer(api.Services{
		Pools:     d.Pools,
		Tasks:     d.Tasks,
		Swarms:    d.Swarms,
		Referrals: d.Referrals,
		Rewards:   d.Rewards,
		Credit:    d.Credit,
	}, api.Options{
		RequireSignatures: cfg.API.RequireSignatures,
		Faucet:            cfg.API.Faucet,
		Metrics:           cfg.Telemetry.Prometheus,
		RateLimit:         cfg.API.RateLimit,
		RateBurst:         cfg.API.RateBurst,
		CORSOrigins:       cfg.API.CORSOrigins,
	}, logger)
	d.Server.SetHealth(d.Health)

	return d, nil
}

func newVerifier(cfg VerifierConfig, log *zap.Logger) domain.Verifier {
	if cfg.Mode == VerifierAccept {
		log.Warn("Verifier accepts every submission; use only for local testing")
		return verify.AcceptAll()
	}
	return verify.NewQuorum(cfg.QuorumPct)
}

// Identity is the node's own identity.
func (d *Daemon) Identity() domain.Identity {
	return d.Keypair.Identity()
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal; SIGHUP re-reads the log level.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case sig := <-sigCh:
				if sig == syscall.SIGHUP {
					d.reloadLogLevel()
					continue
				}
			case <-ctx.Done():
			}
			break
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Log.Info("Shutting down")
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	d.Log.Info("Serving",
		zap.String("addr", addr),
		zap.Stringer("identity", d.Identity()),
		zap.String("verifier", d.Config.Verifier.Mode),
		zap.Bool("signatures", d.Config.API.RequireSignatures),
		zap.Bool("metrics", d.Config.Telemetry.Prometheus),
	)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// reloadLogLevel applies the level from the config file on disk.
func (d *Daemon) reloadLogLevel() {
	cfg, err := LoadConfig()
	if err != nil {
		d.Log.Error("Couldn't reload config", zap.Error(err))
		return
	}
	logging.SetLevel(d.Log, d.Level, cfg.Logging.Level)
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Log != nil {
		_ = d.Log.Sync()
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HerbHall/zabbixdash/internal/config"
	"github.com/HerbHall/zabbixdash/internal/event"
	"github.com/HerbHall/zabbixdash/internal/session"
	"github.com/HerbHall/zabbixdash/internal/store"
	"github.com/HerbHall/zabbixdash/internal/version"
	"github.com/HerbHall/zabbixdash/internal/zabbix"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is the composition root shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *store.SQLiteStore // nil with memory session storage
	bus       *event.Bus
	transport *zabbix.Transport
	sessions  *session.Manager
	client    *zabbix.Client
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	config  string
	verbose bool
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c := &commonFlags{}
	fs.StringVar(&c.config, "config", "", "path to configuration file")
	fs.BoolVar(&c.verbose, "v", false, "log at the configured level instead of warnings only")
	return fs, c
}

// openApp loads configuration and wires storage, session and client.
// quiet raises the log level to warn unless -v was given.
func openApp(ctx context.Context, flags *commonFlags, quiet bool) (*app, error) {
	v, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	if quiet && !flags.verbose {
		logger = logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	}
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	}

	a := &app{cfg: cfg, logger: logger}

	storage, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.bus = event.NewBus(logger.Named("event"))
	a.transport = zabbix.NewTransport(cfg.Zabbix.Timeout, logger.Named("zabbix"))
	a.sessions = session.NewManager(storage, a.transport, a.bus, logger.Named("session"))
	if err := a.sessions.Restore(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	a.client = zabbix.NewClient(a.transport, a.sessions, logger.Named("client"))
	return a, nil
}

func (a *app) openStorage(ctx context.Context) (session.Storage, error) {
	var storage session.Storage
	switch a.cfg.Session.Storage {
	case config.StorageMemory:
		storage = session.NewMemoryStorage()
	default:
		if err := os.MkdirAll(filepath.Dir(a.cfg.Database.Path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		db, err := store.New(a.cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		if err := db.CheckVersion(ctx, version.Short()); err != nil {
			return nil, err
		}
		sqlStorage, err := session.NewSQLiteStorage(ctx, db)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("database initialized",
			zap.String("component", "database"),
			zap.String("path", a.cfg.Database.Path),
		)
		storage = sqlStorage
	}

	if a.cfg.Session.Passphrase != "" {
		storage = session.NewSealedStorage(storage, a.cfg.Session.Passphrase)
	}
	return storage, nil
}

// Close releases the database and flushes the logger.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

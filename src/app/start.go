package app

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/afero"

	"github.com/Blackdeer1524/StorageCore/src"
	"github.com/Blackdeer1524/StorageCore/src/bufferpool"
	"github.com/Blackdeer1524/StorageCore/src/config"
	"github.com/Blackdeer1524/StorageCore/src/recovery"
	"github.com/Blackdeer1524/StorageCore/src/storage/disk"
)

// Entrypoint wires the storage components of one process over a single
// data directory.
type Entrypoint struct {
	EnvFile string
	Config  config.Config

	Disk *disk.Manager
	Pool *bufferpool.Synchronized
	WAL  *recovery.Synchronized

	fs  afero.Fs
	log src.Logger
}

// NewEntrypoint uses fs instead of the OS filesystem. A nil fs means
// afero.NewOsFs.
func NewEntrypoint(envFile string, fs afero.Fs) *Entrypoint {
	return &Entrypoint{EnvFile: envFile, fs: fs}
}

func (e *Entrypoint) Init(_ context.Context) error {
	cfg, err := config.Load(e.EnvFile)
	if err != nil {
		return err
	}
	return e.InitWithConfig(cfg)
}

func (e *Entrypoint) InitWithConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.Config = cfg

	log, err := NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	e.log = log

	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}

	e.Disk, err = disk.New(e.fs, cfg.DataDir, cfg.BlockSize, log)
	if err != nil {
		return err
	}

	pool := bufferpool.New(cfg.PoolSize, e.Disk, log)
	pool.SetRefreshOnHit(cfg.RefreshOnHit)
	e.Pool = bufferpool.NewSynchronized(pool)

	wal, err := recovery.New(e.Disk, cfg.LogFile, log)
	if err != nil {
		return err
	}
	e.WAL = recovery.NewSynchronized(wal)

	log.Infow(
		"storage initialized",
		"dataDir", cfg.DataDir,
		"blockSize", cfg.BlockSize,
		"poolSize", cfg.PoolSize,
		"logFile", cfg.LogFile,
		"refreshOnHit", cfg.RefreshOnHit,
	)
	return nil
}

func (e *Entrypoint) Logger() src.Logger {
	return e.log
}

// Close makes the staged log records durable before the data pages
// that may depend on them are written back.
func (e *Entrypoint) Close() (err error) {
	if e.WAL != nil {
		if commitErr := e.WAL.Commit(e.WAL.LastStaged()); commitErr != nil {
			err = fmt.Errorf("failed to commit log: %w", commitErr)
		}
	}

	if e.Pool != nil {
		if flushErr := e.Pool.FlushAll(); flushErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to flush buffer pool: %w", flushErr))
		}
	}

	if e.log != nil {
		if err != nil {
			e.log.Errorw("failed to close storage", "error", err)
		}

		if syncErr := e.log.Sync(); syncErr != nil && !isSyncUnsupported(syncErr) {
			err = errors.Join(err, syncErr)
		}
	}

	return
}

// console outputs can't be synced on every platform
func isSyncUnsupported(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Prefix of every environment variable read by Load.
const Prefix = "STORAGECORE"

type Config struct {
	Environment  string `envconfig:"ENVIRONMENT" default:"dev"`
	DataDir      string `envconfig:"DATA_DIR" default:"data"`
	BlockSize    int    `envconfig:"BLOCK_SIZE" default:"4096"`
	PoolSize     uint64 `envconfig:"POOL_SIZE" default:"64"`
	LogFile      string `envconfig:"LOG_FILE" default:"storagecore.log"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	RefreshOnHit bool   `envconfig:"REFRESH_ON_HIT" default:"false"`
}

// Load reads envFile into the environment, if it exists, and fills a
// Config from STORAGECORE_* variables. Variables that are already set
// win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var err error
	if c.Environment != EnvDev && c.Environment != EnvProd {
		err = errors.Join(err, fmt.Errorf("unknown environment %q", c.Environment))
	}

	if c.BlockSize <= 0 {
		err = errors.Join(err, fmt.Errorf("block size must be positive, got %d", c.BlockSize))
	}

	if c.PoolSize == 0 {
		err = errors.Join(err, errors.New("pool size must be positive"))
	}

	if c.DataDir == "" {
		err = errors.Join(err, errors.New("data directory is not set"))
	}

	if c.LogFile == "" {
		err = errors.Join(err, errors.New("log file is not set"))
	}

	if _, lvlErr := zap.ParseAtomicLevel(c.LogLevel); lvlErr != nil {
		err = errors.Join(err, lvlErr)
	}

	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

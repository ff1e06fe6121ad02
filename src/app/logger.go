package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Blackdeer1524/StorageCore/src/config"
)

// NewLogger builds the development logger for the dev environment and
// the production one otherwise, at the given level.
func NewLogger(environment, level string) (*zap.SugaredLogger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var cfg zap.Config
	if environment == config.EnvDev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Sugar(), nil
}

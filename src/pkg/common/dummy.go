package common

import (
	"go.uber.org/zap"

	"github.com/Blackdeer1524/StorageCore/src"
)

var nopLogger src.Logger = zap.NewNop().Sugar()

// NopLogger returns a diagnostics logger that discards everything.
// It has nothing to do with the write-ahead log.
func NopLogger() src.Logger {
	return nopLogger
}

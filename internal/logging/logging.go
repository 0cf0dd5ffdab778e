// Package logging builds the process-wide zap logger.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"medrag/internal/domain"
)

// New returns a logger writing to stderr so command output on stdout stays
// clean. format is "console" or "json".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, domain.Configf("log level %q: %v", level, err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	switch strings.ToLower(format) {
	case "console", "text", "":
		config.Encoding = "console"
	case "json":
		config.Encoding = "json"
	default:
		return nil, domain.Configf("unknown log format %q", format)
	}

	config.EncoderConfig = zap.NewProductionEncoderConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if config.Encoding == "console" {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	return config.Build(zap.Fields(zap.String("service.name", "medrag")))
}

// Package config loads the h266decode settings from the environment and
// builds the logger.
package config

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Prefix of every environment variable, e.g. H266_LISTEN.
const Prefix = "h266"

// Config holds the settings of the h266decode command.
type Config struct {
	// Listen is the TCP address to accept Annex B streams on. Ignored when
	// Input is set.
	Listen string `default:":8000"`
	// Input is an Annex B file to decode instead of listening.
	Input string

	ChunkSize         int  `default:"4096"`
	MaxAccessUnitSize int  `default:"800000"`
	StrictConformance bool `default:"false"`

	LogLevel string `default:"info"`
	// LogFile enables a rotating JSON log next to the console output.
	LogFile       string
	LogMaxSizeMB  int `default:"20"`
	LogMaxBackups int `default:"14"`
	LogMaxDays    int `default:"7"`
}

// Load reads Config from the environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, errors.Wrap(err, "could not process environment")
	}
	if c.ChunkSize <= 0 {
		return nil, errors.Errorf("invalid chunk size %d", c.ChunkSize)
	}
	return &c, nil
}

// NewLogger builds a console logger at c.LogLevel. When c.LogFile is set,
// entries are also written as JSON to a rotated file.
func NewLogger(c *Config) (*zap.SugaredLogger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", c.LogLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)

	if c.LogFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    c.LogMaxSizeMB,
			MaxBackups: c.LogMaxBackups,
			MaxAge:     c.LogMaxDays,
			LocalTime:  true,
		}
		core = zapcore.NewTee(core, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileWriter), level))
	}
	return zap.New(core, zap.AddCaller()).Sugar(), nil
}

package config

import (
	"github.com/MonkyMars/gecho"
)

// NewLogger builds a leveled logger for the configured environment.
func NewLogger(cfg *Config, showCaller bool) *gecho.Logger {
	level := gecho.ParseLogLevel(cfg.LogLevel())
	return gecho.NewLogger(gecho.NewConfig(gecho.WithShowCaller(showCaller), gecho.WithLogLevel(level)))
}

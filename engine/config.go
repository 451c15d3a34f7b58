package engine

import (
	"go.uber.org/zap"

	jsbridge "github.com/wippyai/js-bridge"
)

// Config holds configuration for engine creation
type Config struct {
	// Logger overrides the package logger for this engine.
	Logger *zap.Logger

	// ModuleDir enables require() and resolves modules under this directory.
	ModuleDir string

	// MaxYoungSpace and MaxOldSpace are advisory heap sizes in bytes.
	// goja has no generational heap or hard cap; the values are carried into
	// HeapStats so callers can compare them with actual usage.
	MaxYoungSpace int64
	MaxOldSpace   int64

	// MaxCallStackSize limits the call depth of each context.
	// 0 keeps the goja default.
	MaxCallStackSize int

	// MarshalMode selects how plain objects leave the engine.
	MarshalMode jsbridge.MarshalMode

	// Console installs a console object whose output goes to the logger.
	Console bool
}

// Option configures an Engine.
type Option func(*Config)

// WithMarshalMode sets the default marshal mode used by boundary operations
// and proxy traps.
func WithMarshalMode(mode jsbridge.MarshalMode) Option {
	return func(c *Config) { c.MarshalMode = mode }
}

// WithMaxCallStackSize limits call depth; exceeding it aborts the script.
func WithMaxCallStackSize(size int) Option {
	return func(c *Config) { c.MaxCallStackSize = size }
}

// WithConsole enables the console object.
func WithConsole(enabled bool) Option {
	return func(c *Config) { c.Console = enabled }
}

// WithModuleDir enables require() rooted at dir.
func WithModuleDir(dir string) Option {
	return func(c *Config) { c.ModuleDir = dir }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithHeapLimits records advisory heap limits in bytes.
func WithHeapLimits(maxYoung, maxOld int64) Option {
	return func(c *Config) {
		c.MaxYoungSpace = maxYoung
		c.MaxOldSpace = maxOld
	}
}

package aebridge

import (
	"errors"
	"log/slog"

	"github.com/facebookgo/clock"
	"github.com/fogfish/opts"
)

// WithLogger sets the logger the bridge and its loops write to. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) opts.Option[Bridge] {
	return opts.Type[Bridge](func(b *Bridge) error {
		if log == nil {
			return errors.New("aebridge: logger is required")
		}
		b.log = log
		return nil
	})
}

// WithClock sets the clock used for dispatch and suspension timeouts. Tests
// pass a mock clock to drive timeouts deterministically.
func WithClock(clk clock.Clock) opts.Option[Bridge] {
	return opts.Type[Bridge](func(b *Bridge) error {
		if clk == nil {
			return errors.New("aebridge: clock is required")
		}
		b.clk = clk
		return nil
	})
}

// WithHook sets the observability hook for dispatch tracing.
func WithHook(hook Hook) opts.Option[Bridge] {
	return opts.Type[Bridge](func(b *Bridge) error {
		if hook == nil {
			return errors.New("aebridge: hook is required")
		}
		b.hook = hook
		return nil
	})
}

// WithConfig sets the bridge configuration wholesale. Combine with
// ConfigFromEnv to honor AEBRIDGE_* environment variables.
func WithConfig(cfg Config) opts.Option[Bridge] {
	return opts.Type[Bridge](func(b *Bridge) error {
		if cfg.SendTimeout < 0 {
			return errors.New("aebridge: send timeout must not be negative")
		}
		b.cfg = cfg
		return nil
	})
}

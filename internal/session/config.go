package session

import "time"

// DevelopmentPort is the fixed listen port used when developing the viewer
// against a long-lived bridge, so the viewer can be restarted and reattached
// by hand.
const DevelopmentPort uint16 = 9588

// Config defines socket/session behavior for one bridge session.
type Config struct {
	// Port to listen on. 0 selects an ephemeral port unless Development is
	// set, which forces DevelopmentPort.
	Port uint16

	// Development skips the viewer spawn and stretches the accept timeout so
	// a hand-started viewer can attach.
	Development bool

	// ViewerPath is the viewer executable, launched with
	// {path, "-p", port, "-l", LogFilePath}. Empty disables the spawn.
	ViewerPath string

	// LogFilePath is handed to the viewer so both processes share one log
	// sink.
	LogFilePath string

	AcceptTimeout time.Duration
	// FetchTimeout bounds the read pump run inside a blocking Fetch.
	FetchTimeout time.Duration
	// TickTimeout bounds the read pump run inside the periodic event loop.
	TickTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		AcceptTimeout: 10 * time.Second,
		FetchTimeout:  3 * time.Second,
		TickTimeout:   200 * time.Millisecond,
	}
}

// DevelopmentConfig returns defaults for viewer development: fixed port, no
// spawn, ten minutes to attach by hand.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Development = true
	cfg.Port = DevelopmentPort
	cfg.AcceptTimeout = 10 * time.Minute
	return cfg
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.AcceptTimeout <= 0 {
		c.AcceptTimeout = def.AcceptTimeout
		if c.Development {
			c.AcceptTimeout = 10 * time.Minute
		}
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = def.FetchTimeout
	}
	if c.TickTimeout <= 0 {
		c.TickTimeout = def.TickTimeout
	}
	if c.Development && c.Port == 0 {
		c.Port = DevelopmentPort
	}
	return c
}

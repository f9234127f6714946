package config

import (
	"time"

	"github.com/vizdbg/bridge/internal/session"
)

// SessionConfig maps file-level settings onto the session's runtime config,
// leaving zeroed timeouts to the session defaults.
func SessionConfig(cfg BridgeConfig) session.Config {
	out := session.Config{
		Port:        cfg.Port,
		Development: cfg.Development,
		ViewerPath:  cfg.ViewerPath,
		LogFilePath: cfg.LogFile,
	}
	if cfg.AcceptTimeoutMS > 0 {
		out.AcceptTimeout = time.Duration(cfg.AcceptTimeoutMS) * time.Millisecond
	}
	if cfg.FetchTimeoutMS > 0 {
		out.FetchTimeout = time.Duration(cfg.FetchTimeoutMS) * time.Millisecond
	}
	if cfg.TickTimeoutMS > 0 {
		out.TickTimeout = time.Duration(cfg.TickTimeoutMS) * time.Millisecond
	}
	return out
}

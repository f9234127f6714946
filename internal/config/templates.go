package config

import (
	"fmt"
	"os"
)

func Template() string {
	return bridgeTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(bridgeTemplate), 0o600)
}

const bridgeTemplate = `# vizbridge host-side configuration

# 0 selects an ephemeral port; development mode forces 9588.
port = 0
development = false

viewer_path = "/usr/local/bin/vizwindow"
log_file = "/tmp/vizbridge.log"

# Local status/metrics API.
status_addr = ":9590"
cors_origins = ["http://localhost:3000"]

accept_timeout_ms = 10000
fetch_timeout_ms = 3000
tick_timeout_ms = 200
`

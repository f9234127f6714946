package session

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync/atomic"
)

// viewerProc wraps the out-of-band viewer process. The bridge only ever
// needs start, liveness, and kill.
type viewerProc struct {
	cmd  *exec.Cmd
	done atomic.Bool
}

// launchViewer starts the viewer executable with the listen port and shared
// log file path on its command line.
func launchViewer(path string, port uint16, logFile string) (*viewerProc, error) {
	args := []string{"-p", strconv.Itoa(int(port))}
	if logFile != "" {
		args = append(args, "-l", logFile)
	}
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("session: launch viewer: %w", err)
	}
	p := &viewerProc{cmd: cmd}
	go func() {
		// Reap the child; liveness checks read the flag.
		cmd.Wait()
		p.done.Store(true)
	}()
	return p, nil
}

func (p *viewerProc) isRunning() bool {
	return p != nil && !p.done.Load()
}

func (p *viewerProc) kill() {
	if p == nil || p.done.Load() {
		return
	}
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
}

package provision

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Launcher spawns one dedicated game server process per match. It does not
// wait for the server to become ready; callers schedule their own settling
// delay.
type Launcher struct {
	Binary string
	Log    logrus.FieldLogger

	// command builds the process; tests swap it out.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewLauncher(binary string, logger logrus.FieldLogger) *Launcher {
	return &Launcher{Binary: binary, Log: logger, command: exec.CommandContext}
}

// Launch starts `<Binary> -Port=<port>` and reaps it in the background. The
// process outlives ctx only if ctx is never cancelled, so callers should pass
// a context scoped to the orchestrator's lifetime.
func (l *Launcher) Launch(ctx context.Context, port int) error {
	if l.Binary == "" {
		return fmt.Errorf("no game server binary configured")
	}
	cmd := l.command(ctx, l.Binary, fmt.Sprintf("-Port=%d", port))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s on port %d: %w", l.Binary, port, err)
	}

	logger := l.Log.WithFields(logrus.Fields{"pid": cmd.Process.Pid, "port": port})
	logger.Info("game server spawned")
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.WithError(err).Warn("game server exited")
			return
		}
		logger.Info("game server exited")
	}()
	return nil
}

package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// Launcher runs the bridge executable as a child process and mirrors its
// output into the structured log. It is only used when gateway.exec_path is
// set; otherwise the bridge is expected to be running already.
type Launcher struct {
	path   string
	args   []string
	env    []string
	logger *slog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

type LauncherOptions struct {
	Path   string
	Args   []string
	Env    []string
	Logger *slog.Logger
}

func NewLauncher(opts LauncherOptions) (*Launcher, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("gateway exec path is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Launcher{
		path:   strings.TrimSpace(opts.Path),
		args:   opts.Args,
		env:    opts.Env,
		logger: opts.Logger,
	}, nil
}

// Start launches the child. The child dies with the context; Wait reports
// its exit.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd != nil {
		return fmt.Errorf("gateway process already started")
	}

	cmd := exec.CommandContext(ctx, l.path, l.args...)
	if len(l.env) > 0 {
		cmd.Env = l.env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("gateway stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("gateway stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start gateway process: %w", err)
	}
	l.cmd = cmd
	l.logger.Info("gateway_process_started", "path", l.path, "pid", cmd.Process.Pid)

	go l.mirror(stdout, "stdout")
	go l.mirror(stderr, "stderr")
	return nil
}

// Wait blocks until the child exits.
func (l *Launcher) Wait() error {
	l.mu.Lock()
	cmd := l.cmd
	l.mu.Unlock()
	if cmd == nil {
		return fmt.Errorf("gateway process not started")
	}
	err := cmd.Wait()
	if err != nil {
		l.logger.Warn("gateway_process_exited", "error", err.Error())
		return fmt.Errorf("gateway process exited: %w", err)
	}
	l.logger.Info("gateway_process_exited")
	return nil
}

func (l *Launcher) mirror(r io.Reader, stream string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		l.logger.Info("gateway_process_output", "stream", stream, "line", line)
	}
}

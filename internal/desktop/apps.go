package desktop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/deskmate/internal/logger"
)

var log = logger.New("desktop")

const closeWait = 5 * time.Second

var ErrUnknownApp = errors.New("unknown application")

// platformApps maps spoken names to launch commands per GOOS.
var platformApps = map[string]map[string][]string{
	"windows": {
		"calculator": {"calc.exe"},
		"calendar":   {"outlookcal.exe"},
		"notepad":    {"notepad.exe"},
	},
	"linux": {
		"calculator": {"gnome-calculator"},
		"calendar":   {"gnome-calendar"},
		"notepad":    {"gedit"},
	},
	"darwin": {
		"calculator": {"open", "-a", "Calculator.app"},
		"calendar":   {"open", "-a", "Calendar.app"},
		"notepad":    {"open", "-a", "TextEdit.app"},
	},
}

type process struct {
	cmd  *exec.Cmd
	done chan error
}

// Apps launches registered desktop applications and closes the ones it
// launched itself.
type Apps struct {
	mu       sync.Mutex
	commands map[string][]string
	track    bool
	running  map[string]*process
}

// NewApps returns the registry for goos; an empty goos means the host.
// On darwin launches go through open(1) and cannot be closed later.
func NewApps(goos string) *Apps {
	if goos == "" {
		goos = runtime.GOOS
	}
	commands, ok := platformApps[goos]
	if !ok {
		commands = platformApps["linux"]
	}
	return NewAppsWithCommands(commands, goos != "darwin")
}

func NewAppsWithCommands(commands map[string][]string, track bool) *Apps {
	normalized := make(map[string][]string, len(commands))
	for name, argv := range commands {
		if len(argv) == 0 {
			continue
		}
		normalized[strings.ToLower(strings.TrimSpace(name))] = argv
	}
	return &Apps{
		commands: normalized,
		track:    track,
		running:  make(map[string]*process),
	}
}

func (a *Apps) Known(name string) bool {
	_, ok := a.commands[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Open starts the application. It reports false for unknown names and
// launch failures.
func (a *Apps) Open(_ context.Context, name string) bool {
	if err := a.open(name); err != nil {
		log.Err(err).Str("app", name).Msg("Failed to open application")
		return false
	}
	return true
}

func (a *Apps) open(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	argv, ok := a.commands[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownApp, name)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}

	p := &process{cmd: cmd, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()

	if !a.track {
		return nil
	}
	a.mu.Lock()
	a.running[name] = p
	a.mu.Unlock()
	log.Info().Str("app", name).Int("pid", cmd.Process.Pid).Msg("Application started")
	return nil
}

// Close stops an application previously started by Open. It asks the
// process to exit, then kills it if it is still alive after closeWait.
func (a *Apps) Close(ctx context.Context, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	a.mu.Lock()
	p, ok := a.running[name]
	if ok {
		delete(a.running, name)
	}
	a.mu.Unlock()
	if !ok {
		log.Warn().Str("app", name).Msg("Close requested for an application that was not started here")
		return false
	}

	if err := stopProcess(ctx, p); err != nil {
		log.Err(err).Str("app", name).Msg("Failed to close application")
		return false
	}
	return true
}

func stopProcess(ctx context.Context, p *process) error {
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		// Windows has no interrupt for other processes.
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}

	timer := time.NewTimer(closeWait)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
	case <-timer.C:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}

// Shutdown stops every tracked application.
func (a *Apps) Shutdown(ctx context.Context) {
	a.mu.Lock()
	running := a.running
	a.running = make(map[string]*process)
	a.mu.Unlock()
	for name, p := range running {
		if err := stopProcess(ctx, p); err != nil {
			log.Err(err).Str("app", name).Msg("Failed to stop application on shutdown")
		}
	}
}

package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const stderrTailBytes = 4 << 10

// CommandInput runs an external recognizer per capture. The command prints
// the recognized phrase on stdout; empty output means nothing was heard.
type CommandInput struct {
	name string
	args []string
}

func NewCommandInput(command string) (*CommandInput, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("speech input command is empty")
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("speech input command %q: %w", fields[0], err)
	}
	return &CommandInput{name: path, args: fields[1:]}, nil
}

func (c *CommandInput) Capture(ctx context.Context, timeout, phraseLimit time.Duration) (string, bool, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout+phraseLimit)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.name, c.args...)
	cmd.Env = append(os.Environ(),
		"LISTEN_TIMEOUT_SECONDS="+strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64),
		"PHRASE_TIME_LIMIT_SECONDS="+strconv.FormatFloat(phraseLimit.Seconds(), 'f', -1, 64),
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", false, nil
		}
		detail := stderr.String()
		if detail == "" {
			detail = err.Error()
		}
		return "", false, fmt.Errorf("speech input command failed: %s", detail)
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

// CommandRenderer speaks through a synthesizer binary such as espeak-ng.
type CommandRenderer struct {
	name string
	args []string
}

// NewCommandRenderer resolves command on PATH. lang is passed as the voice
// for espeak-style synthesizers.
func NewCommandRenderer(command, lang string) (*CommandRenderer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("speech output command is empty")
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("speech output command %q: %w", fields[0], err)
	}
	args := fields[1:]
	if lang = strings.TrimSpace(lang); lang != "" && isEspeak(fields[0]) {
		args = append(args, "-v", lang)
	}
	return &CommandRenderer{name: path, args: args}, nil
}

func isEspeak(name string) bool {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.HasPrefix(base, "espeak")
}

func (r *CommandRenderer) Render(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	args := append(append([]string(nil), r.args...), text)
	cmd := exec.CommandContext(ctx, r.name, args...)
	cmd.Stdout = io.Discard
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := stderr.String()
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("speech output command failed: %s", detail)
	}
	return nil
}

// SilentRenderer discards speech. Text still reaches clients through the
// Speaker's events.
type SilentRenderer struct{}

func (SilentRenderer) Render(_ context.Context, text string) error {
	log.Debug().Str("text", text).Msg("Silent render")
	return nil
}

package desktop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

const (
	DefaultSearchURL      = "https://www.google.com/search?q="
	DefaultVideoSearchURL = "https://www.youtube.com/results?search_query="
)

// OpenFunc hands a URL to the user's browser.
type OpenFunc func(ctx context.Context, target string) error

// Browser opens web and video searches in the default browser.
type Browser struct {
	searchURL string
	videoURL  string
	open      OpenFunc
}

func NewBrowser(searchURL, videoURL string, open OpenFunc) *Browser {
	if strings.TrimSpace(searchURL) == "" {
		searchURL = DefaultSearchURL
	}
	if strings.TrimSpace(videoURL) == "" {
		videoURL = DefaultVideoSearchURL
	}
	if open == nil {
		open = SystemOpener("", "")
	}
	return &Browser{searchURL: searchURL, videoURL: videoURL, open: open}
}

func (b *Browser) Search(ctx context.Context, query string) error {
	return b.openQuery(ctx, b.searchURL, query)
}

func (b *Browser) PlayVideo(ctx context.Context, query string) error {
	return b.openQuery(ctx, b.videoURL, query)
}

func (b *Browser) openQuery(ctx context.Context, base, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return errors.New("empty query")
	}
	target := base + url.QueryEscape(query)
	if err := b.open(ctx, target); err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	log.Info().Str("url", target).Msg("Opened browser")
	return nil
}

// SystemOpener returns an OpenFunc using command when set, otherwise the
// platform opener for goos.
func SystemOpener(command, goos string) OpenFunc {
	if goos == "" {
		goos = runtime.GOOS
	}
	argv := strings.Fields(command)
	if len(argv) == 0 {
		switch goos {
		case "windows":
			argv = []string{"rundll32", "url.dll,FileProtocolHandler"}
		case "darwin":
			argv = []string{"open"}
		default:
			argv = []string{"xdg-open"}
		}
	}
	return func(_ context.Context, target string) error {
		args := append(append([]string(nil), argv[1:]...), target)
		cmd := exec.Command(argv[0], args...)
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
		if err := cmd.Start(); err != nil {
			return err
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}

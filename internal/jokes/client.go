package jokes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultURL = "https://v2.jokeapi.dev/joke/Programming?safe-mode"

var ErrEmptyJoke = errors.New("joke payload is empty")

// HTTPError reports a non-200 answer from the joke service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("joke api status %d", e.StatusCode)
	}
	return fmt.Sprintf("joke api status %d: %s", e.StatusCode, e.Body)
}

// Joke is either a one-liner or a setup/delivery pair.
type Joke struct {
	Type     string `json:"type"`
	Joke     string `json:"joke"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
}

// Text renders the joke for speech.
func (j Joke) Text() string {
	if j.Type == "single" {
		return strings.TrimSpace(j.Joke)
	}
	return strings.TrimSpace(j.Setup) + " ... " + strings.TrimSpace(j.Delivery)
}

type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string) *Client {
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	return &Client{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fetch makes a single request. Failures are returned as is.
func (c *Client) Fetch(ctx context.Context) (Joke, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Joke{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return Joke{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Joke{}, &HTTPError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var j Joke
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&j); err != nil {
		return Joke{}, fmt.Errorf("decode joke: %w", err)
	}
	switch {
	case j.Type == "single" && strings.TrimSpace(j.Joke) == "":
		return Joke{}, ErrEmptyJoke
	case j.Type != "single" && strings.TrimSpace(j.Setup) == "" && strings.TrimSpace(j.Delivery) == "":
		return Joke{}, ErrEmptyJoke
	}
	return j, nil
}

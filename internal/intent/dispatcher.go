package intent

import (
	"context"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/ent0n29/deskmate/internal/jokes"
	"github.com/ent0n29/deskmate/internal/logger"
	"github.com/ent0n29/deskmate/internal/observability"
	"github.com/ent0n29/deskmate/internal/policy"
	"github.com/ent0n29/deskmate/internal/reminders"
)

var log = logger.New("intent")

// Outcome tells the listening loop whether to keep going.
type Outcome int

const (
	Continue Outcome = iota
	Stop
)

func (o Outcome) String() string {
	if o == Stop {
		return "stop"
	}
	return "continue"
}

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Reminders interface {
	Add(ctx context.Context, message string, offset time.Duration) (reminders.Reminder, error)
	Cancel(ctx context.Context, id int) bool
	Describe() string
}

type Apps interface {
	Known(name string) bool
	Open(ctx context.Context, name string) bool
	Close(ctx context.Context, name string) bool
}

type Browser interface {
	Search(ctx context.Context, query string) error
	PlayVideo(ctx context.Context, query string) error
}

type Jokes interface {
	Fetch(ctx context.Context) (jokes.Joke, error)
}

// Deps are the collaborators a Dispatcher acts through.
type Deps struct {
	Speaker   Speaker
	Reminders Reminders
	Apps      Apps
	Browser   Browser
	Jokes     Jokes
	Metrics   *observability.Metrics
}

// rule handles an utterance when match is true. handle may still decline
// by returning handled=false, and evaluation moves on to the next rule.
type rule struct {
	name   string
	match  func(text string) bool
	handle func(ctx context.Context, text string) (outcome Outcome, handled bool)
}

// Dispatcher maps an utterance to exactly one action, first match wins.
type Dispatcher struct {
	deps  Deps
	rules []rule
}

func NewDispatcher(deps Deps) *Dispatcher {
	d := &Dispatcher{deps: deps}
	d.rules = d.buildRules()
	return d
}

// Dispatch runs the first rule that handles utterance.
func (d *Dispatcher) Dispatch(ctx context.Context, utterance string) Outcome {
	text := normalize(utterance)
	if text == "" {
		return Continue
	}

	start := time.Now()
	for _, r := range d.rules {
		if !r.match(text) {
			continue
		}
		outcome, handled := r.handle(ctx, text)
		if !handled {
			log.Debug().Str("intent", r.name).Str("text", policy.ForLog(text)).Msg("Rule declined")
			continue
		}
		elapsed := time.Since(start)
		d.deps.Metrics.ObserveIntent(r.name)
		d.deps.Metrics.ObserveDispatch(r.name, elapsed)
		log.Info().
			Str("intent", r.name).
			Dur("elapsed", elapsed).
			Str("text", policy.ForLog(text)).
			Stringer("outcome", outcome).
			Msg("Dispatched utterance")
		return outcome
	}
	return Continue
}

func normalize(utterance string) string {
	return strings.ToLower(strings.TrimSpace(utterance))
}

func (d *Dispatcher) say(ctx context.Context, text string) {
	if err := d.deps.Speaker.Speak(ctx, text); err != nil {
		log.Err(err).Msg("Failed to speak response")
	}
}

// fail logs err under a fresh correlation id and speaks apology.
func (d *Dispatcher) fail(ctx context.Context, intentName string, err error, apology string) {
	log.Err(err).
		Str("intent", intentName).
		Str("correlation_id", xid.New().String()).
		Msg("Intent failed")
	d.say(ctx, apology)
}

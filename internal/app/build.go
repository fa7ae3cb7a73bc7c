package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/deskmate/internal/config"
	"github.com/ent0n29/deskmate/internal/desktop"
	"github.com/ent0n29/deskmate/internal/events"
	"github.com/ent0n29/deskmate/internal/httpapi"
	"github.com/ent0n29/deskmate/internal/intent"
	"github.com/ent0n29/deskmate/internal/jokes"
	"github.com/ent0n29/deskmate/internal/logger"
	"github.com/ent0n29/deskmate/internal/observability"
	"github.com/ent0n29/deskmate/internal/protocol"
	"github.com/ent0n29/deskmate/internal/reminders"
	"github.com/ent0n29/deskmate/internal/session"
	"github.com/ent0n29/deskmate/internal/voice"
)

var log = logger.New("app")

type SpeechInfo struct {
	InputMode  string
	OutputMode string
	Detail     string
}

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Assistant *session.Assistant
	Scheduler *reminders.Scheduler
	Reminders *reminders.Store
	Hub       *events.Hub
	Metrics   *observability.Metrics
	Speech    SpeechInfo

	// Cleanup should be called on shutdown to release external resources (DB, launched apps).
	Cleanup func(ctx context.Context) error
}

// Build wires every component. ctx bounds the listening loops started from
// the control surface.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	speech, err := resolveSpeech(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := reminders.NewBackend(ctx, cfg.DatabaseURL, cfg.RemindersFile)
	if err != nil {
		return nil, fmt.Errorf("%s reminder store init failed: %w", cfg.StorageMode(), err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	hub := events.NewHub(metrics)

	store := reminders.NewStore(backend)
	store.SetChangeHook(metrics.SetActiveReminders)
	if err := store.Load(ctx); err != nil {
		log.Err(err).Str("backend", backend.Mode()).Msg("Starting with no reminders")
	}

	speaker := voice.NewSpeaker(speech.renderer, hub, metrics)
	apps := desktop.NewApps("")
	dispatcher := intent.NewDispatcher(intent.Deps{
		Speaker:   speaker,
		Reminders: store,
		Apps:      apps,
		Browser:   desktop.NewBrowser(cfg.SearchURL, cfg.VideoSearchURL, desktop.SystemOpener(cfg.BrowserCommand, "")),
		Jokes:     jokes.NewClient(cfg.JokeAPIURL),
		Metrics:   metrics,
	})

	assistant := session.NewAssistant(session.Config{
		ListenTimeout:   cfg.ListenTimeout,
		PhraseTimeLimit: cfg.PhraseTimeLimit,
	}, speech.input, dispatcher, hub, metrics)
	assistant.SetStateHook(func(listening bool) {
		if !listening && speech.queue != nil {
			speech.queue.Drain()
		}
		hub.Broadcast(protocol.NewListeningState(listening))
	})

	scheduler := reminders.NewScheduler(store, speaker, cfg.ReminderPollInterval)
	scheduler.SetFireHook(func(reminders.Reminder) {
		metrics.ObserveReminder("fired")
	})

	deps := httpapi.Deps{
		Assistant:  assistant,
		Hub:        hub,
		Reminders:  store,
		Metrics:    metrics,
		InputMode:  speech.inputMode,
		OutputMode: speech.outputMode,
	}
	if speech.queue != nil {
		deps.Utterances = speech.queue
	}
	api := httpapi.New(ctx, cfg, deps)

	cleanup := func(ctx context.Context) error {
		var errs []string
		assistant.Stop()
		assistant.Wait()
		apps.Shutdown(ctx)
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return errors.New(strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Assistant: assistant,
		Scheduler: scheduler,
		Reminders: store,
		Hub:       hub,
		Metrics:   metrics,
		Speech: SpeechInfo{
			InputMode:  speech.inputMode,
			OutputMode: speech.outputMode,
			Detail:     speech.detail,
		},
		Cleanup: cleanup,
	}, nil
}

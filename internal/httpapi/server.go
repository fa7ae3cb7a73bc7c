package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/deskmate/internal/config"
	"github.com/ent0n29/deskmate/internal/events"
	"github.com/ent0n29/deskmate/internal/logger"
	"github.com/ent0n29/deskmate/internal/observability"
	"github.com/ent0n29/deskmate/internal/protocol"
	"github.com/ent0n29/deskmate/internal/reminders"
)

var log = logger.New("httpapi")

const (
	writeWait   = 10 * time.Second
	pongWait    = 120 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	readLimit   = 64 << 10
	errNotReady = "browser speech input is not enabled"
)

type Assistant interface {
	Start(ctx context.Context) bool
	Stop()
	Listening() bool
}

type ReminderLister interface {
	List() []reminders.Reminder
	Mode() string
}

// UtteranceQueue accepts phrases recognized by the page.
type UtteranceQueue interface {
	Push(text string) bool
}

// Deps are the components the HTTP surface drives.
type Deps struct {
	Assistant  Assistant
	Hub        *events.Hub
	Reminders  ReminderLister
	Utterances UtteranceQueue
	Metrics    *observability.Metrics
	InputMode  string
	OutputMode string
}

type Server struct {
	cfg      config.Config
	deps     Deps
	baseCtx  context.Context
	upgrader websocket.Upgrader
	static   http.Handler
}

// New builds the server. baseCtx bounds listening loops started from the
// control surface, so they outlive the request that started them.
func New(baseCtx context.Context, cfg config.Config, deps Deps) *Server {
	return &Server{
		cfg:     cfg,
		deps:    deps,
		baseCtx: baseCtx,
		static:  newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only the page served from this origin may drive the microphone.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", s.static))
	r.Get("/ws", s.handleWS)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/reminders", s.handleListReminders)
	r.Get("/v1/onboarding/status", s.handleOnboardingStatus)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	r.URL.Path = "/"
	s.static.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"reminder_store":     s.storeMode(),
		"listening":          s.deps.Assistant != nil && s.deps.Assistant.Listening(),
		"connected_clients":  s.clientCount(),
		"speech_input_mode":  s.deps.InputMode,
		"speech_output_mode": s.deps.OutputMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Assistant == nil || s.deps.Hub == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"reminder_store": s.storeMode(),
	})
}

type reminderView struct {
	ID      int       `json:"id"`
	Message string    `json:"message"`
	DueAt   time.Time `json:"due_at"`
	Spoken  string    `json:"spoken_time"`
}

func (s *Server) handleListReminders(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Reminders == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "reminder store not configured")
		return
	}
	items := s.deps.Reminders.List()
	out := make([]reminderView, 0, len(items))
	for _, r := range items {
		out = append(out, reminderView{
			ID:      r.ID,
			Message: r.Message,
			DueAt:   r.DueAt,
			Spoken:  reminders.SpokenTime(r.DueAt),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"reminders": out})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil || s.deps.Assistant == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "assistant not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := s.deps.Hub.Register()
	defer s.deps.Hub.Unregister(client)
	log.Info().Str("client_id", client.ID).Str("remote", r.RemoteAddr).Msg("Client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-client.Messages():
				if !ok {
					cancel()
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	s.deps.Hub.Send(client, protocol.NewListeningState(s.deps.Assistant.Listening()))

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for ctx.Err() == nil {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.deps.Metrics.ObserveMessage("in", "invalid")
			s.deps.Hub.Send(client, protocol.NewError(err.Error()))
			continue
		}
		s.handleClientMessage(client, parsed)
	}

	cancel()
	<-writerDone
	log.Info().Str("client_id", client.ID).Msg("Client disconnected")
}

func (s *Server) handleClientMessage(client *events.Client, msg any) {
	switch m := msg.(type) {
	case protocol.StartListening:
		s.deps.Metrics.ObserveMessage("in", string(protocol.EventStartListening))
		if !s.deps.Assistant.Start(s.baseCtx) {
			s.deps.Hub.Send(client, protocol.NewListeningState(true))
		}
	case protocol.StopListening:
		s.deps.Metrics.ObserveMessage("in", string(protocol.EventStopListening))
		s.deps.Assistant.Stop()
	case protocol.Utterance:
		s.deps.Metrics.ObserveMessage("in", string(protocol.EventUtterance))
		switch {
		case s.deps.Utterances == nil:
			s.deps.Hub.Send(client, protocol.NewError(errNotReady))
		case !s.deps.Assistant.Listening():
			s.deps.Hub.Send(client, protocol.NewError("assistant is not listening"))
		case !s.deps.Utterances.Push(m.Text):
			s.deps.Hub.Send(client, protocol.NewError("speech queue is full"))
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func (s *Server) storeMode() string {
	if s.deps.Reminders == nil {
		return "disabled"
	}
	mode := strings.TrimSpace(s.deps.Reminders.Mode())
	if mode == "" {
		return "disabled"
	}
	return mode
}

func (s *Server) clientCount() int {
	if s.deps.Hub == nil {
		return 0
	}
	return s.deps.Hub.Count()
}

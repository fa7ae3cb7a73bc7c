package httpapi

import (
	"net/http"
	"os/exec"
	"runtime"
	"strings"
)

type onboardingCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type onboardingStatusResponse struct {
	SpeechInputMode  string            `json:"speech_input_mode"`
	SpeechOutputMode string            `json:"speech_output_mode"`
	ReminderStore    string            `json:"reminder_store"`
	Ready            bool              `json:"ready"`
	Checks           []onboardingCheck `json:"checks"`
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, _ *http.Request) {
	checks := make([]onboardingCheck, 0, 6)
	checks = append(checks, s.inputChecks()...)
	checks = append(checks, s.outputChecks()...)
	checks = append(checks, s.storeCheck())
	checks = append(checks, s.browserCheck())

	ready := true
	for _, c := range checks {
		if c.Status == "error" {
			ready = false
			break
		}
	}

	respondJSON(w, http.StatusOK, onboardingStatusResponse{
		SpeechInputMode:  s.deps.InputMode,
		SpeechOutputMode: s.deps.OutputMode,
		ReminderStore:    s.storeMode(),
		Ready:            ready,
		Checks:           checks,
	})
}

func (s *Server) inputChecks() []onboardingCheck {
	switch s.deps.InputMode {
	case "command":
		cmd := firstField(s.cfg.STTCommand)
		if _, err := exec.LookPath(cmd); err != nil {
			return []onboardingCheck{{
				ID:     "speech_input",
				Status: "error",
				Label:  "Speech recognizer",
				Detail: "STT_COMMAND not found: " + cmd,
				Fix:    "Install the recognizer or set SPEECH_INPUT=browser.",
			}}
		}
		return []onboardingCheck{{ID: "speech_input", Status: "ok", Label: "Speech recognizer", Detail: cmd}}
	case "browser":
		return []onboardingCheck{{
			ID:     "speech_input",
			Status: "ok",
			Label:  "Speech recognizer",
			Detail: "browser page sends utterance events",
		}}
	default:
		return []onboardingCheck{{
			ID:     "speech_input",
			Status: "warn",
			Label:  "Speech recognizer",
			Detail: "mock input, no microphone is used",
			Fix:    "Set STT_COMMAND or SPEECH_INPUT=browser.",
		}}
	}
}

func (s *Server) outputChecks() []onboardingCheck {
	if s.deps.OutputMode != "command" {
		return []onboardingCheck{{
			ID:     "speech_output",
			Status: "warn",
			Label:  "Speech synthesizer",
			Detail: "silent, responses are only shown on the page",
			Fix:    "Install espeak-ng or set TTS_COMMAND.",
		}}
	}
	cmd := firstField(s.cfg.TTSCommand)
	if _, err := exec.LookPath(cmd); err != nil {
		return []onboardingCheck{{
			ID:     "speech_output",
			Status: "error",
			Label:  "Speech synthesizer",
			Detail: "TTS_COMMAND not found: " + cmd,
		}}
	}
	return []onboardingCheck{{ID: "speech_output", Status: "ok", Label: "Speech synthesizer", Detail: cmd}}
}

func (s *Server) storeCheck() onboardingCheck {
	switch mode := s.storeMode(); mode {
	case "postgres":
		return onboardingCheck{ID: "reminder_store", Status: "ok", Label: "Reminder persistence", Detail: "postgres"}
	case "file":
		return onboardingCheck{ID: "reminder_store", Status: "ok", Label: "Reminder persistence", Detail: s.cfg.RemindersFile}
	default:
		return onboardingCheck{
			ID:     "reminder_store",
			Status: "warn",
			Label:  "Reminder persistence",
			Detail: mode,
			Fix:    "Set REMINDERS_FILE or DATABASE_URL.",
		}
	}
}

func (s *Server) browserCheck() onboardingCheck {
	cmd := firstField(s.cfg.BrowserCommand)
	if cmd == "" {
		switch runtime.GOOS {
		case "windows":
			cmd = "rundll32"
		case "darwin":
			cmd = "open"
		default:
			cmd = "xdg-open"
		}
	}
	if _, err := exec.LookPath(cmd); err != nil {
		return onboardingCheck{
			ID:     "browser",
			Status: "warn",
			Label:  "Browser opener",
			Detail: cmd + " not found",
			Fix:    "Set BROWSER_COMMAND to a program that opens URLs.",
		}
	}
	return onboardingCheck{ID: "browser", Status: "ok", Label: "Browser opener", Detail: cmd}
}

func firstField(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

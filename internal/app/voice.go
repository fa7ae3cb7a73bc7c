package app

import (
	"fmt"
	"strings"

	"github.com/ent0n29/deskmate/internal/config"
	"github.com/ent0n29/deskmate/internal/voice"
)

type speechSetup struct {
	input      voice.Input
	queue      *voice.QueueInput
	renderer   voice.Renderer
	inputMode  string
	outputMode string
	detail     string
}

func resolveSpeech(cfg config.Config) (speechSetup, error) {
	var setup speechSetup

	inputMode := strings.ToLower(strings.TrimSpace(cfg.SpeechInput))
	if inputMode == "" {
		inputMode = "auto"
	}
	if inputMode == "auto" {
		inputMode = "browser"
		if strings.TrimSpace(cfg.STTCommand) != "" {
			inputMode = "command"
		}
	}

	switch inputMode {
	case "command":
		in, err := voice.NewCommandInput(cfg.STTCommand)
		if err != nil {
			return speechSetup{}, fmt.Errorf("speech input init failed: %w", err)
		}
		setup.input = in
	case "browser":
		q := voice.NewQueueInput()
		setup.input = q
		setup.queue = q
	case "mock":
		setup.input = voice.NewMockInput()
	default:
		return speechSetup{}, fmt.Errorf("invalid SPEECH_INPUT: %q (expected auto|command|browser|mock)", cfg.SpeechInput)
	}
	setup.inputMode = inputMode

	outputMode := strings.ToLower(strings.TrimSpace(cfg.SpeechOutput))
	if outputMode == "" {
		outputMode = "auto"
	}
	switch outputMode {
	case "command":
		r, err := voice.NewCommandRenderer(cfg.TTSCommand, cfg.TTSLang)
		if err != nil {
			return speechSetup{}, fmt.Errorf("speech output init failed: %w", err)
		}
		setup.renderer = r
	case "auto":
		r, err := voice.NewCommandRenderer(cfg.TTSCommand, cfg.TTSLang)
		if err != nil {
			setup.renderer = voice.SilentRenderer{}
			outputMode = "silent"
			setup.detail = "no synthesizer found, responses are text only"
			break
		}
		setup.renderer = voice.NewFailoverRenderer(r, voice.SilentRenderer{})
		outputMode = "command"
	case "silent":
		setup.renderer = voice.SilentRenderer{}
	default:
		return speechSetup{}, fmt.Errorf("invalid SPEECH_OUTPUT: %q (expected auto|command|silent)", cfg.SpeechOutput)
	}
	setup.outputMode = outputMode
	if setup.detail == "" {
		setup.detail = fmt.Sprintf("input=%s output=%s", inputMode, outputMode)
	}
	return setup, nil
}

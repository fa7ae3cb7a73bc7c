package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventName identifies websocket payload variants.
type EventName string

const (
	EventStartListening EventName = "start_listening"
	EventStopListening  EventName = "stop_listening"
	EventUtterance      EventName = "utterance"

	EventRecognizedSpeech      EventName = "recognized_speech"
	EventAssistantResponse     EventName = "assistant_response"
	EventAssistantDoneSpeaking EventName = "assistant_done_speaking"
	EventError                 EventName = "error"
	EventListeningState        EventName = "listening_state"
)

var ErrUnsupportedType = errors.New("unsupported event")

// Envelope is the wire frame for both directions.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type StartListening struct{}

type StopListening struct{}

type Utterance struct {
	Text string `json:"text"`
}

type RecognizedSpeech struct {
	Text string `json:"text"`
}

type AssistantResponse struct {
	Response string `json:"response"`
}

type ErrorEvent struct {
	Error string `json:"error"`
}

type ListeningState struct {
	Listening bool `json:"listening"`
}

// ServerMessage is an outbound frame. Data is marshalled as-is.
type ServerMessage struct {
	Event EventName `json:"event"`
	Data  any       `json:"data"`
}

func NewRecognizedSpeech(text string) ServerMessage {
	return ServerMessage{Event: EventRecognizedSpeech, Data: RecognizedSpeech{Text: text}}
}

func NewAssistantResponse(text string) ServerMessage {
	return ServerMessage{Event: EventAssistantResponse, Data: AssistantResponse{Response: text}}
}

func NewAssistantDoneSpeaking() ServerMessage {
	return ServerMessage{Event: EventAssistantDoneSpeaking, Data: struct{}{}}
}

func NewError(detail string) ServerMessage {
	return ServerMessage{Event: EventError, Data: ErrorEvent{Error: detail}}
}

func NewListeningState(listening bool) ServerMessage {
	return ServerMessage{Event: EventListeningState, Data: ListeningState{Listening: listening}}
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Event {
	case EventStartListening:
		return StartListening{}, nil
	case EventStopListening:
		return StopListening{}, nil
	case EventUtterance:
		var msg Utterance
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				return nil, fmt.Errorf("invalid utterance: %w", err)
			}
		}
		msg.Text = strings.TrimSpace(msg.Text)
		if msg.Text == "" {
			return nil, errors.New("invalid utterance: empty text")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

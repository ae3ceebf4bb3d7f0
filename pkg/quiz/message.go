// Package quiz decodes messages posted by the embedded questionnaire.
//
// Only {"type":"MBTI_RESULT","result":"<code>"} carries a result. Other
// types are ignored. A payload that cannot be read at all is a
// ChannelError the user may retry or abandon.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// TypeResult is the message type that carries a personality code.
const TypeResult = "MBTI_RESULT"

// ErrIgnored marks a well-formed message that is not a result.
var ErrIgnored = errors.New("quiz: message ignored")

// Choice is a recovery option offered after a channel failure.
type Choice string

const (
	ChoiceRetry   Choice = "retry"
	ChoiceAbandon Choice = "abandon"
)

// ChannelError reports that the questionnaire failed to deliver a result.
type ChannelError struct {
	Cause error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("quiz: content channel failed: %v", e.Cause)
}

func (e *ChannelError) Unwrap() error { return e.Cause }

// Choices lists the recovery options, retry first.
func (e *ChannelError) Choices() []Choice {
	return []Choice{ChoiceRetry, ChoiceAbandon}
}

// Message is a decoded result message.
type Message struct {
	Type   string `json:"type"`
	Result string `json:"result"`
	// Malformed is set when result was missing or not a string.
	// Result is then empty and classifies through the fallback.
	Malformed bool `json:"malformed,omitempty"`
}

type envelope struct {
	Type   string `mapstructure:"type"`
	Result any    `mapstructure:"result"`
}

// Decode parses a raw channel payload.
func Decode(raw []byte) (Message, error) {
	clean, err := Sanitize(string(raw))
	if err != nil {
		return Message{}, &ChannelError{Cause: err}
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(clean), &generic); err != nil {
		return Message{}, &ChannelError{Cause: err}
	}

	var env envelope
	if err := mapstructure.Decode(generic, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrIgnored, err)
	}
	if env.Type != TypeResult {
		return Message{Type: env.Type}, fmt.Errorf("%w: type %q", ErrIgnored, env.Type)
	}

	msg := Message{Type: env.Type}
	code, ok := env.Result.(string)
	if !ok {
		msg.Malformed = true
		return msg, nil
	}
	msg.Result = code
	return msg, nil
}

// Encode builds a result message, as the questionnaire would post it.
func Encode(code string) []byte {
	b, _ := json.Marshal(map[string]string{"type": TypeResult, "result": strings.TrimSpace(code)})
	return b
}

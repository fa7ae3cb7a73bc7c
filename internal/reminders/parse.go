package reminders

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	commandTrigger = "remind me to"
	clauseSep      = " in "

	// SpokenTimeLayout renders a due time as "03:04 PM on January 02".
	SpokenTimeLayout = "03:04 PM on January 02"
)

// ParseCommand splits "remind me to X in Y" into the message X and the
// offset clause Y. Only the first " in " separates the two.
func ParseCommand(utterance string) (message, clause string, err error) {
	idx := strings.Index(utterance, commandTrigger)
	if idx < 0 {
		return "", "", ErrMalformedCommand
	}
	rest := strings.TrimSpace(utterance[idx+len(commandTrigger):])

	parts := strings.Split(rest, clauseSep)
	if len(parts) < 2 {
		return "", "", ErrMalformedCommand
	}
	message = strings.TrimSpace(parts[0])
	clause = strings.TrimSpace(parts[1])
	if message == "" || clause == "" {
		return "", "", ErrMalformedCommand
	}
	return message, clause, nil
}

// ParseOffset reads a quantity and unit from an offset clause.
//
// Every digit in the clause is concatenated into one number, so
// "5 minutes and 2 seconds" reads as 52. The unit is hours if the clause
// mentions "hour", else days if it mentions "day", else minutes.
func ParseOffset(clause string) (time.Duration, error) {
	var digits strings.Builder
	for _, r := range clause {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, ErrNoQuantity
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", digits.String(), err)
	}

	unit := time.Minute
	switch {
	case strings.Contains(clause, "hour"):
		unit = time.Hour
	case strings.Contains(clause, "day"):
		unit = 24 * time.Hour
	}

	if int64(n) > int64(maxDuration/unit) {
		return 0, fmt.Errorf("quantity %d out of range", n)
	}
	return time.Duration(n) * unit, nil
}

const maxDuration = time.Duration(1<<63 - 1)

// SpokenTime formats t in local time for speech.
func SpokenTime(t time.Time) string {
	return t.Local().Format(SpokenTimeLayout)
}

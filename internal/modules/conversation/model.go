// README: Session aggregate, dialogue states, and control token sets.
package conversation

import (
	"errors"
	"sync"
	"time"

	"navmarg/internal/modules/slot"
	"navmarg/internal/types"
)

type State string

const (
	StateAwaitingFirstMessage State = "awaiting_first_message"
	StateSlotFilling          State = "slot_filling"
	StateAwaitingChanges      State = "awaiting_changes"
	StateCompleted            State = "completed"
)

// AllowedTransitions represents the dialogue flow (diagram) as code. Restart
// is not a transition: it re-initializes the session in place.
var AllowedTransitions = map[State][]State{
	StateAwaitingFirstMessage: {StateSlotFilling},
	StateSlotFilling:          {StateSlotFilling, StateAwaitingChanges},
	StateAwaitingChanges:      {StateAwaitingChanges, StateCompleted},
}

func CanTransition(from, to State) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Control token sets, matched case-insensitively against the trimmed input.
var (
	restartTokens     = map[string]struct{}{"restart": {}, "start over": {}, "new trip": {}}
	affirmativeTokens = map[string]struct{}{"yes": {}, "y": {}, "satisfied": {}, "done": {}}
	negativeTokens    = map[string]struct{}{"no": {}, "n": {}, "not satisfied": {}}
)

type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Session owns one independent conversation. All fields are guarded by mu;
// one turn is processed to completion before the next is accepted.
type Session struct {
	mu sync.Mutex

	ID              types.ID
	State           State
	QuestionIdx     int
	Slots           slot.Values
	Transcript      []Message
	LatestRawPlan   string
	LatestFinalPlan string
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// View is a copy-out snapshot of a session safe to hand across the lock.
type View struct {
	ID            types.ID
	State         State
	QuestionIdx   int
	SlotsComplete bool
	Version       int
	FinalPlan     string
}

var ErrSessionNotFound = errors.New("session not found")

package workflow

import (
	"fmt"

	"github.com/samba-xyz/samba-relay/pkg/models"
)

// Phase is a step in the intent lifecycle.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseQuoted
	PhaseSignaled
	PhaseFulfilled
	PhaseCanceled
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseQuoted:
		return "quoted"
	case PhaseSignaled:
		return "signaled"
	case PhaseFulfilled:
		return "fulfilled"
	case PhaseCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// phaseTransitions lists the allowed successor phases. Cancel is only legal
// while an intent is pending on-chain.
var phaseTransitions = map[Phase][]Phase{
	PhaseNone:     {PhaseQuoted},
	PhaseQuoted:   {PhaseQuoted, PhaseSignaled},
	PhaseSignaled: {PhaseFulfilled, PhaseCanceled},
}

// State is one user's position in the intent lifecycle.
type State struct {
	Phase          Phase
	Quote          *models.QuoteResult
	ConversionRate string
	IntentHash     string
}

// Advance moves the state to the next phase, rejecting illegal transitions.
func (s *State) Advance(next Phase) error {
	for _, allowed := range phaseTransitions[s.Phase] {
		if next == allowed {
			s.Phase = next
			return nil
		}
	}
	return fmt.Errorf("cannot move from %s to %s", s.Phase, next)
}

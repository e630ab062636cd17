package sim

import (
	"log"
)

// A LogHook is a hook that is responsible for recording information from the
// simulation
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger

	// Positions limits the hook positions to log. All positions are logged if
	// it is empty.
	Positions []*HookPos
}

// ShouldLog tells if a hook position is selected for logging.
func (h *LogHookBase) ShouldLog(pos *HookPos) bool {
	if len(h.Positions) == 0 {
		return true
	}

	for _, p := range h.Positions {
		if p == pos {
			return true
		}
	}

	return false
}

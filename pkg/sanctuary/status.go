package sanctuary

import "fmt"

// Stage is the lifecycle position of a primate, derived from its flags and
// its current housing. It is never stored.
type Stage string

const (
	// StageUntracked means the primate is unknown to the registry.
	StageUntracked Stage = "untracked"

	// StageIsolated means the primate occupies an isolation unit and has not
	// been medicated.
	StageIsolated Stage = "isolated"

	// StageMedicated means the primate occupies an isolation unit and has been
	// medicated, so it may be released.
	StageMedicated Stage = "medicated"

	// StageEnclosed means the primate lives in its species enclosure.
	StageEnclosed Stage = "enclosed"

	// StageDetached means the primate was admitted but currently occupies no
	// housing, e.g. after release from an enclosure.
	StageDetached Stage = "detached"
)

// InHousing returns true if a primate at this stage occupies some housing.
func (s Stage) InHousing() bool {
	return s == StageIsolated || s == StageMedicated || s == StageEnclosed
}

// CanTransfer returns true if a primate at this stage may be released from
// isolation and moved to its enclosure.
func (s Stage) CanTransfer() bool {
	return s == StageMedicated
}

// Validate checks if the stage is valid.
func (s Stage) Validate() error {
	switch s {
	case StageUntracked, StageIsolated, StageMedicated, StageEnclosed, StageDetached:
		return nil
	default:
		return fmt.Errorf("invalid stage: %s", s)
	}
}

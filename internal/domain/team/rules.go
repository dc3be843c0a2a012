package team

import (
	"errors"
	"fmt"
)

// SquadSize is the fixed number of picks in a gameweek squad.
const SquadSize = 15

var (
	ErrSquadSize       = errors.New("invalid squad size")
	ErrCaptaincy       = errors.New("invalid captaincy state")
	ErrUnknownPosition = errors.New("unknown player position")
	ErrDuplicatePlayer = errors.New("duplicate player in squad")
)

// ValidateSquad checks the structural invariants of an assembled squad:
// fifteen distinct players, exactly one captain, exactly one vice-captain,
// and the two are different picks. Anything off means the upstream data is
// inconsistent and the squad must be rejected, not repaired.
func ValidateSquad(slots []SquadSlot) error {
	if len(slots) != SquadSize {
		return fmt.Errorf("%w: expected %d, got %d", ErrSquadSize, SquadSize, len(slots))
	}

	playerSet := make(map[int64]struct{}, len(slots))
	captains := 0
	vices := 0

	for _, slot := range slots {
		if err := slot.Player.Validate(); err != nil {
			return err
		}
		if _, exists := playerSet[slot.Player.ID]; exists {
			return fmt.Errorf("%w: %d", ErrDuplicatePlayer, slot.Player.ID)
		}
		playerSet[slot.Player.ID] = struct{}{}

		if slot.IsCaptain {
			captains++
			if slot.IsViceCaptain {
				return fmt.Errorf("%w: captain and vice-captain are the same pick", ErrCaptaincy)
			}
		}
		if slot.IsViceCaptain {
			vices++
		}
	}

	if captains != 1 {
		return fmt.Errorf("%w: found %d captains", ErrCaptaincy, captains)
	}
	if vices != 1 {
		return fmt.Errorf("%w: found %d vice-captains", ErrCaptaincy, vices)
	}

	return nil
}

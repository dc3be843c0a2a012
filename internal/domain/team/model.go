package team

import (
	"fmt"
	"time"
)

// Position is the short position label from the league's element types.
type Position string

const (
	PositionGoalkeeper Position = "GKP"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
)

var AllPositions = map[Position]struct{}{
	PositionGoalkeeper: {},
	PositionDefender:   {},
	PositionMidfielder: {},
	PositionForward:    {},
}

// PlayerRef is one footballer from the league's static dataset.
type PlayerRef struct {
	ID          int64
	Name        string
	Team        string
	TeamShort   string
	Position    Position
	Price       float64
	Form        string
	TotalPoints int
	EventPoints int
}

func (p PlayerRef) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("player id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if _, ok := AllPositions[p.Position]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPosition, p.Position)
	}

	return nil
}

// SquadRole says where a pick sits in the matchday squad.
type SquadRole string

const (
	RoleStarter SquadRole = "starter"
	RoleBench   SquadRole = "bench"
)

// SquadSlot is one of the fifteen picks in a manager's squad for a gameweek.
type SquadSlot struct {
	Player        PlayerRef
	Role          SquadRole
	IsCaptain     bool
	IsViceCaptain bool
	PickOrder     int
	Multiplier    int
}

// Snapshot is a manager's complete team state for one gameweek.
type Snapshot struct {
	ManagerID      int64
	TeamName       string
	Gameweek       int
	Squad          []SquadSlot
	TotalPoints    int
	GameweekPoints int
	OverallRank    int64
	TransfersMade  int
	BankBalance    float64
	TeamValue      float64
	BuiltAt        time.Time
}

func (s Snapshot) Validate() error {
	if s.ManagerID <= 0 {
		return fmt.Errorf("manager id is required")
	}
	if s.Gameweek < 1 || s.Gameweek > 38 {
		return fmt.Errorf("gameweek out of range: %d", s.Gameweek)
	}

	return ValidateSquad(s.Squad)
}

package fpl

import "strings"

// Wire types for the public league API. Field sets are trimmed to what the
// assistant consumes; unknown fields are ignored on decode.

type StaticData struct {
	Events       []Event       `json:"events"`
	Teams        []Club        `json:"teams"`
	Elements     []Element     `json:"elements"`
	ElementTypes []ElementType `json:"element_types"`

	elementsByID    map[int64]Element
	clubsByID       map[int64]Club
	positionsByType map[int]string
}

type Event struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	DeadlineTime string `json:"deadline_time"`
	Finished     bool   `json:"finished"`
	IsPrevious   bool   `json:"is_previous"`
	IsCurrent    bool   `json:"is_current"`
	IsNext       bool   `json:"is_next"`
}

type Club struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Strength  int    `json:"strength"`
}

type Element struct {
	ID          int64  `json:"id"`
	WebName     string `json:"web_name"`
	Team        int64  `json:"team"`
	ElementType int    `json:"element_type"`
	NowCost     int    `json:"now_cost"`
	Form        string `json:"form"`
	Status      string `json:"status"`
	TotalPoints int    `json:"total_points"`
	EventPoints int    `json:"event_points"`
}

type ElementType struct {
	ID                int    `json:"id"`
	SingularNameShort string `json:"singular_name_short"`
}

// BuildIndexes precomputes the lookup maps behind ElementByID, ClubByID, and
// PositionShort. The client calls it once after decode; tests assembling
// StaticData literals call it directly.
func (s *StaticData) BuildIndexes() {
	s.elementsByID = make(map[int64]Element, len(s.Elements))
	for _, element := range s.Elements {
		s.elementsByID[element.ID] = element
	}

	s.clubsByID = make(map[int64]Club, len(s.Teams))
	for _, club := range s.Teams {
		s.clubsByID[club.ID] = club
	}

	s.positionsByType = make(map[int]string, len(s.ElementTypes))
	for _, et := range s.ElementTypes {
		s.positionsByType[et.ID] = strings.ToUpper(strings.TrimSpace(et.SingularNameShort))
	}
}

func (s *StaticData) ElementByID(id int64) (Element, bool) {
	element, ok := s.elementsByID[id]
	return element, ok
}

func (s *StaticData) ClubByID(id int64) (Club, bool) {
	club, ok := s.clubsByID[id]
	return club, ok
}

func (s *StaticData) PositionShort(elementType int) (string, bool) {
	short, ok := s.positionsByType[elementType]
	return short, ok
}

// CurrentGameweek resolves the active gameweek: the current event when one is
// marked, otherwise the next one (pre-season), otherwise not found.
func (s *StaticData) CurrentGameweek() (int, bool) {
	for _, event := range s.Events {
		if event.IsCurrent {
			return event.ID, true
		}
	}
	for _, event := range s.Events {
		if event.IsNext {
			return event.ID, true
		}
	}

	return 0, false
}

// PlayedGameweeks lists finished events in ascending order.
func (s *StaticData) PlayedGameweeks() []int {
	out := make([]int, 0, len(s.Events))
	for _, event := range s.Events {
		if event.Finished {
			out = append(out, event.ID)
		}
	}

	return out
}

type ManagerPicks struct {
	ActiveChip   *string      `json:"active_chip"`
	EntryHistory EntryHistory `json:"entry_history"`
	Picks        []Pick       `json:"picks"`
}

type Pick struct {
	Element       int64 `json:"element"`
	Position      int   `json:"position"`
	Multiplier    int   `json:"multiplier"`
	IsCaptain     bool  `json:"is_captain"`
	IsViceCaptain bool  `json:"is_vice_captain"`
}

type EntryHistory struct {
	Event          int   `json:"event"`
	Points         int   `json:"points"`
	TotalPoints    int   `json:"total_points"`
	Rank           int64 `json:"rank"`
	OverallRank    int64 `json:"overall_rank"`
	Bank           int   `json:"bank"`
	Value          int   `json:"value"`
	EventTransfers int   `json:"event_transfers"`
	PointsOnBench  int   `json:"points_on_bench"`
}

type ManagerHistory struct {
	Current []EntryHistory `json:"current"`
	Past    []PastSeason   `json:"past"`
	Chips   []ChipPlay     `json:"chips"`
}

type PastSeason struct {
	SeasonName  string `json:"season_name"`
	TotalPoints int    `json:"total_points"`
	Rank        int64  `json:"rank"`
}

type ChipPlay struct {
	Name  string `json:"name"`
	Event int    `json:"event"`
}

type ManagerEntry struct {
	ID                         int64  `json:"id"`
	Name                       string `json:"name"`
	PlayerFirstName            string `json:"player_first_name"`
	PlayerLastName             string `json:"player_last_name"`
	StartedEvent               int    `json:"started_event"`
	CurrentEvent               int    `json:"current_event"`
	SummaryOverallPoints       int    `json:"summary_overall_points"`
	SummaryOverallRank         int64  `json:"summary_overall_rank"`
	SummaryEventPoints         int    `json:"summary_event_points"`
	LastDeadlineBank           int    `json:"last_deadline_bank"`
	LastDeadlineValue          int    `json:"last_deadline_value"`
	LastDeadlineTotalTransfers int    `json:"last_deadline_total_transfers"`
}

type Fixture struct {
	ID              int64  `json:"id"`
	Event           int    `json:"event"`
	TeamH           int64  `json:"team_h"`
	TeamA           int64  `json:"team_a"`
	TeamHScore      *int   `json:"team_h_score"`
	TeamAScore      *int   `json:"team_a_score"`
	TeamHDifficulty int    `json:"team_h_difficulty"`
	TeamADifficulty int    `json:"team_a_difficulty"`
	KickoffTime     string `json:"kickoff_time"`
	Started         bool   `json:"started"`
	Finished        bool   `json:"finished"`
}

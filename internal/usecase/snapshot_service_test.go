package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/riskibarqy/fpl-assistant/external/fpl"
	"github.com/riskibarqy/fpl-assistant/internal/domain/team"
	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
)

type stubLeagueProvider struct {
	static      *fpl.StaticData
	staticErr   error
	picksFn     func(managerID int64, gameweek int) (*fpl.ManagerPicks, error)
	history     *fpl.ManagerHistory
	historyErr  error
	entry       *fpl.ManagerEntry
	entryErr    error
	fixtures    []fpl.Fixture
	fixturesErr error

	staticCalls  atomic.Int32
	picksCalls   atomic.Int32
	historyCalls atomic.Int32
	entryCalls   atomic.Int32
	fixtureCalls atomic.Int32
}

func (p *stubLeagueProvider) FetchStaticData(_ context.Context) (*fpl.StaticData, error) {
	p.staticCalls.Add(1)
	if p.staticErr != nil {
		return nil, p.staticErr
	}
	return p.static, nil
}

func (p *stubLeagueProvider) FetchManagerPicks(_ context.Context, managerID int64, gameweek int) (*fpl.ManagerPicks, error) {
	p.picksCalls.Add(1)
	if p.picksFn != nil {
		return p.picksFn(managerID, gameweek)
	}
	return testPicks(gameweek), nil
}

func (p *stubLeagueProvider) FetchManagerHistory(_ context.Context, _ int64) (*fpl.ManagerHistory, error) {
	p.historyCalls.Add(1)
	if p.historyErr != nil {
		return nil, p.historyErr
	}
	if p.history == nil {
		return &fpl.ManagerHistory{}, nil
	}
	return p.history, nil
}

func (p *stubLeagueProvider) FetchManagerEntry(_ context.Context, _ int64) (*fpl.ManagerEntry, error) {
	p.entryCalls.Add(1)
	if p.entryErr != nil {
		return nil, p.entryErr
	}
	if p.entry == nil {
		return &fpl.ManagerEntry{}, nil
	}
	return p.entry, nil
}

func (p *stubLeagueProvider) FetchFixtures(_ context.Context, _ int) ([]fpl.Fixture, error) {
	p.fixtureCalls.Add(1)
	if p.fixturesErr != nil {
		return nil, p.fixturesErr
	}
	return p.fixtures, nil
}

// testStaticData builds a bootstrap with gameweek 10 in progress and fifteen
// elements: ids 1-2 keepers, 3-7 defenders, 8-12 midfielders, 13-15 forwards.
func testStaticData() *fpl.StaticData {
	static := &fpl.StaticData{
		Events: []fpl.Event{
			{ID: 9, Name: "Gameweek 9", Finished: true, IsPrevious: true},
			{ID: 10, Name: "Gameweek 10", IsCurrent: true},
			{ID: 11, Name: "Gameweek 11", IsNext: true},
		},
		Teams: []fpl.Club{
			{ID: 1, Name: "Arsenal", ShortName: "ARS", Strength: 5},
			{ID: 2, Name: "Liverpool", ShortName: "LIV", Strength: 5},
		},
		ElementTypes: []fpl.ElementType{
			{ID: 1, SingularNameShort: "GKP"},
			{ID: 2, SingularNameShort: "DEF"},
			{ID: 3, SingularNameShort: "MID"},
			{ID: 4, SingularNameShort: "FWD"},
		},
	}
	for i := int64(1); i <= 15; i++ {
		static.Elements = append(static.Elements, fpl.Element{
			ID:          i,
			WebName:     fmt.Sprintf("Player%02d", i),
			Team:        1 + i%2,
			ElementType: testElementType(i),
			NowCost:     50 + int(i),
			Form:        "5.0",
			TotalPoints: 40 + int(i),
			EventPoints: int(i),
		})
	}
	static.BuildIndexes()
	return static
}

func testElementType(id int64) int {
	switch {
	case id <= 2:
		return 1
	case id <= 7:
		return 2
	case id <= 12:
		return 3
	default:
		return 4
	}
}

// testPicks returns a legal squad: eleven starters, element 8 captaining with
// a doubled multiplier, element 13 flagged vice-captain.
func testPicks(gameweek int) *fpl.ManagerPicks {
	picks := &fpl.ManagerPicks{
		EntryHistory: fpl.EntryHistory{
			Event:          gameweek,
			Points:         50,
			TotalPoints:    500,
			OverallRank:    99999,
			Bank:           23,
			Value:          1025,
			EventTransfers: 1,
			PointsOnBench:  7,
		},
	}

	order := []int64{1, 3, 4, 5, 6, 8, 9, 10, 11, 13, 14, 2, 7, 12, 15}
	for i, element := range order {
		pick := fpl.Pick{Element: element, Position: i + 1, Multiplier: 1}
		if i >= 11 {
			pick.Multiplier = 0
		}
		if element == 8 {
			pick.Multiplier = 2
			pick.IsCaptain = true
		}
		if element == 13 {
			pick.IsViceCaptain = true
		}
		picks.Picks = append(picks.Picks, pick)
	}
	return picks
}

func testHistory() *fpl.ManagerHistory {
	return &fpl.ManagerHistory{
		Current: []fpl.EntryHistory{
			{Event: 9, Points: 41, TotalPoints: 647, OverallRank: 150000, Bank: 15, Value: 1018, EventTransfers: 0, PointsOnBench: 3},
			{Event: 10, Points: 65, TotalPoints: 712, OverallRank: 123456, Bank: 23, Value: 1025, EventTransfers: 2, PointsOnBench: 7},
		},
	}
}

func newTestSnapshotService(provider *stubLeagueProvider) *SnapshotService {
	return NewSnapshotService(provider, SnapshotServiceConfig{Logger: logging.NewNop()})
}

func TestSnapshotService_BuildSnapshot_JoinsPicksAndHistory(t *testing.T) {
	t.Parallel()

	provider := &stubLeagueProvider{
		static:  testStaticData(),
		history: testHistory(),
		entry:   &fpl.ManagerEntry{ID: 123456, Name: "Klopp's Kops"},
	}
	svc := newTestSnapshotService(provider)

	snapshot, err := svc.BuildSnapshot(t.Context(), 123456, 10)
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if len(snapshot.Squad) != team.SquadSize {
		t.Fatalf("expected %d squad slots, got %d", team.SquadSize, len(snapshot.Squad))
	}
	if snapshot.TeamName != "Klopp's Kops" {
		t.Fatalf("unexpected team name: %q", snapshot.TeamName)
	}
	if snapshot.Gameweek != 10 {
		t.Fatalf("unexpected gameweek: %d", snapshot.Gameweek)
	}

	starters := 0
	var captain, vice team.SquadSlot
	for i, slot := range snapshot.Squad {
		if slot.PickOrder != i+1 {
			t.Fatalf("squad order broken at index %d: pick order %d", i, slot.PickOrder)
		}
		if slot.Role == team.RoleStarter {
			starters++
		}
		if slot.IsCaptain {
			captain = slot
		}
		if slot.IsViceCaptain {
			vice = slot
		}
	}
	if starters != 11 {
		t.Fatalf("expected 11 starters, got %d", starters)
	}
	if captain.Player.Name != "Player08" {
		t.Fatalf("unexpected captain: %q", captain.Player.Name)
	}
	if vice.Player.Name != "Player13" {
		t.Fatalf("unexpected vice-captain: %q", vice.Player.Name)
	}
	if snapshot.Squad[0].Player.Position != team.PositionGoalkeeper {
		t.Fatalf("first pick should be the keeper, got %s", snapshot.Squad[0].Player.Position)
	}
	if snapshot.Squad[11].Role != team.RoleBench {
		t.Fatalf("pick twelve should sit on the bench")
	}

	// Totals come from the settled history row, not the inline picks copy.
	if snapshot.GameweekPoints != 65 || snapshot.TotalPoints != 712 {
		t.Fatalf("unexpected points: gameweek=%d total=%d", snapshot.GameweekPoints, snapshot.TotalPoints)
	}
	if snapshot.OverallRank != 123456 {
		t.Fatalf("unexpected overall rank: %d", snapshot.OverallRank)
	}
	if snapshot.TransfersMade != 2 {
		t.Fatalf("unexpected transfers: %d", snapshot.TransfersMade)
	}
	if snapshot.BankBalance != 2.3 {
		t.Fatalf("unexpected bank balance: %v", snapshot.BankBalance)
	}
	if snapshot.TeamValue != 102.5 {
		t.Fatalf("unexpected team value: %v", snapshot.TeamValue)
	}
}

func TestSnapshotService_BuildSnapshot_ResolvesCurrentGameweek(t *testing.T) {
	t.Parallel()

	var requested atomic.Int32
	provider := &stubLeagueProvider{
		static: testStaticData(),
		picksFn: func(_ int64, gameweek int) (*fpl.ManagerPicks, error) {
			requested.Store(int32(gameweek))
			return testPicks(gameweek), nil
		},
		history: testHistory(),
	}
	svc := newTestSnapshotService(provider)

	snapshot, err := svc.BuildSnapshot(t.Context(), 123456, 0)
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}
	if snapshot.Gameweek != 10 {
		t.Fatalf("expected current gameweek 10, got %d", snapshot.Gameweek)
	}
	if got := requested.Load(); got != 10 {
		t.Fatalf("picks fetched for gameweek %d, want 10", got)
	}
}

func TestSnapshotService_BuildSnapshot_FutureGameweekRejected(t *testing.T) {
	t.Parallel()

	provider := &stubLeagueProvider{static: testStaticData()}
	svc := newTestSnapshotService(provider)

	_, err := svc.BuildSnapshot(t.Context(), 123456, 11)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if got := provider.picksCalls.Load(); got != 0 {
		t.Fatalf("picks should not be fetched for a future gameweek, got %d calls", got)
	}
}

func TestSnapshotService_BuildSnapshot_ZeroCaptainsIsAggregationError(t *testing.T) {
	t.Parallel()

	provider := &stubLeagueProvider{
		static: testStaticData(),
		picksFn: func(_ int64, gameweek int) (*fpl.ManagerPicks, error) {
			picks := testPicks(gameweek)
			for i := range picks.Picks {
				if picks.Picks[i].Multiplier > 1 {
					picks.Picks[i].Multiplier = 1
				}
			}
			return picks, nil
		},
		history: testHistory(),
	}
	svc := newTestSnapshotService(provider)

	_, err := svc.BuildSnapshot(t.Context(), 123456, 10)
	if !errors.Is(err, ErrAggregation) {
		t.Fatalf("expected ErrAggregation, got %v", err)
	}
	if !errors.Is(err, team.ErrCaptaincy) {
		t.Fatalf("expected captaincy violation, got %v", err)
	}
}

func TestSnapshotService_BuildSnapshot_TwoCaptainsIsAggregationError(t *testing.T) {
	t.Parallel()

	provider := &stubLeagueProvider{
		static: testStaticData(),
		picksFn: func(_ int64, gameweek int) (*fpl.ManagerPicks, error) {
			picks := testPicks(gameweek)
			// Element 9 rides at index 6 of the pick order.
			picks.Picks[6].Multiplier = 2
			return picks, nil
		},
		history: testHistory(),
	}
	svc := newTestSnapshotService(provider)

	_, err := svc.BuildSnapshot(t.Context(), 123456, 10)
	if !errors.Is(err, ErrAggregation) || !errors.Is(err, team.ErrCaptaincy) {
		t.Fatalf("expected captaincy aggregation error, got %v", err)
	}
}

func TestSnapshotService_BuildSnapshot_UnknownElementIsAggregationError(t *testing.T) {
	t.Parallel()

	provider := &stubLeagueProvider{
		static: testStaticData(),
		picksFn: func(_ int64, gameweek int) (*fpl.ManagerPicks, error) {
			picks := testPicks(gameweek)
			picks.Picks[3].Element = 999
			return picks, nil
		},
		history: testHistory(),
	}
	svc := newTestSnapshotService(provider)

	_, err := svc.BuildSnapshot(t.Context(), 123456, 10)
	if !errors.Is(err, ErrAggregation) {
		t.Fatalf("expected ErrAggregation for unknown element, got %v", err)
	}
}

func TestSnapshotService_BuildSnapshot_PicksFailureKeepsSentinel(t *testing.T) {
	t.Parallel()

	provider := &stubLeagueProvider{
		static: testStaticData(),
		picksFn: func(int64, int) (*fpl.ManagerPicks, error) {
			return nil, fmt.Errorf("entry 123456 gameweek 10: %w", fpl.ErrNotFound)
		},
		history: testHistory(),
	}
	svc := newTestSnapshotService(provider)

	_, err := svc.BuildSnapshot(t.Context(), 123456, 10)
	if !errors.Is(err, fpl.ErrNotFound) {
		t.Fatalf("expected fpl.ErrNotFound to survive wrapping, got %v", err)
	}
	if !strings.Contains(err.Error(), "check your manager id") {
		t.Fatalf("expected actionable not-found message, got %v", err)
	}
}

func TestSnapshotService_BuildSnapshot_EntryFailureDegradesTeamName(t *testing.T) {
	t.Parallel()

	provider := &stubLeagueProvider{
		static:   testStaticData(),
		history:  testHistory(),
		entryErr: fmt.Errorf("entry endpoint: %w", fpl.ErrNetwork),
	}
	svc := newTestSnapshotService(provider)

	snapshot, err := svc.BuildSnapshot(t.Context(), 123456, 10)
	if err != nil {
		t.Fatalf("entry failure should not fail the build: %v", err)
	}
	if snapshot.TeamName != "" {
		t.Fatalf("expected empty team name, got %q", snapshot.TeamName)
	}
}

func TestSnapshotService_BuildSnapshot_MemoizesPerManagerAndGameweek(t *testing.T) {
	t.Parallel()

	provider := &stubLeagueProvider{
		static:  testStaticData(),
		history: testHistory(),
	}
	svc := newTestSnapshotService(provider)

	first, err := svc.BuildSnapshot(t.Context(), 123456, 10)
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	second, err := svc.BuildSnapshot(t.Context(), 123456, 10)
	if err != nil {
		t.Fatalf("second build failed: %v", err)
	}

	if got := provider.picksCalls.Load(); got != 1 {
		t.Fatalf("expected memoized second build, picks fetched %d times", got)
	}
	if first.BuiltAt != second.BuiltAt {
		t.Fatalf("memoized snapshot should be returned as built")
	}

	// A different gameweek misses the memo.
	if _, err := svc.BuildSnapshot(t.Context(), 123456, 9); err != nil {
		t.Fatalf("gameweek 9 build failed: %v", err)
	}
	if got := provider.picksCalls.Load(); got != 2 {
		t.Fatalf("expected a live fetch for gameweek 9, picks fetched %d times", got)
	}
}

func TestSnapshotService_BuildSnapshot_RejectsInvalidArgs(t *testing.T) {
	t.Parallel()

	svc := newTestSnapshotService(&stubLeagueProvider{static: testStaticData()})

	if _, err := svc.BuildSnapshot(t.Context(), 0, 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for manager id, got %v", err)
	}
	if _, err := svc.BuildSnapshot(t.Context(), 123456, 39); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for gameweek 39, got %v", err)
	}
	if _, err := svc.BuildSnapshot(t.Context(), 123456, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative gameweek, got %v", err)
	}
}

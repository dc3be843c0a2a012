package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/fpl-assistant/external/fpl"
	"github.com/riskibarqy/fpl-assistant/internal/domain/team"
	"github.com/riskibarqy/fpl-assistant/internal/platform/cache"
	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

const (
	firstGameweek = 1
	lastGameweek  = 38

	// Picks with position 1-11 start; 12-15 sit on the bench.
	starterPositionMax = 11
	// The captain is the single pick carrying a doubled (or tripled) multiplier.
	captainMultiplierMin = 2

	defaultSnapshotTTL = 5 * time.Minute
)

// LeagueDataProvider is the slice of the league API client the assistant
// services consume.
type LeagueDataProvider interface {
	FetchStaticData(ctx context.Context) (*fpl.StaticData, error)
	FetchManagerPicks(ctx context.Context, managerID int64, gameweek int) (*fpl.ManagerPicks, error)
	FetchManagerHistory(ctx context.Context, managerID int64) (*fpl.ManagerHistory, error)
	FetchManagerEntry(ctx context.Context, managerID int64) (*fpl.ManagerEntry, error)
	FetchFixtures(ctx context.Context, gameweek int) ([]fpl.Fixture, error)
}

type SnapshotServiceConfig struct {
	// MemoTTL bounds how long a built snapshot is reused for the same
	// manager and gameweek. Zero applies the default; negative disables
	// memoization.
	MemoTTL time.Duration
	Logger  *logging.Logger
}

// SnapshotService reconciles manager picks, season history, and static
// player data into one coherent squad snapshot per gameweek.
type SnapshotService struct {
	provider LeagueDataProvider
	memo     *cache.Store
	logger   *logging.Logger
	now      func() time.Time
}

func NewSnapshotService(provider LeagueDataProvider, cfg SnapshotServiceConfig) *SnapshotService {
	ttl := cfg.MemoTTL
	if ttl == 0 {
		ttl = defaultSnapshotTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	s := &SnapshotService{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
	if ttl > 0 {
		s.memo = cache.NewStore(ttl)
	}
	return s
}

// BuildSnapshot assembles the squad state for one manager and gameweek.
// A gameweek of zero resolves to the currently active one. Fetch failures
// keep their transport sentinels; data that cannot be reconciled into a
// legal squad comes back wrapped in ErrAggregation.
func (s *SnapshotService) BuildSnapshot(ctx context.Context, managerID int64, gameweek int) (team.Snapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotService.BuildSnapshot")
	defer span.End()

	if s.provider == nil {
		return team.Snapshot{}, fmt.Errorf("%w: league data provider is not configured", ErrDependencyUnavailable)
	}
	if managerID <= 0 {
		return team.Snapshot{}, fmt.Errorf("%w: manager id must be positive", ErrInvalidInput)
	}
	if gameweek < 0 || gameweek > lastGameweek {
		return team.Snapshot{}, fmt.Errorf("%w: gameweek must be between %d and %d", ErrInvalidInput, firstGameweek, lastGameweek)
	}

	static, err := s.provider.FetchStaticData(ctx)
	if err != nil {
		return team.Snapshot{}, fmt.Errorf("fetch static data: %w", err)
	}

	current, hasCurrent := static.CurrentGameweek()
	if gameweek == 0 {
		if !hasCurrent {
			return team.Snapshot{}, fmt.Errorf("%w: could not determine the current gameweek", ErrAggregation)
		}
		gameweek = current
	} else if hasCurrent && gameweek > current {
		return team.Snapshot{}, fmt.Errorf("%w: gameweek %d has not started yet", ErrInvalidInput, gameweek)
	}

	if s.memo == nil {
		return s.buildLive(ctx, static, managerID, gameweek)
	}

	memoKey := fmt.Sprintf("manager:%d:gw:%d", managerID, gameweek)
	value, err := s.memo.GetOrLoad(ctx, memoKey, func(ctx context.Context) (any, error) {
		snapshot, err := s.buildLive(ctx, static, managerID, gameweek)
		if err != nil {
			return nil, err
		}
		return snapshot, nil
	})
	if err != nil {
		return team.Snapshot{}, err
	}

	snapshot, ok := value.(team.Snapshot)
	if !ok {
		return team.Snapshot{}, fmt.Errorf("%w: unexpected snapshot cache entry", ErrAggregation)
	}
	return snapshot, nil
}

func (s *SnapshotService) buildLive(ctx context.Context, static *fpl.StaticData, managerID int64, gameweek int) (team.Snapshot, error) {
	var (
		picks   *fpl.ManagerPicks
		history *fpl.ManagerHistory
		entry   *fpl.ManagerEntry
	)

	fetchers := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	fetchers.Go(func(ctx context.Context) error {
		got, err := s.provider.FetchManagerPicks(ctx, managerID, gameweek)
		if err != nil {
			return fmt.Errorf("fetch manager picks gameweek=%d: %w", gameweek, err)
		}
		picks = got
		return nil
	})
	fetchers.Go(func(ctx context.Context) error {
		got, err := s.provider.FetchManagerHistory(ctx, managerID)
		if err != nil {
			return fmt.Errorf("fetch manager history: %w", err)
		}
		history = got
		return nil
	})
	fetchers.Go(func(ctx context.Context) error {
		// The entry endpoint only contributes the team name. Losing it
		// degrades the snapshot, it does not fail the build.
		got, err := s.provider.FetchManagerEntry(ctx, managerID)
		if err != nil {
			s.logger.WarnContext(ctx, "manager entry unavailable", "manager_id", managerID, "error", err)
			return nil
		}
		entry = got
		return nil
	})
	if err := fetchers.Wait(); err != nil {
		if errors.Is(err, fpl.ErrNotFound) {
			return team.Snapshot{}, fmt.Errorf("team not found, check your manager id: %w", err)
		}
		return team.Snapshot{}, err
	}

	slots := make([]team.SquadSlot, 0, len(picks.Picks))
	for _, pick := range picks.Picks {
		element, ok := static.ElementByID(pick.Element)
		if !ok {
			return team.Snapshot{}, fmt.Errorf("%w: pick references unknown element id %d", ErrAggregation, pick.Element)
		}
		position, ok := static.PositionShort(element.ElementType)
		if !ok {
			return team.Snapshot{}, fmt.Errorf("%w: element %d has unknown element type %d", ErrAggregation, element.ID, element.ElementType)
		}
		club, _ := static.ClubByID(element.Team)

		role := team.RoleBench
		if pick.Position <= starterPositionMax {
			role = team.RoleStarter
		}

		slots = append(slots, team.SquadSlot{
			Player: team.PlayerRef{
				ID:          element.ID,
				Name:        element.WebName,
				Team:        club.Name,
				TeamShort:   club.ShortName,
				Position:    team.Position(position),
				Price:       float64(element.NowCost) / 10.0,
				Form:        element.Form,
				TotalPoints: element.TotalPoints,
				EventPoints: element.EventPoints,
			},
			Role:          role,
			IsCaptain:     pick.Multiplier >= captainMultiplierMin,
			IsViceCaptain: pick.IsViceCaptain,
			PickOrder:     pick.Position,
			Multiplier:    pick.Multiplier,
		})
	}

	// The picks payload carries the same history row inline; prefer the
	// season history when it already lists the requested gameweek.
	totals := picks.EntryHistory
	for _, row := range history.Current {
		if row.Event == gameweek {
			totals = row
			break
		}
	}

	teamName := ""
	if entry != nil {
		teamName = entry.Name
	}

	snapshot := team.Snapshot{
		ManagerID:      managerID,
		TeamName:       teamName,
		Gameweek:       gameweek,
		Squad:          slots,
		TotalPoints:    totals.TotalPoints,
		GameweekPoints: totals.Points,
		OverallRank:    totals.OverallRank,
		TransfersMade:  totals.EventTransfers,
		BankBalance:    float64(totals.Bank) / 10.0,
		TeamValue:      float64(totals.Value) / 10.0,
		BuiltAt:        s.now().UTC(),
	}

	if err := snapshot.Validate(); err != nil {
		return team.Snapshot{}, fmt.Errorf("%w: %w", ErrAggregation, err)
	}

	return snapshot, nil
}

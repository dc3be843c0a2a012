package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fpl-assistant/external/fpl"
	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
)

const (
	defaultSeasonWorkers   = 4
	maxSeasonWorkers       = 8
	defaultRecentGameweeks = 10
)

// SeasonGameweekSummary is one finished gameweek condensed for the prompt.
type SeasonGameweekSummary struct {
	Gameweek    int
	Points      int
	TotalPoints int
	OverallRank int64
	BenchPoints int
	Transfers   int
	CaptainName string
	ActiveChip  string
}

// UpcomingFixture is a next-gameweek fixture involving a squad club.
// Difficulty is rated from the squad club's side.
type UpcomingFixture struct {
	Gameweek    int
	HomeTeam    string
	AwayTeam    string
	Difficulty  int
	KickoffTime string
}

type SeasonContext struct {
	ManagerID int64
	Gameweeks []SeasonGameweekSummary
	Upcoming  []UpcomingFixture
	BuiltAt   time.Time
}

type SeasonContextServiceConfig struct {
	// MaxWorkers bounds concurrent per-gameweek fetches. Zero applies the
	// default of four.
	MaxWorkers int
	// RecentGameweeks bounds how many finished gameweeks are summarised,
	// newest first. Zero applies the default of ten.
	RecentGameweeks int
	Logger          *logging.Logger
}

// SeasonContextService condenses the season so far, plus the squad's next
// fixtures, into an extra prompt section.
type SeasonContextService struct {
	provider LeagueDataProvider
	workers  int
	recent   int
	logger   *logging.Logger
	now      func() time.Time
}

func NewSeasonContextService(provider LeagueDataProvider, cfg SeasonContextServiceConfig) *SeasonContextService {
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = defaultSeasonWorkers
	}
	if workers > maxSeasonWorkers {
		workers = maxSeasonWorkers
	}
	recent := cfg.RecentGameweeks
	if recent <= 0 {
		recent = defaultRecentGameweeks
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &SeasonContextService{
		provider: provider,
		workers:  workers,
		recent:   recent,
		logger:   logger,
		now:      time.Now,
	}
}

// BuildSeasonContext fans out picks fetches over the most recent finished
// gameweeks. Gameweeks that fail to fetch are skipped, not fatal; the squad's
// upcoming fixtures come from the latest fetched picks.
func (s *SeasonContextService) BuildSeasonContext(ctx context.Context, managerID int64) (SeasonContext, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonContextService.BuildSeasonContext")
	defer span.End()

	if s.provider == nil {
		return SeasonContext{}, fmt.Errorf("%w: league data provider is not configured", ErrDependencyUnavailable)
	}
	if managerID <= 0 {
		return SeasonContext{}, fmt.Errorf("%w: manager id must be positive", ErrInvalidInput)
	}

	static, err := s.provider.FetchStaticData(ctx)
	if err != nil {
		return SeasonContext{}, fmt.Errorf("fetch static data: %w", err)
	}

	played := static.PlayedGameweeks()
	if len(played) > s.recent {
		played = played[len(played)-s.recent:]
	}

	summaries, squadClubs, err := s.fetchGameweekSummaries(ctx, static, managerID, played)
	if err != nil {
		return SeasonContext{}, err
	}

	history, err := s.provider.FetchManagerHistory(ctx, managerID)
	if err != nil {
		s.logger.WarnContext(ctx, "season history unavailable, keeping inline totals",
			"manager_id", managerID, "error", err)
	} else {
		mergeHistoryRows(summaries, history)
	}

	out := SeasonContext{
		ManagerID: managerID,
		Gameweeks: summaries,
		BuiltAt:   s.now().UTC(),
	}

	if nextGW, ok := nextGameweek(static); ok {
		out.Upcoming = s.fetchUpcomingFixtures(ctx, static, nextGW, squadClubs)
	}

	return out, nil
}

func (s *SeasonContextService) fetchGameweekSummaries(
	ctx context.Context,
	static *fpl.StaticData,
	managerID int64,
	played []int,
) ([]SeasonGameweekSummary, map[int64]struct{}, error) {
	if len(played) == 0 {
		return nil, nil, nil
	}

	type gameweekRow struct {
		summary SeasonGameweekSummary
		clubs   map[int64]struct{}
	}

	workerCount := s.workers
	if workerCount > len(played) {
		workerCount = len(played)
	}
	workerPool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer workerPool.Release()

	results := make(chan gameweekRow, len(played))
	var skipped atomic.Int32

	var workers sync.WaitGroup
	for _, gw := range played {
		gw := gw
		workers.Add(1)
		if err := workerPool.Submit(func() {
			defer workers.Done()

			picks, err := s.provider.FetchManagerPicks(ctx, managerID, gw)
			if err != nil {
				skipped.Add(1)
				s.logger.WarnContext(ctx, "skipping gameweek in season context",
					"manager_id", managerID, "gameweek", gw, "error", err)
				return
			}
			results <- gameweekRow{
				summary: summarizeGameweek(static, gw, picks),
				clubs:   squadClubIDs(static, picks),
			}
		}); err != nil {
			workers.Done()
			return nil, nil, fmt.Errorf("submit gameweek fetch to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	summaries := make([]SeasonGameweekSummary, 0, len(played))
	var latestClubs map[int64]struct{}
	latest := 0
	for row := range results {
		summaries = append(summaries, row.summary)
		if row.summary.Gameweek > latest {
			latest = row.summary.Gameweek
			latestClubs = row.clubs
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Gameweek < summaries[j].Gameweek
	})

	if n := skipped.Load(); n > 0 {
		s.logger.InfoContext(ctx, "season context built with gaps",
			"manager_id", managerID, "skipped_gameweeks", n, "summarised", len(summaries))
	}

	return summaries, latestClubs, nil
}

func summarizeGameweek(static *fpl.StaticData, gameweek int, picks *fpl.ManagerPicks) SeasonGameweekSummary {
	summary := SeasonGameweekSummary{
		Gameweek:    gameweek,
		Points:      picks.EntryHistory.Points,
		TotalPoints: picks.EntryHistory.TotalPoints,
		OverallRank: picks.EntryHistory.OverallRank,
		BenchPoints: picks.EntryHistory.PointsOnBench,
		Transfers:   picks.EntryHistory.EventTransfers,
	}
	if picks.ActiveChip != nil {
		summary.ActiveChip = *picks.ActiveChip
	}
	for _, pick := range picks.Picks {
		if pick.Multiplier >= captainMultiplierMin {
			if element, ok := static.ElementByID(pick.Element); ok {
				summary.CaptainName = element.WebName
			}
			break
		}
	}

	return summary
}

func squadClubIDs(static *fpl.StaticData, picks *fpl.ManagerPicks) map[int64]struct{} {
	clubs := make(map[int64]struct{}, len(picks.Picks))
	for _, pick := range picks.Picks {
		if element, ok := static.ElementByID(pick.Element); ok {
			clubs[element.Team] = struct{}{}
		}
	}
	return clubs
}

// mergeHistoryRows overwrites inline totals with the season history's rows,
// which settle later than the picks payload during a live gameweek.
func mergeHistoryRows(summaries []SeasonGameweekSummary, history *fpl.ManagerHistory) {
	rows := make(map[int]fpl.EntryHistory, len(history.Current))
	for _, row := range history.Current {
		rows[row.Event] = row
	}
	for i := range summaries {
		row, ok := rows[summaries[i].Gameweek]
		if !ok {
			continue
		}
		summaries[i].Points = row.Points
		summaries[i].TotalPoints = row.TotalPoints
		summaries[i].OverallRank = row.OverallRank
		summaries[i].BenchPoints = row.PointsOnBench
		summaries[i].Transfers = row.EventTransfers
	}
}

func nextGameweek(static *fpl.StaticData) (int, bool) {
	for _, event := range static.Events {
		if event.IsNext {
			return event.ID, true
		}
	}
	return 0, false
}

func (s *SeasonContextService) fetchUpcomingFixtures(
	ctx context.Context,
	static *fpl.StaticData,
	gameweek int,
	squadClubs map[int64]struct{},
) []UpcomingFixture {
	if len(squadClubs) == 0 {
		return nil
	}

	fixtures, err := s.provider.FetchFixtures(ctx, gameweek)
	if err != nil {
		s.logger.WarnContext(ctx, "upcoming fixtures unavailable",
			"gameweek", gameweek, "error", err)
		return nil
	}

	out := make([]UpcomingFixture, 0, len(fixtures))
	for _, fixture := range fixtures {
		_, homeInSquad := squadClubs[fixture.TeamH]
		_, awayInSquad := squadClubs[fixture.TeamA]
		if !homeInSquad && !awayInSquad {
			continue
		}

		difficulty := fixture.TeamHDifficulty
		if !homeInSquad {
			difficulty = fixture.TeamADifficulty
		}

		home, _ := static.ClubByID(fixture.TeamH)
		away, _ := static.ClubByID(fixture.TeamA)
		out = append(out, UpcomingFixture{
			Gameweek:    fixture.Event,
			HomeTeam:    home.Name,
			AwayTeam:    away.Name,
			Difficulty:  difficulty,
			KickoffTime: fixture.KickoffTime,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].KickoffTime != out[j].KickoffTime {
			return out[i].KickoffTime < out[j].KickoffTime
		}
		return out[i].HomeTeam < out[j].HomeTeam
	})
	return out
}

// Render serializes the season context into its fixed prompt section. Output
// is ordered by gameweek then kickoff, so equal contexts render identically.
func (c SeasonContext) Render() string {
	if len(c.Gameweeks) == 0 && len(c.Upcoming) == 0 {
		return ""
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if len(c.Gameweeks) > 0 {
		_, _ = buf.WriteString("--- Season So Far ---")
		for _, gw := range c.Gameweeks {
			_, _ = fmt.Fprintf(buf, "\nGW%d: %d pts (total %d, rank %d)", gw.Gameweek, gw.Points, gw.TotalPoints, gw.OverallRank)
			if gw.CaptainName != "" {
				_, _ = fmt.Fprintf(buf, ", captain %s", gw.CaptainName)
			}
			if gw.ActiveChip != "" {
				_, _ = fmt.Fprintf(buf, ", chip %s", gw.ActiveChip)
			}
		}
	}

	if len(c.Upcoming) > 0 {
		if buf.Len() > 0 {
			_ = buf.WriteByte('\n')
		}
		_, _ = fmt.Fprintf(buf, "--- Upcoming Fixtures (GW%d) ---", c.Upcoming[0].Gameweek)
		for _, fixture := range c.Upcoming {
			_, _ = fmt.Fprintf(buf, "\n- %s vs %s (difficulty %d)", fixture.HomeTeam, fixture.AwayTeam, fixture.Difficulty)
		}
	}

	return buf.String()
}

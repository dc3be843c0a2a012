package httpapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/fpl-assistant/internal/domain/team"
	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
	"github.com/riskibarqy/fpl-assistant/internal/usecase"
)

type Handler struct {
	sessions     *SessionManager
	snapshots    usecase.SnapshotBuilder
	credentials  usecase.Credentials
	providerName string
	logger       *logging.Logger
	validator    *validator.Validate
}

func NewHandler(
	sessions *SessionManager,
	snapshots usecase.SnapshotBuilder,
	credentials usecase.Credentials,
	providerName string,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		sessions:     sessions,
		snapshots:    snapshots,
		credentials:  credentials,
		providerName: providerName,
		logger:       logger,
		validator:    validator.New(),
	}
}
func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type chatRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
	Message   string `json:"message" validate:"required,max=4000"`
}

type chatReplyDTO struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type keyStatusDTO struct {
	Provider   string `json:"provider"`
	APIKey     string `json:"api_key"`
	ManagerID  int64  `json:"manager_id"`
	Configured bool   `json:"configured"`
}

type teamSnapshotDTO struct {
	ManagerID      int64          `json:"manager_id"`
	TeamName       string         `json:"team_name"`
	Gameweek       int            `json:"gameweek"`
	GameweekPoints int            `json:"gameweek_points"`
	TotalPoints    int            `json:"total_points"`
	OverallRank    int64          `json:"overall_rank"`
	TransfersMade  int            `json:"transfers_made"`
	BankBalance    float64        `json:"bank_balance"`
	TeamValue      float64        `json:"team_value"`
	Squad          []squadSlotDTO `json:"squad"`
	BuiltAtUTC     string         `json:"built_at_utc"`
}

type squadSlotDTO struct {
	PlayerID      int64   `json:"player_id"`
	Name          string  `json:"name"`
	Club          string  `json:"club"`
	ClubShort     string  `json:"club_short,omitempty"`
	Position      string  `json:"position"`
	Role          string  `json:"role"`
	IsCaptain     bool    `json:"is_captain"`
	IsViceCaptain bool    `json:"is_vice_captain"`
	PickOrder     int     `json:"pick_order"`
	Multiplier    int     `json:"multiplier"`
	Price         float64 `json:"price"`
	Form          string  `json:"form,omitempty"`
	TotalPoints   int     `json:"total_points"`
	EventPoints   int     `json:"event_points"`
}

func snapshotToDTO(ctx context.Context, v team.Snapshot) teamSnapshotDTO {
	ctx, span := startSpan(ctx, "httpapi.snapshotToDTO")
	defer span.End()

	squad := make([]squadSlotDTO, 0, len(v.Squad))
	for _, slot := range v.Squad {
		squad = append(squad, squadSlotToDTO(ctx, slot))
	}

	return teamSnapshotDTO{
		ManagerID:      v.ManagerID,
		TeamName:       v.TeamName,
		Gameweek:       v.Gameweek,
		GameweekPoints: v.GameweekPoints,
		TotalPoints:    v.TotalPoints,
		OverallRank:    v.OverallRank,
		TransfersMade:  v.TransfersMade,
		BankBalance:    v.BankBalance,
		TeamValue:      v.TeamValue,
		Squad:          squad,
		BuiltAtUTC:     v.BuiltAt.UTC().Format(time.RFC3339),
	}
}

func squadSlotToDTO(ctx context.Context, slot team.SquadSlot) squadSlotDTO {
	ctx, span := startSpan(ctx, "httpapi.squadSlotToDTO")
	defer span.End()

	return squadSlotDTO{
		PlayerID:      slot.Player.ID,
		Name:          slot.Player.Name,
		Club:          slot.Player.Team,
		ClubShort:     strings.TrimSpace(slot.Player.TeamShort),
		Position:      string(slot.Player.Position),
		Role:          string(slot.Role),
		IsCaptain:     slot.IsCaptain,
		IsViceCaptain: slot.IsViceCaptain,
		PickOrder:     slot.PickOrder,
		Multiplier:    slot.Multiplier,
		Price:         slot.Player.Price,
		Form:          strings.TrimSpace(slot.Player.Form),
		TotalPoints:   slot.Player.TotalPoints,
		EventPoints:   slot.Player.EventPoints,
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/events"
	"github.com/teamsync/teamsync/internal/models"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/validator"
)

// CreateGoalInput describes a new player goal. A missing StartDate means now.
type CreateGoalInput struct {
	MemberID  string     `json:"member_id" validate:"required"`
	Metric    string     `json:"metric" validate:"required"`
	Target    float64    `json:"target" validate:"gt=0"`
	Period    string     `json:"period" validate:"required,oneof=game month season"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// UpdateGoalInput changes the fields that are set and leaves the rest.
type UpdateGoalInput struct {
	Metric    *string    `json:"metric"`
	Target    *float64   `json:"target"`
	Period    *string    `json:"period"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Active    *bool      `json:"active"`
}

// GoalService manages player stat goals.
type GoalService struct {
	db     *gorm.DB
	roster *TeamRoster
	now    func() time.Time
}

// NewGoalService constructs a GoalService.
func NewGoalService(db *gorm.DB, roster *TeamRoster) (*GoalService, error) {
	if db == nil {
		return nil, errors.New("goal service: db is required")
	}
	if roster == nil {
		return nil, errors.New("goal service: roster is required")
	}
	return &GoalService{db: db, roster: roster, now: systemClock}, nil
}

// Create records a goal for a current member of teamID.
func (s *GoalService) Create(ctx context.Context, teamID, createdBy string, in CreateGoalInput) (*models.PlayerGoal, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(in); err != nil {
		return nil, invalidInput(err)
	}

	now := s.now()
	goal := &models.PlayerGoal{
		BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
		TeamID:    teamID,
		MemberID:  in.MemberID,
		Metric:    strings.TrimSpace(in.Metric),
		Target:    in.Target,
		Period:    models.GoalPeriod(in.Period),
		StartDate: now,
		EndDate:   in.EndDate,
		Active:    true,
		CreatedBy: createdBy,
	}
	if in.StartDate != nil {
		goal.StartDate = *in.StartDate
	}
	if err := checkGoal(goal); err != nil {
		return nil, err
	}
	if _, err := s.roster.GetMember(ctx, teamID, in.MemberID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(goal).Error; err != nil {
		return nil, fmt.Errorf("goal service: create goal: %w", err)
	}
	return goal, nil
}

// Update applies in to a goal of teamID. Only a goal whose member is still
// on the roster can be reactivated.
func (s *GoalService) Update(ctx context.Context, teamID, goalID string, in UpdateGoalInput) (*models.PlayerGoal, error) {
	ctx = ensureContext(ctx)

	var goal models.PlayerGoal
	err := s.db.WithContext(ctx).Take(&goal, "id = ? AND team_id = ?", goalID, teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("goal service: get goal: %w", err)
	}

	if in.Metric != nil {
		goal.Metric = strings.TrimSpace(*in.Metric)
	}
	if in.Target != nil {
		goal.Target = *in.Target
	}
	if in.Period != nil {
		goal.Period = models.GoalPeriod(strings.TrimSpace(*in.Period))
	}
	if in.StartDate != nil {
		goal.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		goal.EndDate = in.EndDate
	}
	if err := checkGoal(&goal); err != nil {
		return nil, err
	}
	if in.Active != nil {
		if *in.Active && !goal.Active {
			if _, err := s.roster.GetMember(ctx, teamID, goal.MemberID); err != nil {
				return nil, err
			}
		}
		goal.Active = *in.Active
	}
	goal.UpdatedAt = s.now()

	err = s.db.WithContext(ctx).
		Model(&goal).
		Select("metric", "target", "period", "start_date", "end_date", "active", "updated_at").
		Updates(&goal).Error
	if err != nil {
		return nil, fmt.Errorf("goal service: update goal: %w", err)
	}
	return &goal, nil
}

func checkGoal(goal *models.PlayerGoal) error {
	fields := make(map[string]string)
	if !slices.Contains(models.GoalMetrics, goal.Metric) {
		fields["metric"] = "must be one of: " + strings.Join(models.GoalMetrics, " ")
	}
	if goal.Target <= 0 {
		fields["target"] = "must be greater than 0"
	}
	switch goal.Period {
	case models.GoalPeriodGame, models.GoalPeriodMonth, models.GoalPeriodSeason:
	default:
		fields["period"] = "must be one of: game month season"
	}
	if goal.EndDate != nil && !goal.EndDate.After(goal.StartDate) {
		fields["end_date"] = "must be after the start date"
	}
	if len(fields) == 0 {
		return nil
	}
	return apperrors.NewValidation("invalid goal", fields)
}

// List returns the team's goals, optionally for one member, including
// orphaned goals of members who have left.
func (s *GoalService) List(ctx context.Context, teamID, memberID string) ([]models.PlayerGoal, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Where("team_id = ?", teamID)
	if memberID != "" {
		query = query.Where("member_id = ?", memberID)
	}

	var goals []models.PlayerGoal
	if err := query.Order("created_at ASC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("goal service: list goals: %w", err)
	}
	return goals, nil
}

// Delete removes a goal of teamID.
func (s *GoalService) Delete(ctx context.Context, teamID, goalID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Where("id = ? AND team_id = ?", goalID, teamID).Delete(&models.PlayerGoal{})
	if result.Error != nil {
		return fmt.Errorf("goal service: delete goal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Subscribe registers the goal reaction to roster changes on bus.
func (s *GoalService) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.MemberRemovedEvent, "goals", s.onMemberRemoved)
}

// Goals are kept for the coaching record but stop counting as active.
func (s *GoalService) onMemberRemoved(ctx context.Context, event events.Event) error {
	removed, ok := event.(events.MemberRemoved)
	if !ok {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&models.PlayerGoal{}).
		Where("team_id = ? AND member_id = ?", removed.TeamID, removed.MemberID).
		Updates(map[string]any{"active": false, "updated_at": s.now()}).Error
	if err != nil {
		return fmt.Errorf("goal service: retire member goals: %w", err)
	}
	return nil
}

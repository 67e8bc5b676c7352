package dashboard

import (
	"context"

	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/detail"
	"github.com/Fn-M/HousingManager/internal/models"
)

// OpenView mounts the detail view of listing id for user and loads it. The
// view is returned even when loading partly failed; its State carries the
// per-section errors. A freshly loaded listing replaces the stored row.
func (s *Service) OpenView(ctx context.Context, user, id string) (*detail.View, error) {
	if id == "" {
		return nil, apperr.Validationf("dashboard.OpenView", "Missing property id")
	}
	v := detail.Open(s.api, id, user, s.logger)
	v.OnCommit = func(l models.Listing) {
		s.store.Patch(l.ID, func(p *models.Listing) {
			p.Status = l.Status
			p.ViewDate = l.ViewDate
		})
	}
	s.views.Mount(user, v)
	err := v.Load(ctx)
	if l, ok := v.Listing(); ok {
		s.store.Upsert(l)
	}
	return v, err
}

// View returns the mounted view of user.
func (s *Service) View(user string) (*detail.View, error) {
	v, ok := s.views.Get(user)
	if !ok || !v.Alive() {
		return nil, apperr.NotFoundf("dashboard.View", "No property is open")
	}
	return v, nil
}

// CloseView unmounts the view of user.
func (s *Service) CloseView(user string) bool {
	return s.views.Unmount(user)
}

// OpenViews returns the number of mounted views.
func (s *Service) OpenViews() int {
	return s.views.Len()
}

package services

import (
	"sort"
	"strings"
	"time"
)

// TimeTrackingStore persists the Toma de Tiempos configuration. Its
// agencies and options live in their own tables, apart from the project
// model.
type TimeTrackingStore interface {
	InsertTimeAgency(a *TimeAgency) error
	// Deletes are filtered by organization so one tenant can never remove
	// another tenant's configuration by guessing ids.
	DeleteTimeAgency(orgID, id string) error
	ListTimeAgencies(orgID string) ([]*TimeAgency, error)

	InsertTimeOption(o *TimeOption) error
	DeleteTimeOption(orgID, id string) error
	ListTimeOptions(orgID string) ([]*TimeOption, error)
}

type TimeTrackingService struct {
	store TimeTrackingStore
	now   func() time.Time
}

func NewTimeTrackingService(store TimeTrackingStore) *TimeTrackingService {
	return &TimeTrackingService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *TimeTrackingService) CreateAgency(orgID, name string) (*TimeAgency, error) {
	if orgID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	if strings.TrimSpace(name) == "" {
		return nil, NewInvalidError("nombre requerido")
	}
	a := &TimeAgency{ID: shortID(8), OrganizationID: orgID, Name: strings.TrimSpace(name), CreatedAt: s.now()}
	if err := s.store.InsertTimeAgency(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *TimeTrackingService) ListAgencies(orgID string) ([]*TimeAgency, error) {
	return s.store.ListTimeAgencies(orgID)
}

func (s *TimeTrackingService) DeleteAgency(orgID, id string) error {
	if orgID == "" {
		return NewForbiddenError("unauthorized")
	}
	return s.store.DeleteTimeAgency(orgID, id)
}

func (s *TimeTrackingService) CreateOption(orgID, name string, sortOrder int) (*TimeOption, error) {
	if orgID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	if strings.TrimSpace(name) == "" {
		return nil, NewInvalidError("nombre requerido")
	}
	o := &TimeOption{ID: shortID(8), OrganizationID: orgID, Name: strings.TrimSpace(name), SortOrder: sortOrder, CreatedAt: s.now()}
	if err := s.store.InsertTimeOption(o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOptions returns options in configured order, ties broken by creation
// time.
func (s *TimeTrackingService) ListOptions(orgID string) ([]*TimeOption, error) {
	options, err := s.store.ListTimeOptions(orgID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].SortOrder == options[j].SortOrder {
			return options[i].CreatedAt.Before(options[j].CreatedAt)
		}
		return options[i].SortOrder < options[j].SortOrder
	})
	return options, nil
}

func (s *TimeTrackingService) DeleteOption(orgID, id string) error {
	if orgID == "" {
		return NewForbiddenError("unauthorized")
	}
	return s.store.DeleteTimeOption(orgID, id)
}

package api

import "github.com/Shioencaja/observation-tracker/internal/services"

type timeTrackingStoreAdapter struct {
	store Store
}

func newTimeTrackingStoreAdapter(store Store) services.TimeTrackingStore {
	return &timeTrackingStoreAdapter{store: store}
}

func (a *timeTrackingStoreAdapter) InsertTimeAgency(ag *services.TimeAgency) error {
	if ag == nil {
		return services.NewInvalidError("agency required")
	}
	a.store.AddTimeAgency(ag)
	return nil
}

func (a *timeTrackingStoreAdapter) DeleteTimeAgency(orgID, id string) error {
	if !a.store.DeleteTimeAgency(orgID, id) {
		return services.NewNotFoundError("Agencia no encontrada")
	}
	return nil
}

func (a *timeTrackingStoreAdapter) ListTimeAgencies(orgID string) ([]*services.TimeAgency, error) {
	return a.store.ListTimeAgencies(orgID), nil
}

func (a *timeTrackingStoreAdapter) InsertTimeOption(o *services.TimeOption) error {
	if o == nil {
		return services.NewInvalidError("option required")
	}
	a.store.AddTimeOption(o)
	return nil
}

func (a *timeTrackingStoreAdapter) DeleteTimeOption(orgID, id string) error {
	if !a.store.DeleteTimeOption(orgID, id) {
		return services.NewNotFoundError("Opción no encontrada")
	}
	return nil
}

func (a *timeTrackingStoreAdapter) ListTimeOptions(orgID string) ([]*services.TimeOption, error) {
	return a.store.ListTimeOptions(orgID), nil
}

var _ services.TimeTrackingStore = (*timeTrackingStoreAdapter)(nil)

package api

import "github.com/Shioencaja/observation-tracker/internal/services"

type accessStoreAdapter struct {
	store Store
}

func newAccessStoreAdapter(store Store) services.AccessStore {
	return &accessStoreAdapter{store: store}
}

func (a *accessStoreAdapter) GetUser(id string) (*services.User, error) {
	return a.store.GetUser(id), nil
}

func (a *accessStoreAdapter) GetProject(id string) (*services.Project, error) {
	return a.store.GetProject(id), nil
}

func (a *accessStoreAdapter) GetOrganization(id string) (*services.Organization, error) {
	return a.store.GetOrganization(id), nil
}

func (a *accessStoreAdapter) GetSessionInProject(sessionID, projectID string) (*services.Session, error) {
	return a.store.GetSessionInProject(sessionID, projectID), nil
}

var _ services.AccessStore = (*accessStoreAdapter)(nil)

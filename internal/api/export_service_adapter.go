package api

import "github.com/Shioencaja/observation-tracker/internal/services"

type exportStoreAdapter struct {
	store Store
}

func newExportStoreAdapter(store Store) services.ExportStore {
	return &exportStoreAdapter{store: store}
}

func (a *exportStoreAdapter) GetProject(id string) (*services.Project, error) {
	return a.store.GetProject(id), nil
}

func (a *exportStoreAdapter) ListQuestions(projectID string) ([]*services.QuestionDefinition, error) {
	return a.store.ListQuestions(projectID), nil
}

func (a *exportStoreAdapter) ListSessionsByProject(projectID string) ([]*services.Session, error) {
	return a.store.ListSessionsByProject(projectID), nil
}

func (a *exportStoreAdapter) ListObservationsBySessions(sessionIDs []string) ([]*services.Observation, error) {
	return a.store.ListObservationsBySessions(sessionIDs), nil
}

var _ services.ExportStore = (*exportStoreAdapter)(nil)

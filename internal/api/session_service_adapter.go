package api

import (
	"time"

	"github.com/Shioencaja/observation-tracker/internal/services"
)

type sessionStoreAdapter struct {
	store Store
}

func newSessionStoreAdapter(store Store) services.SessionStore {
	return &sessionStoreAdapter{store: store}
}

func (a *sessionStoreAdapter) InsertSession(sess *services.Session) error {
	if sess == nil {
		return services.NewInvalidError("session required")
	}
	a.store.AddSession(sess)
	return nil
}

func (a *sessionStoreAdapter) GetSession(id string) (*services.Session, error) {
	return a.store.GetSession(id), nil
}

func (a *sessionStoreAdapter) GetSessionInProject(sessionID, projectID string) (*services.Session, error) {
	return a.store.GetSessionInProject(sessionID, projectID), nil
}

func (a *sessionStoreAdapter) FinishSession(id string, end time.Time) (bool, error) {
	return a.store.FinishSession(id, end), nil
}

func (a *sessionStoreAdapter) DeleteSession(id string) error {
	if !a.store.DeleteSession(id) {
		return services.NewNotFoundError("Sesión no encontrada")
	}
	return nil
}

func (a *sessionStoreAdapter) ListSessionsByProject(projectID string) ([]*services.Session, error) {
	return a.store.ListSessionsByProject(projectID), nil
}

func (a *sessionStoreAdapter) GetProject(id string) (*services.Project, error) {
	return a.store.GetProject(id), nil
}

func (a *sessionStoreAdapter) GetQuestion(id string) (*services.QuestionDefinition, error) {
	return a.store.GetQuestion(id), nil
}

func (a *sessionStoreAdapter) AddObservations(obs []*services.Observation) error {
	a.store.AddObservations(obs)
	return nil
}

func (a *sessionStoreAdapter) ListObservationsBySession(sessionID string) ([]*services.Observation, error) {
	return a.store.ListObservationsBySession(sessionID), nil
}

func (a *sessionStoreAdapter) DeleteObservationsBySession(sessionID string) (int, error) {
	return a.store.DeleteObservationsBySession(sessionID), nil
}

func (a *sessionStoreAdapter) AddAudit(e services.AuditEntry) {
	a.store.AddAudit(e)
}

var _ services.SessionStore = (*sessionStoreAdapter)(nil)

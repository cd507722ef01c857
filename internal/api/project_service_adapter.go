package api

import "github.com/Shioencaja/observation-tracker/internal/services"

type projectStoreAdapter struct {
	store Store
}

func newProjectStoreAdapter(store Store) services.ProjectStore {
	return &projectStoreAdapter{store: store}
}

func (a *projectStoreAdapter) InsertProject(p *services.Project) error {
	if p == nil {
		return services.NewInvalidError("project required")
	}
	a.store.AddProject(p)
	return nil
}

func (a *projectStoreAdapter) GetProject(id string) (*services.Project, error) {
	return a.store.GetProject(id), nil
}

func (a *projectStoreAdapter) UpdateProject(p *services.Project) error {
	if p == nil {
		return services.NewInvalidError("project required")
	}
	if !a.store.UpdateProject(p) {
		return services.NewNotFoundError("Proyecto no encontrado")
	}
	return nil
}

func (a *projectStoreAdapter) DeleteProject(id string) error {
	if !a.store.DeleteProject(id) {
		return services.NewNotFoundError("Proyecto no encontrado")
	}
	return nil
}

func (a *projectStoreAdapter) ListProjectsByOrganization(orgID string) ([]*services.Project, error) {
	return a.store.ListProjectsByOrganization(orgID), nil
}

func (a *projectStoreAdapter) InsertQuestion(q *services.QuestionDefinition) error {
	if q == nil {
		return services.NewInvalidError("question required")
	}
	a.store.AddQuestion(q)
	return nil
}

func (a *projectStoreAdapter) GetQuestion(id string) (*services.QuestionDefinition, error) {
	return a.store.GetQuestion(id), nil
}

func (a *projectStoreAdapter) UpdateQuestion(q *services.QuestionDefinition) error {
	if q == nil {
		return services.NewInvalidError("question required")
	}
	if !a.store.UpdateQuestion(q) {
		return services.NewNotFoundError("Pregunta no encontrada")
	}
	return nil
}

func (a *projectStoreAdapter) DeleteQuestion(id string) error {
	if !a.store.DeleteQuestion(id) {
		return services.NewNotFoundError("Pregunta no encontrada")
	}
	return nil
}

func (a *projectStoreAdapter) ListQuestions(projectID string) ([]*services.QuestionDefinition, error) {
	return a.store.ListQuestions(projectID), nil
}

func (a *projectStoreAdapter) ReorderQuestions(projectID string, order []string) (bool, error) {
	return a.store.ReorderQuestions(projectID, order), nil
}

func (a *projectStoreAdapter) AddAudit(e services.AuditEntry) {
	a.store.AddAudit(e)
}

var _ services.ProjectStore = (*projectStoreAdapter)(nil)

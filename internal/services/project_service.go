package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProjectStore interface {
	InsertProject(p *Project) error
	GetProject(id string) (*Project, error)
	UpdateProject(p *Project) error
	DeleteProject(id string) error
	ListProjectsByOrganization(orgID string) ([]*Project, error)

	InsertQuestion(q *QuestionDefinition) error
	GetQuestion(id string) (*QuestionDefinition, error)
	UpdateQuestion(q *QuestionDefinition) error
	DeleteQuestion(id string) error
	ListQuestions(projectID string) ([]*QuestionDefinition, error)
	ReorderQuestions(projectID string, order []string) (bool, error)

	AddAudit(e AuditEntry)
}

var knownQuestionTypes = map[string]bool{
	TypeString: true, TypeText: true, TypeTextarea: true, TypeBoolean: true,
	TypeRadio: true, TypeCheckbox: true, TypeNumber: true, TypeCounter: true,
	TypeTimer: true, TypeVoice: true, TypeDate: true, TypeTime: true,
	TypeEmail: true, TypeURL: true,
}

type ProjectService struct {
	store ProjectStore
	now   func() time.Time
}

func NewProjectService(store ProjectStore) *ProjectService {
	return &ProjectService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ProjectService) CreateProject(userID, orgID, name string, agencies []string) (*Project, error) {
	if orgID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	if strings.TrimSpace(name) == "" {
		return nil, NewInvalidError("nombre requerido")
	}
	p := &Project{
		ID:             shortID(8),
		OrganizationID: orgID,
		Name:           strings.TrimSpace(name),
		CreatedBy:      userID,
		Agencies:       cleanList(agencies),
		CreatedAt:      s.now(),
	}
	if err := s.store.InsertProject(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) GetProject(id string) (*Project, error) {
	return s.store.GetProject(id)
}

func (s *ProjectService) ListProjects(orgID string) ([]*Project, error) {
	return s.store.ListProjectsByOrganization(orgID)
}

// UpdateProject patches name and agency list; ownership fields are fixed at
// creation.
func (s *ProjectService) UpdateProject(id, name string, agencies []string) (*Project, error) {
	p, err := s.store.GetProject(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("Proyecto no encontrado")
	}
	if strings.TrimSpace(name) != "" {
		p.Name = strings.TrimSpace(name)
	}
	if agencies != nil {
		p.Agencies = cleanList(agencies)
	}
	if err := s.store.UpdateProject(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) DeleteProject(id, actor string) error {
	if err := s.store.DeleteProject(id); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "delete_project", Target: id})
	return nil
}

func (s *ProjectService) CreateQuestion(q *QuestionDefinition) (*QuestionDefinition, error) {
	if q == nil {
		return nil, NewInvalidError("pregunta requerida")
	}
	if strings.TrimSpace(q.ProjectID) == "" {
		return nil, NewInvalidError("project_id requerido")
	}
	if strings.TrimSpace(q.Name) == "" {
		return nil, NewInvalidError("nombre requerido")
	}
	if !knownQuestionTypes[q.QuestionType] {
		return nil, NewInvalidError("tipo de pregunta desconocido: " + q.QuestionType)
	}
	if q.QuestionType == TypeRadio || q.QuestionType == TypeCheckbox {
		q.Options = cleanList(q.Options)
		if len(q.Options) == 0 {
			return nil, NewInvalidError("opciones requeridas")
		}
	} else {
		q.Options = nil
	}
	project, err := s.store.GetProject(q.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, NewNotFoundError("Proyecto no encontrado")
	}
	if q.ID == "" {
		q.ID = shortID(8)
	}
	q.CreatedAt = s.now()
	if err := s.store.InsertQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *ProjectService) UpdateQuestion(q *QuestionDefinition) error {
	if q == nil {
		return NewInvalidError("pregunta requerida")
	}
	if strings.TrimSpace(q.Name) == "" {
		return NewInvalidError("nombre requerido")
	}
	// Same option rules as creation: choice questions keep a non-empty
	// cleaned list, everything else stores none.
	if q.QuestionType == TypeRadio || q.QuestionType == TypeCheckbox {
		q.Options = cleanList(q.Options)
		if len(q.Options) == 0 {
			return NewInvalidError("opciones requeridas")
		}
	} else {
		q.Options = nil
	}
	return s.store.UpdateQuestion(q)
}

func (s *ProjectService) DeleteQuestion(id string) error {
	return s.store.DeleteQuestion(id)
}

// ListQuestions returns the project's questions in export column order.
func (s *ProjectService) ListQuestions(projectID string) ([]*QuestionDefinition, error) {
	questions, err := s.store.ListQuestions(projectID)
	if err != nil {
		return nil, err
	}
	SortQuestionDefinitions(questions)
	return questions, nil
}

func (s *ProjectService) ReorderQuestions(projectID string, order []string, actor string) (int, error) {
	if len(order) == 0 {
		return 0, NewInvalidError("orden requerido")
	}
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return 0, err
	}
	if project == nil {
		return 0, NewNotFoundError("Proyecto no encontrado")
	}
	ok, err := s.store.ReorderQuestions(projectID, order)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, NewInvalidError("no se pudo reordenar")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "reorder_questions", Target: projectID, Note: strconv.Itoa(len(order))})
	return len(order), nil
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

func cleanList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

package services

import (
	"fmt"
	"time"
)

// ExportStore is the read surface the exporter needs. Observations for a
// whole project are fetched in one batched call, never once per session.
type ExportStore interface {
	GetProject(id string) (*Project, error)
	ListQuestions(projectID string) ([]*QuestionDefinition, error)
	ListSessionsByProject(projectID string) ([]*Session, error)
	ListObservationsBySessions(sessionIDs []string) ([]*Observation, error)
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	store ExportStore
	now   func() time.Time
}

func NewExportService(store ExportStore) *ExportService {
	return &ExportService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// ExportAllSessions builds one CSV covering every session of a project.
// The export is all-or-nothing: any read failure aborts before bytes are
// produced.
func (s *ExportService) ExportAllSessions(projectID string) (*ExportResult, error) {
	if projectID == "" {
		return nil, NewInvalidError("project_id requerido")
	}
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("Error al cargar el proyecto: %w", err)
	}
	if project == nil {
		return nil, NewNotFoundError("Proyecto no encontrado")
	}
	sessions, err := s.store.ListSessionsByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("Error al cargar las sesiones: %w", err)
	}
	if len(sessions) == 0 {
		return nil, NewInvalidError("No hay sesiones para exportar")
	}
	questions, err := s.store.ListQuestions(projectID)
	if err != nil {
		return nil, fmt.Errorf("Error al cargar las preguntas: %w", err)
	}
	SortQuestionDefinitions(questions)

	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	observations, err := s.store.ListObservationsBySessions(ids)
	if err != nil {
		return nil, fmt.Errorf("Error al cargar las observaciones: %w", err)
	}

	lookup := BuildResponseLookup(observations, questions)
	rows := BuildSessionRows(sessions, questions, lookup)
	return &ExportResult{
		Filename:    AllSessionsFilename(project.Name, s.now()),
		ContentType: "text/csv;charset=utf-8",
		Data:        EncodeCSV(rows),
	}, nil
}

// ExportSession builds the CSV for one session from pre-fetched rows. No
// store reads happen here; callers supply the observation and question sets.
func (s *ExportService) ExportSession(session *Session, observations []*Observation, questions []*QuestionDefinition) (*ExportResult, error) {
	if session == nil {
		return nil, NewInvalidError("No hay sesiones para exportar")
	}
	qs := append([]*QuestionDefinition(nil), questions...)
	SortQuestionDefinitions(qs)
	lookup := BuildResponseLookup(observations, qs)
	rows := BuildSessionRows([]*Session{session}, qs, lookup)
	return &ExportResult{
		Filename:    SessionFilename(session.ID, s.now()),
		ContentType: "text/csv;charset=utf-8",
		Data:        EncodeCSV(rows),
	}, nil
}

package api

import (
	"time"

	"github.com/Shioencaja/observation-tracker/internal/services"
)

// Store is the persistence surface shared by the in-memory store and the
// database-backed stores. Methods return copies; persistence errors are
// handled (and logged) inside each implementation.
type Store interface {
	AddOrganization(o *services.Organization)
	GetOrganization(id string) *services.Organization

	AddUser(u *services.User)
	GetUser(id string) *services.User
	FindUserByEmail(email string) *services.User

	AddProject(p *services.Project)
	UpdateProject(p *services.Project) bool
	DeleteProject(id string) bool
	GetProject(id string) *services.Project
	ListProjectsByOrganization(orgID string) []*services.Project

	AddQuestion(q *services.QuestionDefinition)
	UpdateQuestion(q *services.QuestionDefinition) bool
	DeleteQuestion(id string) bool
	GetQuestion(id string) *services.QuestionDefinition
	ListQuestions(projectID string) []*services.QuestionDefinition
	ReorderQuestions(projectID string, order []string) bool

	AddSession(sess *services.Session)
	GetSession(id string) *services.Session
	GetSessionInProject(sessionID, projectID string) *services.Session
	// FinishSession sets end_time only when still null, reporting whether a
	// row changed.
	FinishSession(id string, end time.Time) bool
	DeleteSession(id string) bool
	ListSessionsByProject(projectID string) []*services.Session

	AddObservations(obs []*services.Observation)
	ListObservationsBySession(sessionID string) []*services.Observation
	ListObservationsBySessions(sessionIDs []string) []*services.Observation
	DeleteObservationsBySession(sessionID string) int

	AddTimeAgency(a *services.TimeAgency)
	DeleteTimeAgency(orgID, id string) bool
	ListTimeAgencies(orgID string) []*services.TimeAgency

	AddTimeOption(o *services.TimeOption)
	DeleteTimeOption(orgID, id string) bool
	ListTimeOptions(orgID string) []*services.TimeOption

	AddAudit(e services.AuditEntry)
	ListAudit() []services.AuditEntry
}

var _ Store = (*memoryStore)(nil)

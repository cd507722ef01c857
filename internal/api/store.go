package api

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Shioencaja/observation-tracker/internal/services"
)

type memoryStore struct {
	mu            sync.RWMutex
	organizations map[string]*services.Organization
	users         map[string]*services.User
	usersByEmail  map[string]*services.User
	projects      map[string]*services.Project
	questions     map[string]*services.QuestionDefinition
	sessions      map[string]*services.Session
	obsBySession  map[string][]*services.Observation
	timeAgencies  map[string]*services.TimeAgency
	timeOptions   map[string]*services.TimeOption
	audit         []services.AuditEntry
}

// NewMemoryStore returns an empty in-memory Store. It backs development
// runs and tests; data does not survive a restart.
func NewMemoryStore() Store { return newMemoryStore() }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		organizations: map[string]*services.Organization{},
		users:         map[string]*services.User{},
		usersByEmail:  map[string]*services.User{},
		projects:      map[string]*services.Project{},
		questions:     map[string]*services.QuestionDefinition{},
		sessions:      map[string]*services.Session{},
		obsBySession:  map[string][]*services.Observation{},
		timeAgencies:  map[string]*services.TimeAgency{},
		timeOptions:   map[string]*services.TimeOption{},
		audit:         []services.AuditEntry{},
	}
}

func (s *memoryStore) AddOrganization(o *services.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *o
	s.organizations[o.ID] = &copy
}

func (s *memoryStore) GetOrganization(id string) *services.Organization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.organizations[id]; ok {
		copy := *o
		return &copy
	}
	return nil
}

func (s *memoryStore) AddUser(u *services.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *u
	s.users[u.ID] = &copy
	s.usersByEmail[strings.ToLower(u.Email)] = &copy
}

func (s *memoryStore) GetUser(id string) *services.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		copy := *u
		return &copy
	}
	return nil
}

func (s *memoryStore) FindUserByEmail(email string) *services.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.usersByEmail[strings.ToLower(email)]; ok {
		copy := *u
		return &copy
	}
	return nil
}

func (s *memoryStore) AddProject(p *services.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *p
	copy.Agencies = append([]string(nil), p.Agencies...)
	s.projects[p.ID] = &copy
}

func (s *memoryStore) UpdateProject(p *services.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return false
	}
	copy := *p
	copy.Agencies = append([]string(nil), p.Agencies...)
	s.projects[p.ID] = &copy
	return true
}

func (s *memoryStore) DeleteProject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return false
	}
	delete(s.projects, id)
	return true
}

func (s *memoryStore) GetProject(id string) *services.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProject(s.projects[id])
}

func (s *memoryStore) ListProjectsByOrganization(orgID string) []*services.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.Project{}
	for _, p := range s.projects {
		if p.OrganizationID == orgID {
			out = append(out, copyProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *memoryStore) AddQuestion(q *services.QuestionDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = copyQuestion(q)
}

func (s *memoryStore) UpdateQuestion(q *services.QuestionDefinition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return false
	}
	s.questions[q.ID] = copyQuestion(q)
	return true
}

func (s *memoryStore) DeleteQuestion(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return false
	}
	delete(s.questions, id)
	return true
}

func (s *memoryStore) GetQuestion(id string) *services.QuestionDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.questions[id]; ok {
		return copyQuestion(q)
	}
	return nil
}

func (s *memoryStore) ListQuestions(projectID string) []*services.QuestionDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.QuestionDefinition{}
	for _, q := range s.questions {
		if q.ProjectID == projectID {
			out = append(out, copyQuestion(q))
		}
	}
	services.SortQuestionDefinitions(out)
	return out
}

func (s *memoryStore) ReorderQuestions(projectID string, order []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for i, id := range order {
		q := s.questions[id]
		if q == nil || q.ProjectID != projectID {
			continue
		}
		q.SortOrder = i
		changed = true
	}
	return changed
}

func (s *memoryStore) AddSession(sess *services.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = copySession(sess)
}

func (s *memoryStore) GetSession(id string) *services.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.sessions[id])
}

func (s *memoryStore) GetSessionInProject(sessionID, projectID string) *services.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.sessions[sessionID]
	if sess == nil || sess.ProjectID != projectID {
		return nil
	}
	return copySession(sess)
}

func (s *memoryStore) FinishSession(id string, end time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess == nil || sess.EndTime != nil {
		return false
	}
	sess.EndTime = &end
	return true
}

func (s *memoryStore) DeleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *memoryStore) ListSessionsByProject(projectID string) []*services.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.Session{}
	for _, sess := range s.sessions {
		if sess.ProjectID == projectID {
			out = append(out, copySession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (s *memoryStore) AddObservations(obs []*services.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		copy := *o
		s.obsBySession[o.SessionID] = append(s.obsBySession[o.SessionID], &copy)
	}
}

func (s *memoryStore) ListObservationsBySession(sessionID string) []*services.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Observation, 0, len(s.obsBySession[sessionID]))
	for _, o := range s.obsBySession[sessionID] {
		copy := *o
		out = append(out, &copy)
	}
	return out
}

func (s *memoryStore) ListObservationsBySessions(sessionIDs []string) []*services.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.Observation{}
	for _, id := range sessionIDs {
		for _, o := range s.obsBySession[id] {
			copy := *o
			out = append(out, &copy)
		}
	}
	return out
}

func (s *memoryStore) DeleteObservationsBySession(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.obsBySession[sessionID])
	delete(s.obsBySession, sessionID)
	return n
}

func (s *memoryStore) AddTimeAgency(a *services.TimeAgency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *a
	s.timeAgencies[a.ID] = &copy
}

func (s *memoryStore) DeleteTimeAgency(orgID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.timeAgencies[id]
	if !ok || a.OrganizationID != orgID {
		return false
	}
	delete(s.timeAgencies, id)
	return true
}

func (s *memoryStore) ListTimeAgencies(orgID string) []*services.TimeAgency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.TimeAgency{}
	for _, a := range s.timeAgencies {
		if a.OrganizationID == orgID {
			copy := *a
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *memoryStore) AddTimeOption(o *services.TimeOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *o
	s.timeOptions[o.ID] = &copy
}

func (s *memoryStore) DeleteTimeOption(orgID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.timeOptions[id]
	if !ok || o.OrganizationID != orgID {
		return false
	}
	delete(s.timeOptions, id)
	return true
}

func (s *memoryStore) ListTimeOptions(orgID string) []*services.TimeOption {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.TimeOption{}
	for _, o := range s.timeOptions {
		if o.OrganizationID == orgID {
			copy := *o
			out = append(out, &copy)
		}
	}
	return out
}

func (s *memoryStore) AddAudit(e services.AuditEntry) {
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
}

func (s *memoryStore) ListAudit() []services.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]services.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

func copyProject(p *services.Project) *services.Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Agencies = append([]string(nil), p.Agencies...)
	return &out
}

func copyQuestion(q *services.QuestionDefinition) *services.QuestionDefinition {
	if q == nil {
		return nil
	}
	out := *q
	out.Options = append([]string(nil), q.Options...)
	return &out
}

func copySession(sess *services.Session) *services.Session {
	if sess == nil {
		return nil
	}
	out := *sess
	if sess.EndTime != nil {
		end := *sess.EndTime
		out.EndTime = &end
	}
	return &out
}

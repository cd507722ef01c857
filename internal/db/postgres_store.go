package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shioencaja/observation-tracker/internal/api"
	"github.com/Shioencaja/observation-tracker/internal/services"
)

// PostgresStore is the production store. It mirrors SQLiteStore with
// positional placeholders and timestamptz columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) logErr(prefix string, err error) {
	if err != nil {
		slog.Error("postgres store", "op", prefix, "err", err)
	}
}

// --- Organizations & users ---

func (s *PostgresStore) AddOrganization(o *services.Organization) {
	if o == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO organizations (id, name, created_at) VALUES ($1, $2, $3)`,
		o.ID, o.Name, o.CreatedAt.UTC())
	s.logErr("AddOrganization", err)
}

func (s *PostgresStore) GetOrganization(id string) *services.Organization {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, name, created_at FROM organizations WHERE id = $1`, id)
	var o services.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.CreatedAt); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetOrganization", err)
		}
		return nil
	}
	return &o
}

func (s *PostgresStore) AddUser(u *services.User) {
	if u == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO users (id, email, pass_hash, organization_id, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, strings.ToLower(u.Email), u.PassHash, u.OrganizationID, u.Role, u.CreatedAt.UTC())
	s.logErr("AddUser", err)
}

func (s *PostgresStore) scanUser(row *sql.Row) *services.User {
	var u services.User
	if err := row.Scan(&u.ID, &u.Email, &u.PassHash, &u.OrganizationID, &u.Role, &u.CreatedAt); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("scanUser", err)
		}
		return nil
	}
	return &u
}

func (s *PostgresStore) GetUser(id string) *services.User {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return s.scanUser(s.db.QueryRow(`SELECT id, email, pass_hash, organization_id, role, created_at FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) FindUserByEmail(email string) *services.User {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	return s.scanUser(s.db.QueryRow(`SELECT id, email, pass_hash, organization_id, role, created_at FROM users WHERE email = $1`, strings.ToLower(email)))
}

// --- Projects ---

func (s *PostgresStore) AddProject(p *services.Project) {
	if p == nil {
		return
	}
	agencies, err := encodeStringList(p.Agencies)
	if err != nil {
		s.logErr("AddProject encode agencies", err)
		return
	}
	_, err = s.db.Exec(`INSERT INTO projects (id, organization_id, name, created_by, agencies, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.OrganizationID, p.Name, p.CreatedBy, agencies, p.CreatedAt.UTC())
	s.logErr("AddProject", err)
}

func (s *PostgresStore) UpdateProject(p *services.Project) bool {
	if p == nil {
		return false
	}
	agencies, err := encodeStringList(p.Agencies)
	if err != nil {
		s.logErr("UpdateProject encode agencies", err)
		return false
	}
	res, err := s.db.Exec(`UPDATE projects SET name = $1, agencies = $2 WHERE id = $3`, p.Name, agencies, p.ID)
	if err != nil {
		s.logErr("UpdateProject", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *PostgresStore) DeleteProject(id string) bool {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		s.logErr("DeleteProject", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *PostgresStore) GetProject(id string) *services.Project {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, organization_id, name, created_by, agencies, created_at FROM projects WHERE id = $1`, id)
	p, err := scanProject(row.Scan)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetProject", err)
		}
		return nil
	}
	return p
}

func (s *PostgresStore) ListProjectsByOrganization(orgID string) []*services.Project {
	rows, err := s.db.Query(`SELECT id, organization_id, name, created_by, agencies, created_at FROM projects WHERE organization_id = $1 ORDER BY created_at ASC, id ASC`, orgID)
	if err != nil {
		s.logErr("ListProjectsByOrganization", err)
		return nil
	}
	defer func() { s.logErr("ListProjectsByOrganization close", rows.Close()) }()
	out := []*services.Project{}
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			s.logErr("ListProjectsByOrganization scan", err)
			continue
		}
		out = append(out, p)
	}
	s.logErr("ListProjectsByOrganization rows", rows.Err())
	return out
}

// --- Questions ---

func (s *PostgresStore) AddQuestion(q *services.QuestionDefinition) {
	if q == nil {
		return
	}
	options, err := encodeStringList(q.Options)
	if err != nil {
		s.logErr("AddQuestion encode options", err)
		return
	}
	_, err = s.db.Exec(`INSERT INTO questions (id, project_id, name, question_type, options, sort_order, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.ProjectID, q.Name, q.QuestionType, options, q.SortOrder, q.CreatedAt.UTC())
	s.logErr("AddQuestion", err)
}

func (s *PostgresStore) UpdateQuestion(q *services.QuestionDefinition) bool {
	if q == nil {
		return false
	}
	options, err := encodeStringList(q.Options)
	if err != nil {
		s.logErr("UpdateQuestion encode options", err)
		return false
	}
	res, err := s.db.Exec(`UPDATE questions SET name = $1, question_type = $2, options = $3, sort_order = $4 WHERE id = $5`,
		q.Name, q.QuestionType, options, q.SortOrder, q.ID)
	if err != nil {
		s.logErr("UpdateQuestion", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *PostgresStore) DeleteQuestion(id string) bool {
	res, err := s.db.Exec(`DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		s.logErr("DeleteQuestion", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *PostgresStore) GetQuestion(id string) *services.QuestionDefinition {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, project_id, name, question_type, options, sort_order, created_at FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row.Scan)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetQuestion", err)
		}
		return nil
	}
	return q
}

func (s *PostgresStore) ListQuestions(projectID string) []*services.QuestionDefinition {
	rows, err := s.db.Query(`SELECT id, project_id, name, question_type, options, sort_order, created_at FROM questions WHERE project_id = $1 ORDER BY sort_order ASC, created_at ASC`, projectID)
	if err != nil {
		s.logErr("ListQuestions", err)
		return nil
	}
	defer func() { s.logErr("ListQuestions close", rows.Close()) }()
	out := []*services.QuestionDefinition{}
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			s.logErr("ListQuestions scan", err)
			continue
		}
		out = append(out, q)
	}
	s.logErr("ListQuestions rows", rows.Err())
	return out
}

func (s *PostgresStore) ReorderQuestions(projectID string, order []string) bool {
	if strings.TrimSpace(projectID) == "" || len(order) == 0 {
		return false
	}
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("ReorderQuestions begin", err)
		return false
	}
	for i, id := range order {
		if _, err := tx.Exec(`UPDATE questions SET sort_order = $1 WHERE id = $2 AND project_id = $3`, i, id, projectID); err != nil {
			s.logErr("ReorderQuestions update", err)
			_ = tx.Rollback()
			return false
		}
	}
	if err := tx.Commit(); err != nil {
		s.logErr("ReorderQuestions commit", err)
		return false
	}
	return true
}

// --- Sessions ---

func (s *PostgresStore) AddSession(sess *services.Session) {
	if sess == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO sessions (id, project_id, user_id, agency, alias, start_time, end_time) VALUES ($1, $2, $3, $4, $5, $6, NULL)`,
		sess.ID, sess.ProjectID, sess.UserID, toNullString(sess.Agency), toNullString(sess.Alias), sess.StartTime.UTC())
	s.logErr("AddSession", err)
}

func (s *PostgresStore) GetSession(id string) *services.Session {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, project_id, user_id, agency, alias, start_time, end_time FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row.Scan)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetSession", err)
		}
		return nil
	}
	return sess
}

func (s *PostgresStore) GetSessionInProject(sessionID, projectID string) *services.Session {
	row := s.db.QueryRow(`SELECT id, project_id, user_id, agency, alias, start_time, end_time FROM sessions WHERE id = $1 AND project_id = $2`, sessionID, projectID)
	sess, err := scanSession(row.Scan)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetSessionInProject", err)
		}
		return nil
	}
	return sess
}

func (s *PostgresStore) FinishSession(id string, end time.Time) bool {
	res, err := s.db.Exec(`UPDATE sessions SET end_time = $1 WHERE id = $2 AND end_time IS NULL`, end.UTC(), id)
	if err != nil {
		s.logErr("FinishSession", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *PostgresStore) DeleteSession(id string) bool {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		s.logErr("DeleteSession", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *PostgresStore) ListSessionsByProject(projectID string) []*services.Session {
	rows, err := s.db.Query(`SELECT id, project_id, user_id, agency, alias, start_time, end_time FROM sessions WHERE project_id = $1 ORDER BY start_time ASC, id ASC`, projectID)
	if err != nil {
		s.logErr("ListSessionsByProject", err)
		return nil
	}
	defer func() { s.logErr("ListSessionsByProject close", rows.Close()) }()
	out := []*services.Session{}
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			s.logErr("ListSessionsByProject scan", err)
			continue
		}
		out = append(out, sess)
	}
	s.logErr("ListSessionsByProject rows", rows.Err())
	return out
}

// --- Observations ---

func (s *PostgresStore) AddObservations(obs []*services.Observation) {
	if len(obs) == 0 {
		return
	}
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("AddObservations begin", err)
		return
	}
	for _, o := range obs {
		if o == nil {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO observations (id, session_id, question_id, response, created_at) VALUES ($1, $2, $3, $4, $5)`,
			o.ID, o.SessionID, o.QuestionID, o.Response, o.CreatedAt.UTC()); err != nil {
			s.logErr("AddObservations insert", err)
			_ = tx.Rollback()
			return
		}
	}
	s.logErr("AddObservations commit", tx.Commit())
}

func (s *PostgresStore) queryObservations(query string, args ...any) []*services.Observation {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		s.logErr("queryObservations", err)
		return nil
	}
	defer func() { s.logErr("queryObservations close", rows.Close()) }()
	out := []*services.Observation{}
	for rows.Next() {
		var o services.Observation
		if err := rows.Scan(&o.ID, &o.SessionID, &o.QuestionID, &o.Response, &o.CreatedAt); err != nil {
			s.logErr("queryObservations scan", err)
			continue
		}
		out = append(out, &o)
	}
	s.logErr("queryObservations rows", rows.Err())
	return out
}

func (s *PostgresStore) ListObservationsBySession(sessionID string) []*services.Observation {
	return s.queryObservations(`SELECT id, session_id, question_id, response, created_at FROM observations WHERE session_id = $1 ORDER BY created_at ASC, id ASC`, sessionID)
}

// ListObservationsBySessions fetches a whole project's observations in one
// query so multi-session exports never loop over per-session reads.
func (s *PostgresStore) ListObservationsBySessions(sessionIDs []string) []*services.Observation {
	if len(sessionIDs) == 0 {
		return []*services.Observation{}
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	return s.queryObservations(`SELECT id, session_id, question_id, response, created_at FROM observations WHERE session_id IN (`+strings.Join(placeholders, ",")+`) ORDER BY created_at ASC, id ASC`, args...)
}

func (s *PostgresStore) DeleteObservationsBySession(sessionID string) int {
	res, err := s.db.Exec(`DELETE FROM observations WHERE session_id = $1`, sessionID)
	if err != nil {
		s.logErr("DeleteObservationsBySession", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// --- Toma de Tiempos config ---

func (s *PostgresStore) AddTimeAgency(a *services.TimeAgency) {
	if a == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO time_agencies (id, organization_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		a.ID, a.OrganizationID, a.Name, a.CreatedAt.UTC())
	s.logErr("AddTimeAgency", err)
}

func (s *PostgresStore) DeleteTimeAgency(orgID, id string) bool {
	res, err := s.db.Exec(`DELETE FROM time_agencies WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		s.logErr("DeleteTimeAgency", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *PostgresStore) ListTimeAgencies(orgID string) []*services.TimeAgency {
	rows, err := s.db.Query(`SELECT id, organization_id, name, created_at FROM time_agencies WHERE organization_id = $1 ORDER BY name ASC`, orgID)
	if err != nil {
		s.logErr("ListTimeAgencies", err)
		return nil
	}
	defer func() { s.logErr("ListTimeAgencies close", rows.Close()) }()
	out := []*services.TimeAgency{}
	for rows.Next() {
		var a services.TimeAgency
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.CreatedAt); err != nil {
			s.logErr("ListTimeAgencies scan", err)
			continue
		}
		out = append(out, &a)
	}
	s.logErr("ListTimeAgencies rows", rows.Err())
	return out
}

func (s *PostgresStore) AddTimeOption(o *services.TimeOption) {
	if o == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO time_options (id, organization_id, name, sort_order, created_at) VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.OrganizationID, o.Name, o.SortOrder, o.CreatedAt.UTC())
	s.logErr("AddTimeOption", err)
}

func (s *PostgresStore) DeleteTimeOption(orgID, id string) bool {
	res, err := s.db.Exec(`DELETE FROM time_options WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		s.logErr("DeleteTimeOption", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *PostgresStore) ListTimeOptions(orgID string) []*services.TimeOption {
	rows, err := s.db.Query(`SELECT id, organization_id, name, sort_order, created_at FROM time_options WHERE organization_id = $1 ORDER BY sort_order ASC, created_at ASC`, orgID)
	if err != nil {
		s.logErr("ListTimeOptions", err)
		return nil
	}
	defer func() { s.logErr("ListTimeOptions close", rows.Close()) }()
	out := []*services.TimeOption{}
	for rows.Next() {
		var o services.TimeOption
		if err := rows.Scan(&o.ID, &o.OrganizationID, &o.Name, &o.SortOrder, &o.CreatedAt); err != nil {
			s.logErr("ListTimeOptions scan", err)
			continue
		}
		out = append(out, &o)
	}
	s.logErr("ListTimeOptions rows", rows.Err())
	return out
}

// --- Audit log ---

func (s *PostgresStore) AddAudit(e services.AuditEntry) {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO audit_log (ts, actor, action, target, note) VALUES ($1, $2, $3, $4, $5)`,
		ts.UTC(), e.Actor, e.Action, toNullString(e.Target), toNullString(e.Note))
	s.logErr("AddAudit", err)
}

func (s *PostgresStore) ListAudit() []services.AuditEntry {
	rows, err := s.db.Query(`SELECT ts, actor, action, target, note FROM audit_log ORDER BY ts DESC LIMIT 500`)
	if err != nil {
		s.logErr("ListAudit", err)
		return nil
	}
	defer func() { s.logErr("ListAudit close", rows.Close()) }()
	out := []services.AuditEntry{}
	for rows.Next() {
		var e services.AuditEntry
		var target, note sql.NullString
		if err := rows.Scan(&e.Time, &e.Actor, &e.Action, &target, &note); err != nil {
			s.logErr("ListAudit scan", err)
			continue
		}
		e.Target = target.String
		e.Note = note.String
		out = append(out, e)
	}
	s.logErr("ListAudit rows", rows.Err())
	return out
}

var _ api.Store = (*PostgresStore)(nil)

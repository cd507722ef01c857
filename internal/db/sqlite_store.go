package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shioencaja/observation-tracker/internal/api"
	"github.com/Shioencaja/observation-tracker/internal/services"
)

// SQLiteStore persists everything in a single sqlite file. Write errors are
// logged, not returned; the Store surface stays error-less and readers see
// the last consistent state.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		slog.Error("sqlite store", "op", prefix, "err", err)
	}
}

func toNullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func encodeStringList(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeStringList(ns sql.NullString) []string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		slog.Error("sqlite store", "op", "decode string list", "err", err)
		return nil
	}
	return out
}

// --- Organizations & users ---

func (s *SQLiteStore) AddOrganization(o *services.Organization) {
	if o == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?)`,
		o.ID, o.Name, o.CreatedAt.UTC())
	s.logErr("AddOrganization", err)
}

func (s *SQLiteStore) GetOrganization(id string) *services.Organization {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, name, created_at FROM organizations WHERE id = ?`, id)
	var o services.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.CreatedAt); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetOrganization", err)
		}
		return nil
	}
	return &o
}

func (s *SQLiteStore) AddUser(u *services.User) {
	if u == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO users (id, email, pass_hash, organization_id, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.PassHash, u.OrganizationID, u.Role, u.CreatedAt.UTC())
	s.logErr("AddUser", err)
}

func (s *SQLiteStore) scanUser(row *sql.Row) *services.User {
	var u services.User
	if err := row.Scan(&u.ID, &u.Email, &u.PassHash, &u.OrganizationID, &u.Role, &u.CreatedAt); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("scanUser", err)
		}
		return nil
	}
	return &u
}

func (s *SQLiteStore) GetUser(id string) *services.User {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return s.scanUser(s.db.QueryRow(`SELECT id, email, pass_hash, organization_id, role, created_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) FindUserByEmail(email string) *services.User {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	return s.scanUser(s.db.QueryRow(`SELECT id, email, pass_hash, organization_id, role, created_at FROM users WHERE email = ?`, strings.ToLower(email)))
}

// --- Projects ---

func (s *SQLiteStore) AddProject(p *services.Project) {
	if p == nil {
		return
	}
	agencies, err := encodeStringList(p.Agencies)
	if err != nil {
		s.logErr("AddProject encode agencies", err)
		return
	}
	_, err = s.db.Exec(`INSERT INTO projects (id, organization_id, name, created_by, agencies, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrganizationID, p.Name, p.CreatedBy, agencies, p.CreatedAt.UTC())
	s.logErr("AddProject", err)
}

func (s *SQLiteStore) UpdateProject(p *services.Project) bool {
	if p == nil {
		return false
	}
	agencies, err := encodeStringList(p.Agencies)
	if err != nil {
		s.logErr("UpdateProject encode agencies", err)
		return false
	}
	res, err := s.db.Exec(`UPDATE projects SET name = ?, agencies = ? WHERE id = ?`, p.Name, agencies, p.ID)
	if err != nil {
		s.logErr("UpdateProject", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) DeleteProject(id string) bool {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteProject", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func scanProject(scan func(dest ...any) error) (*services.Project, error) {
	var p services.Project
	var agencies sql.NullString
	if err := scan(&p.ID, &p.OrganizationID, &p.Name, &p.CreatedBy, &agencies, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Agencies = decodeStringList(agencies)
	return &p, nil
}

func (s *SQLiteStore) GetProject(id string) *services.Project {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, organization_id, name, created_by, agencies, created_at FROM projects WHERE id = ?`, id)
	p, err := scanProject(row.Scan)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetProject", err)
		}
		return nil
	}
	return p
}

func (s *SQLiteStore) ListProjectsByOrganization(orgID string) []*services.Project {
	rows, err := s.db.Query(`SELECT id, organization_id, name, created_by, agencies, created_at FROM projects WHERE organization_id = ? ORDER BY created_at ASC, id ASC`, orgID)
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

func (s *SQLiteStore) AddQuestion(q *services.QuestionDefinition) {
	if q == nil {
		return
	}
	options, err := encodeStringList(q.Options)
	if err != nil {
		s.logErr("AddQuestion encode options", err)
		return
	}
	_, err = s.db.Exec(`INSERT INTO questions (id, project_id, name, question_type, options, sort_order, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.ProjectID, q.Name, q.QuestionType, options, q.SortOrder, q.CreatedAt.UTC())
	s.logErr("AddQuestion", err)
}

func (s *SQLiteStore) UpdateQuestion(q *services.QuestionDefinition) bool {
	if q == nil {
		return false
	}
	options, err := encodeStringList(q.Options)
	if err != nil {
		s.logErr("UpdateQuestion encode options", err)
		return false
	}
	res, err := s.db.Exec(`UPDATE questions SET name = ?, question_type = ?, options = ?, sort_order = ? WHERE id = ?`,
		q.Name, q.QuestionType, options, q.SortOrder, q.ID)
	if err != nil {
		s.logErr("UpdateQuestion", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) DeleteQuestion(id string) bool {
	res, err := s.db.Exec(`DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteQuestion", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func scanQuestion(scan func(dest ...any) error) (*services.QuestionDefinition, error) {
	var q services.QuestionDefinition
	var options sql.NullString
	if err := scan(&q.ID, &q.ProjectID, &q.Name, &q.QuestionType, &options, &q.SortOrder, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.Options = decodeStringList(options)
	return &q, nil
}

func (s *SQLiteStore) GetQuestion(id string) *services.QuestionDefinition {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, project_id, name, question_type, options, sort_order, created_at FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row.Scan)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetQuestion", err)
		}
		return nil
	}
	return q
}

func (s *SQLiteStore) ListQuestions(projectID string) []*services.QuestionDefinition {
	rows, err := s.db.Query(`SELECT id, project_id, name, question_type, options, sort_order, created_at FROM questions WHERE project_id = ? ORDER BY sort_order ASC, created_at ASC`, projectID)
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

func (s *SQLiteStore) ReorderQuestions(projectID string, order []string) bool {
	if strings.TrimSpace(projectID) == "" || len(order) == 0 {
		return false
	}
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("ReorderQuestions begin", err)
		return false
	}
	for i, id := range order {
		if _, err := tx.Exec(`UPDATE questions SET sort_order = ? WHERE id = ? AND project_id = ?`, i, id, projectID); err != nil {
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

func (s *SQLiteStore) AddSession(sess *services.Session) {
	if sess == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO sessions (id, project_id, user_id, agency, alias, start_time, end_time) VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		sess.ID, sess.ProjectID, sess.UserID, toNullString(sess.Agency), toNullString(sess.Alias), sess.StartTime.UTC())
	s.logErr("AddSession", err)
}

func scanSession(scan func(dest ...any) error) (*services.Session, error) {
	var sess services.Session
	var agency, alias sql.NullString
	var end sql.NullTime
	if err := scan(&sess.ID, &sess.ProjectID, &sess.UserID, &agency, &alias, &sess.StartTime, &end); err != nil {
		return nil, err
	}
	sess.Agency = agency.String
	sess.Alias = alias.String
	if end.Valid {
		t := end.Time
		sess.EndTime = &t
	}
	return &sess, nil
}

func (s *SQLiteStore) GetSession(id string) *services.Session {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, project_id, user_id, agency, alias, start_time, end_time FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row.Scan)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetSession", err)
		}
		return nil
	}
	return sess
}

func (s *SQLiteStore) GetSessionInProject(sessionID, projectID string) *services.Session {
	row := s.db.QueryRow(`SELECT id, project_id, user_id, agency, alias, start_time, end_time FROM sessions WHERE id = ? AND project_id = ?`, sessionID, projectID)
	sess, err := scanSession(row.Scan)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetSessionInProject", err)
		}
		return nil
	}
	return sess
}

func (s *SQLiteStore) FinishSession(id string, end time.Time) bool {
	res, err := s.db.Exec(`UPDATE sessions SET end_time = ? WHERE id = ? AND end_time IS NULL`, end.UTC(), id)
	if err != nil {
		s.logErr("FinishSession", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) DeleteSession(id string) bool {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteSession", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) ListSessionsByProject(projectID string) []*services.Session {
	rows, err := s.db.Query(`SELECT id, project_id, user_id, agency, alias, start_time, end_time FROM sessions WHERE project_id = ? ORDER BY start_time ASC, id ASC`, projectID)
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

func (s *SQLiteStore) AddObservations(obs []*services.Observation) {
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
		if _, err := tx.Exec(`INSERT INTO observations (id, session_id, question_id, response, created_at) VALUES (?, ?, ?, ?, ?)`,
			o.ID, o.SessionID, o.QuestionID, o.Response, o.CreatedAt.UTC()); err != nil {
			s.logErr("AddObservations insert", err)
			_ = tx.Rollback()
			return
		}
	}
	s.logErr("AddObservations commit", tx.Commit())
}

func (s *SQLiteStore) queryObservations(query string, args ...any) []*services.Observation {
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

func (s *SQLiteStore) ListObservationsBySession(sessionID string) []*services.Observation {
	return s.queryObservations(`SELECT id, session_id, question_id, response, created_at FROM observations WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID)
}

// ListObservationsBySessions fetches a whole project's observations in one
// query so multi-session exports never loop over per-session reads.
func (s *SQLiteStore) ListObservationsBySessions(sessionIDs []string) []*services.Observation {
	if len(sessionIDs) == 0 {
		return []*services.Observation{}
	}
	placeholders := strings.Repeat("?,", len(sessionIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}
	return s.queryObservations(`SELECT id, session_id, question_id, response, created_at FROM observations WHERE session_id IN (`+placeholders+`) ORDER BY created_at ASC, id ASC`, args...)
}

func (s *SQLiteStore) DeleteObservationsBySession(sessionID string) int {
	res, err := s.db.Exec(`DELETE FROM observations WHERE session_id = ?`, sessionID)
	if err != nil {
		s.logErr("DeleteObservationsBySession", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// --- Toma de Tiempos config ---

func (s *SQLiteStore) AddTimeAgency(a *services.TimeAgency) {
	if a == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO time_agencies (id, organization_id, name, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.OrganizationID, a.Name, a.CreatedAt.UTC())
	s.logErr("AddTimeAgency", err)
}

func (s *SQLiteStore) DeleteTimeAgency(orgID, id string) bool {
	res, err := s.db.Exec(`DELETE FROM time_agencies WHERE id = ? AND organization_id = ?`, id, orgID)
	if err != nil {
		s.logErr("DeleteTimeAgency", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) ListTimeAgencies(orgID string) []*services.TimeAgency {
	rows, err := s.db.Query(`SELECT id, organization_id, name, created_at FROM time_agencies WHERE organization_id = ? ORDER BY name ASC`, orgID)
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

func (s *SQLiteStore) AddTimeOption(o *services.TimeOption) {
	if o == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO time_options (id, organization_id, name, sort_order, created_at) VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.OrganizationID, o.Name, o.SortOrder, o.CreatedAt.UTC())
	s.logErr("AddTimeOption", err)
}

func (s *SQLiteStore) DeleteTimeOption(orgID, id string) bool {
	res, err := s.db.Exec(`DELETE FROM time_options WHERE id = ? AND organization_id = ?`, id, orgID)
	if err != nil {
		s.logErr("DeleteTimeOption", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) ListTimeOptions(orgID string) []*services.TimeOption {
	rows, err := s.db.Query(`SELECT id, organization_id, name, sort_order, created_at FROM time_options WHERE organization_id = ? ORDER BY sort_order ASC, created_at ASC`, orgID)
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

func (s *SQLiteStore) AddAudit(e services.AuditEntry) {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO audit_log (ts, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		ts.UTC(), e.Actor, e.Action, toNullString(e.Target), toNullString(e.Note))
	s.logErr("AddAudit", err)
}

func (s *SQLiteStore) ListAudit() []services.AuditEntry {
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

var _ api.Store = (*SQLiteStore)(nil)

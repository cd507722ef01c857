package services

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

type exportStubStore struct {
	project      *Project
	questions    []*QuestionDefinition
	sessions     []*Session
	observations []*Observation

	observationCalls int
}

func (s *exportStubStore) GetProject(id string) (*Project, error) {
	if s.project != nil && s.project.ID == id {
		copy := *s.project
		return &copy, nil
	}
	return nil, nil
}

func (s *exportStubStore) ListQuestions(projectID string) ([]*QuestionDefinition, error) {
	out := []*QuestionDefinition{}
	for _, q := range s.questions {
		if q.ProjectID == projectID {
			copy := *q
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (s *exportStubStore) ListSessionsByProject(projectID string) ([]*Session, error) {
	out := []*Session{}
	for _, sess := range s.sessions {
		if sess.ProjectID == projectID {
			copy := *sess
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (s *exportStubStore) ListObservationsBySessions(sessionIDs []string) ([]*Observation, error) {
	s.observationCalls++
	idSet := map[string]struct{}{}
	for _, id := range sessionIDs {
		idSet[id] = struct{}{}
	}
	out := []*Observation{}
	for _, o := range s.observations {
		if _, ok := idSet[o.SessionID]; ok {
			copy := *o
			out = append(out, &copy)
		}
	}
	return out, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestExportAllSessionsEndToEnd(t *testing.T) {
	store := &exportStubStore{
		project: &Project{ID: "P1", Name: "Atención"},
		questions: []*QuestionDefinition{
			{ID: "q1", ProjectID: "P1", Name: "¿Satisfecho?", QuestionType: TypeBoolean, SortOrder: 0},
			{ID: "q2", ProjectID: "P1", Name: "Comentario", QuestionType: TypeString, SortOrder: 1},
		},
		sessions: []*Session{
			{ID: "s1", ProjectID: "P1", Agency: "Centro", StartTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		},
		observations: []*Observation{
			{SessionID: "s1", QuestionID: "q1", Response: "true"},
			{SessionID: "s1", QuestionID: "q2", Response: "Buen servicio"},
		},
	}
	svc := NewExportService(store)
	svc.now = fixedClock(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))

	res, err := svc.ExportAllSessions("P1")
	if err != nil {
		t.Fatalf("ExportAllSessions: %v", err)
	}
	if res.Filename != "sesiones-Atención-2024-02-01.csv" {
		t.Fatalf("filename = %q", res.Filename)
	}
	if res.ContentType != "text/csv;charset=utf-8" {
		t.Fatalf("content type = %q", res.ContentType)
	}
	// 10:00 UTC is 05:00 at the fixed -5h offset, still Jan 1
	want := `"ID de Sesión","Fecha","Agencia","¿Satisfecho?","Comentario"` + "\n" +
		`"s1","01/01/2024","Centro","Sí","Buen servicio"`
	if string(res.Data) != want {
		t.Fatalf("csv body:\n%s\nwant:\n%s", res.Data, want)
	}
}

func TestExportDateUsesFixedLimaOffset(t *testing.T) {
	store := &exportStubStore{
		project: &Project{ID: "P1", Name: "P"},
		sessions: []*Session{
			// 03:00 UTC on Jan 1 is 22:00 Dec 31 at UTC-5
			{ID: "s1", ProjectID: "P1", Agency: "Centro", StartTime: time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)},
		},
	}
	svc := NewExportService(store)
	res, err := svc.ExportAllSessions("P1")
	if err != nil {
		t.Fatalf("ExportAllSessions: %v", err)
	}
	recs, err := csv.NewReader(strings.NewReader(string(res.Data))).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if recs[1][1] != "31/12/2023" {
		t.Fatalf("date = %q, want 31/12/2023", recs[1][1])
	}
}

func TestExportAllSessionsBatchesObservationFetch(t *testing.T) {
	store := &exportStubStore{
		project: &Project{ID: "P1", Name: "P"},
		questions: []*QuestionDefinition{
			{ID: "q1", ProjectID: "P1", Name: "Q", QuestionType: TypeString, SortOrder: 0},
		},
	}
	for i := 0; i < 5; i++ {
		store.sessions = append(store.sessions, &Session{ID: string(rune('a' + i)), ProjectID: "P1", StartTime: time.Now()})
	}
	svc := NewExportService(store)
	if _, err := svc.ExportAllSessions("P1"); err != nil {
		t.Fatalf("ExportAllSessions: %v", err)
	}
	if store.observationCalls != 1 {
		t.Fatalf("observation fetches = %d, want exactly 1", store.observationCalls)
	}
}

func TestExportColumnStability(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &exportStubStore{
		project: &Project{ID: "P1", Name: "P"},
		questions: []*QuestionDefinition{
			{ID: "q2", ProjectID: "P1", Name: "Segunda", QuestionType: TypeString, SortOrder: 1, CreatedAt: created},
			{ID: "q1", ProjectID: "P1", Name: "Primera", QuestionType: TypeString, SortOrder: 0, CreatedAt: created.Add(time.Hour)},
			{ID: "q3", ProjectID: "P1", Name: "Empate", QuestionType: TypeString, SortOrder: 1, CreatedAt: created.Add(-time.Hour)},
		},
		sessions: []*Session{
			{ID: "s1", ProjectID: "P1", StartTime: time.Now()},
			{ID: "s2", ProjectID: "P1", StartTime: time.Now()},
		},
		observations: []*Observation{
			// s1 answers only q2, s2 answers only q1
			{SessionID: "s1", QuestionID: "q2", Response: "x"},
			{SessionID: "s2", QuestionID: "q1", Response: "y"},
		},
	}
	svc := NewExportService(store)
	res, err := svc.ExportAllSessions("P1")
	if err != nil {
		t.Fatalf("ExportAllSessions: %v", err)
	}
	recs, err := csv.NewReader(strings.NewReader(string(res.Data))).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	// sort_order wins, created_at breaks the 1-1 tie
	if recs[0][3] != "Primera" || recs[0][4] != "Empate" || recs[0][5] != "Segunda" {
		t.Fatalf("header order = %v", recs[0])
	}
	for _, rec := range recs[1:] {
		if len(rec) != 6 {
			t.Fatalf("row not rectangular: %v", rec)
		}
	}
	if recs[1][5] != "x" || recs[1][3] != "" {
		t.Fatalf("s1 row = %v", recs[1])
	}
	if recs[2][3] != "y" || recs[2][5] != "" {
		t.Fatalf("s2 row = %v", recs[2])
	}
}

func TestExportDuplicateObservationLatestWins(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &exportStubStore{
		project: &Project{ID: "P1", Name: "P"},
		questions: []*QuestionDefinition{
			{ID: "q1", ProjectID: "P1", Name: "Q", QuestionType: TypeString, SortOrder: 0},
		},
		sessions: []*Session{{ID: "s1", ProjectID: "P1", StartTime: base}},
		observations: []*Observation{
			{SessionID: "s1", QuestionID: "q1", Response: "nuevo", CreatedAt: base.Add(time.Minute)},
			{SessionID: "s1", QuestionID: "q1", Response: "viejo", CreatedAt: base},
		},
	}
	svc := NewExportService(store)
	res, err := svc.ExportAllSessions("P1")
	if err != nil {
		t.Fatalf("ExportAllSessions: %v", err)
	}
	recs, _ := csv.NewReader(strings.NewReader(string(res.Data))).ReadAll()
	if recs[1][3] != "nuevo" {
		t.Fatalf("duplicate tie-break = %q, want latest created_at", recs[1][3])
	}
}

func TestExportAllSessionsEmpty(t *testing.T) {
	store := &exportStubStore{project: &Project{ID: "P1", Name: "P"}}
	svc := NewExportService(store)
	_, err := svc.ExportAllSessions("P1")
	if err == nil {
		t.Fatal("expected error for empty session list")
	}
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("error = %v", err)
	}
	if store.observationCalls != 0 {
		t.Fatalf("observation fetch happened before empty check")
	}
}

func TestExportSessionSingle(t *testing.T) {
	svc := NewExportService(&exportStubStore{})
	svc.now = fixedClock(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))
	sess := &Session{ID: "abcdef123456", ProjectID: "P1", Agency: "Norte", StartTime: time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)}
	questions := []*QuestionDefinition{
		{ID: "q1", ProjectID: "P1", Name: "Conteo", QuestionType: TypeCounter, SortOrder: 0},
	}
	obs := []*Observation{{SessionID: "abcdef123456", QuestionID: "q1", Response: "4"}}

	res, err := svc.ExportSession(sess, obs, questions)
	if err != nil {
		t.Fatalf("ExportSession: %v", err)
	}
	if res.Filename != "sesion-abcdef12-2024-02-01.csv" {
		t.Fatalf("filename = %q", res.Filename)
	}
	recs, err := csv.NewReader(strings.NewReader(string(res.Data))).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(recs) != 2 || recs[1][3] != "4" {
		t.Fatalf("rows = %v", recs)
	}
}

func TestEncodeCSVQuoting(t *testing.T) {
	data := EncodeCSV([][]string{{`di "hola"`, "a,b"}, {"", "fin"}})
	want := `"di ""hola""","a,b"` + "\n" + `"","fin"`
	if string(data) != want {
		t.Fatalf("encoded = %q, want %q", data, want)
	}
	if strings.HasSuffix(string(data), "\n") {
		t.Fatal("trailing newline present")
	}
}

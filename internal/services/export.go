package services

import (
	"sort"
	"strings"
	"time"
)

// Exports render session dates in the business's fixed UTC-5 offset
// regardless of viewer locale.
var limaTZ = time.FixedZone("America/Lima", -5*60*60)

var exportHeaderPrefix = []string{"ID de Sesión", "Fecha", "Agencia"}

// SortQuestionDefinitions orders questions by sort_order ascending with
// created_at as tie-break. This is the column order of every export.
func SortQuestionDefinitions(questions []*QuestionDefinition) {
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].SortOrder == questions[j].SortOrder {
			return questions[i].CreatedAt.Before(questions[j].CreatedAt)
		}
		return questions[i].SortOrder < questions[j].SortOrder
	})
}

// BuildResponseLookup runs every observation through FormatResponse exactly
// once and indexes the result by session then question. Observations are
// ordered by created_at first, so when duplicate (session, question) rows
// exist the latest write wins.
func BuildResponseLookup(observations []*Observation, questions []*QuestionDefinition) map[string]map[string]string {
	typeByID := make(map[string]string, len(questions))
	for _, q := range questions {
		typeByID[q.ID] = q.QuestionType
	}
	obs := append([]*Observation(nil), observations...)
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].CreatedAt.Before(obs[j].CreatedAt) })

	lookup := map[string]map[string]string{}
	for _, o := range obs {
		qt, ok := typeByID[o.QuestionID]
		if !ok {
			continue
		}
		if lookup[o.SessionID] == nil {
			lookup[o.SessionID] = map[string]string{}
		}
		lookup[o.SessionID][o.QuestionID] = FormatResponse(o.Response, qt)
	}
	return lookup
}

// BuildSessionRows assembles the header plus one row per session. Sessions
// missing an answer for a question get an empty cell in that column, never a
// missing column, so the CSV stays rectangular across heterogeneous sessions.
func BuildSessionRows(sessions []*Session, questions []*QuestionDefinition, lookup map[string]map[string]string) [][]string {
	header := append([]string(nil), exportHeaderPrefix...)
	for _, q := range questions {
		header = append(header, q.Name)
	}
	rows := make([][]string, 0, len(sessions)+1)
	rows = append(rows, header)
	for _, s := range sessions {
		row := make([]string, 0, len(header))
		row = append(row, s.ID, s.StartTime.In(limaTZ).Format("02/01/2006"), s.Agency)
		for _, q := range questions {
			row = append(row, lookup[s.ID][q.ID])
		}
		rows = append(rows, row)
	}
	return rows
}

// EncodeCSV serializes rows with every field double-quoted and inner quotes
// doubled, comma-separated, newline-joined. No trailing newline, no BOM.
func EncodeCSV(rows [][]string) []byte {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, field := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		}
	}
	return []byte(b.String())
}

// AllSessionsFilename names a whole-project export.
func AllSessionsFilename(projectName string, now time.Time) string {
	return "sesiones-" + projectName + "-" + now.In(limaTZ).Format("2006-01-02") + ".csv"
}

// SessionFilename names a single-session export using the first eight
// characters of the session id.
func SessionFilename(sessionID string, now time.Time) string {
	id := sessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return "sesion-" + id + "-" + now.In(limaTZ).Format("2006-01-02") + ".csv"
}

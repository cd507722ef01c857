package services

import "time"

// Organization groups users and owns projects.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an authenticated operator. Each user belongs to one organization.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PassHash       []byte    `json:"-"`
	OrganizationID string    `json:"organization_id"`
	Role           string    `json:"role"` // owner, admin, editor, member, viewer
	CreatedAt      time.Time `json:"created_at"`
}

// Project is the top-level container for questions, sessions and agencies.
type Project struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedBy      string    `json:"created_by"`
	Agencies       []string  `json:"agencies,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Question types accepted by QuestionDefinition. The formatter tolerates
// unrecognized tags; creation rejects them.
const (
	TypeString   = "string"
	TypeText     = "text"
	TypeTextarea = "textarea"
	TypeBoolean  = "boolean"
	TypeRadio    = "radio"
	TypeCheckbox = "checkbox"
	TypeNumber   = "number"
	TypeCounter  = "counter"
	TypeTimer    = "timer"
	TypeVoice    = "voice"
	TypeDate     = "date"
	TypeTime     = "time"
	TypeEmail    = "email"
	TypeURL      = "url"
)

// QuestionDefinition is one configured question within a project.
// SortOrder determines column order in exports; ties break by CreatedAt.
type QuestionDefinition struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Name         string    `json:"name"`
	QuestionType string    `json:"question_type"`
	Options      []string  `json:"options,omitempty"` // radio/checkbox only, ordered
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is one timed field-work visit against a project/agency/date.
// EndTime is nil while the session is active.
type Session struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	UserID    string     `json:"user_id"`
	Agency    string     `json:"agency,omitempty"`
	Alias     string     `json:"alias,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Observation is one answer to one question within one session. Response
// holds the raw stored value: a JSON document or a plain string, shaped by
// the question type. Decoding is the formatter's concern.
type Observation struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	QuestionID string    `json:"question_id"`
	Response   string    `json:"response"`
	CreatedAt  time.Time `json:"created_at"`
}

// TimeAgency belongs to the Toma de Tiempos module. It does not share
// schema with project agencies.
type TimeAgency struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
}

// TimeOption is a configured measurement option for Toma de Tiempos.
type TimeOption struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

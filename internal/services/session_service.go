package services

import (
	"encoding/base64"
	"encoding/json"
	"path"
	"strconv"
	"time"
)

// SessionStore abstracts the persistence operations of the session
// lifecycle.
type SessionStore interface {
	InsertSession(sess *Session) error
	GetSession(id string) (*Session, error)
	GetSessionInProject(sessionID, projectID string) (*Session, error)
	// FinishSession sets end_time only when it is still null, reporting
	// whether a row changed. Check-and-update happens in one store call.
	FinishSession(id string, end time.Time) (bool, error)
	DeleteSession(id string) error
	ListSessionsByProject(projectID string) ([]*Session, error)

	GetProject(id string) (*Project, error)
	GetQuestion(id string) (*QuestionDefinition, error)
	AddObservations(obs []*Observation) error
	ListObservationsBySession(sessionID string) ([]*Observation, error)
	DeleteObservationsBySession(sessionID string) (int, error)

	AddAudit(e AuditEntry)
}

// BlobStore stores voice-recording clips.
type BlobStore interface {
	Save(name string, data []byte) (string, error)
	Remove(names []string) error
	PublicURL(name string) string
}

// ObservationInput mirrors one inbound answer.
type ObservationInput struct {
	QuestionID string          `json:"question_id"`
	Response   json.RawMessage `json:"response"`
}

type SessionService struct {
	store SessionStore
	blobs BlobStore
	now   func() time.Time
}

func NewSessionService(store SessionStore, blobs BlobStore) *SessionService {
	return &SessionService{
		store: store,
		blobs: blobs,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// StartSession opens an active session (end_time null) against a
// project/agency/date.
func (s *SessionService) StartSession(userID, projectID, agency, alias string) (*Session, error) {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, NewNotFoundError("Proyecto no encontrado")
	}
	sess := &Session{
		ID:        shortID(12),
		ProjectID: projectID,
		UserID:    userID,
		Agency:    agency,
		Alias:     alias,
		StartTime: s.now(),
	}
	if err := s.store.InsertSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// FinishSession closes an active session. Finishing twice is a conflict;
// end_time is immutable once set.
func (s *SessionService) FinishSession(sessionID string) (*Session, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, NewNotFoundError("Sesión no encontrada")
	}
	end := s.now()
	ok, err := s.store.FinishSession(sessionID, end)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewConflictError("La sesión ya fue finalizada")
	}
	sess.EndTime = &end
	return sess, nil
}

// SubmitObservations records a batch of answers for an active session.
// Blank or unknown question ids are skipped rather than failing the batch.
func (s *SessionService) SubmitObservations(sessionID string, answers []ObservationInput) (int, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return 0, err
	}
	if sess == nil {
		return 0, NewNotFoundError("Sesión no encontrada")
	}
	if sess.EndTime != nil {
		return 0, NewConflictError("La sesión ya fue finalizada")
	}
	createdAt := s.now()
	obs := make([]*Observation, 0, len(answers))
	for _, ans := range answers {
		if ans.QuestionID == "" {
			continue
		}
		question, err := s.store.GetQuestion(ans.QuestionID)
		if err != nil {
			return 0, err
		}
		if question == nil || question.ProjectID != sess.ProjectID {
			continue
		}
		obs = append(obs, &Observation{
			ID:         shortID(12),
			SessionID:  sessionID,
			QuestionID: ans.QuestionID,
			Response:   normalizeResponse(ans.Response),
			CreatedAt:  createdAt,
		})
	}
	if err := s.store.AddObservations(obs); err != nil {
		return 0, err
	}
	return len(obs), nil
}

// SaveVoiceRecording persists a base64 audio clip and records the
// "[Audio: <url>]" marker as the observation response.
func (s *SessionService) SaveVoiceRecording(sessionID, questionID, b64 string) (string, error) {
	if s.blobs == nil {
		return "", NewInvalidError("almacenamiento no configurado")
	}
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", NewNotFoundError("Sesión no encontrada")
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", NewInvalidError("audio inválido")
	}
	name := "voz-" + sessionID + "-" + questionID + "-" + shortID(6) + ".webm"
	url, err := s.blobs.Save(name, data)
	if err != nil {
		return "", err
	}
	obs := &Observation{
		ID:         shortID(12),
		SessionID:  sessionID,
		QuestionID: questionID,
		Response:   "[Audio: " + url + "]",
		CreatedAt:  s.now(),
	}
	if err := s.store.AddObservations([]*Observation{obs}); err != nil {
		return "", err
	}
	return url, nil
}

// ListObservations returns a session's stored answers.
func (s *SessionService) ListObservations(sessionID string) ([]*Observation, error) {
	return s.store.ListObservationsBySession(sessionID)
}

// DeleteSession removes a session and everything it references. Steps run
// in a fixed order: finish → fetch observations → remove voice blobs →
// delete observations → delete the session row. A crash mid-sequence leaves
// at most orphaned storage objects, never a dangling blob reference.
func (s *SessionService) DeleteSession(sessionID, actor string) error {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return NewNotFoundError("Sesión no encontrada")
	}
	if sess.EndTime == nil {
		if _, err := s.store.FinishSession(sessionID, s.now()); err != nil {
			return err
		}
	}
	obs, err := s.store.ListObservationsBySession(sessionID)
	if err != nil {
		return err
	}
	var blobNames []string
	for _, o := range obs {
		if url := ExtractAudioURL(o.Response); url != "" {
			blobNames = append(blobNames, path.Base(url))
		}
	}
	if len(blobNames) > 0 && s.blobs != nil {
		if err := s.blobs.Remove(blobNames); err != nil {
			return err
		}
	}
	removed, err := s.store.DeleteObservationsBySession(sessionID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSession(sessionID); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "delete_session", Target: sessionID, Note: strconv.Itoa(removed)})
	return nil
}

// normalizeResponse stores plain strings unwrapped and anything else as the
// raw JSON text. Timer and checkbox payloads stay JSON-encoded inside the
// text column; the formatter decodes them once at render time.
func normalizeResponse(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

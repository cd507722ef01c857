package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shioencaja/observation-tracker/internal/middleware"
	"github.com/Shioencaja/observation-tracker/internal/services"
)

type Router struct {
	store        Store
	auth         *services.AuthService
	access       *services.AccessService
	projects     *services.ProjectService
	sessions     *services.SessionService
	exports      *services.ExportService
	timeTracking *services.TimeTrackingService
}

// NewRouter wires the services over one shared store. blobs may be nil when
// no recording storage is configured; voice uploads then fail cleanly.
func NewRouter(store Store, blobs services.BlobStore) *Router {
	return &Router{
		store:        store,
		auth:         services.NewAuthService(newAuthStoreAdapter(store), middleware.SignToken),
		access:       services.NewAccessService(newAccessStoreAdapter(store)),
		projects:     services.NewProjectService(newProjectStoreAdapter(store)),
		sessions:     services.NewSessionService(newSessionStoreAdapter(store), blobs),
		exports:      services.NewExportService(newExportStoreAdapter(store)),
		timeTracking: services.NewTimeTrackingService(newTimeTrackingStoreAdapter(store)),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)              // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)                    // POST
	mux.HandleFunc("/api/projects", rt.handleProjects)                   // GET, POST
	mux.HandleFunc("/api/projects/", rt.handleProjectScoped)             // project subtree
	mux.HandleFunc("/api/questions/", rt.handleQuestionScoped)           // PUT, DELETE /api/questions/{id}
	mux.HandleFunc("/api/export", rt.handleExport)                       // GET
	mux.HandleFunc("/api/tiempos/agencias", rt.handleTimeAgencies)       // GET, POST
	mux.HandleFunc("/api/tiempos/agencias/", rt.handleTimeAgencyScoped)  // DELETE
	mux.HandleFunc("/api/tiempos/opciones", rt.handleTimeOptions)        // GET, POST
	mux.HandleFunc("/api/tiempos/opciones/", rt.handleTimeOptionScoped)  // DELETE
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]any{"error": se.Message, "code": string(se.Code)})
		return
	}
	slog.Error("request failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "error interno"})
}

func identity(r *http.Request) (uid, oid string) {
	uid, _ = middleware.UserIDFromContext(r.Context())
	oid, _ = middleware.OrganizationIDFromContext(r.Context())
	return uid, oid
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email            string `json:"email"`
		Password         string `json:"password"`
		OrganizationName string `json:"organization_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password, req.OrganizationName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "organization_id": res.OrganizationID, "user_id": res.UserID})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "organization_id": res.OrganizationID, "user_id": res.UserID})
}

// GET/POST /api/projects
func (rt *Router) handleProjects(w http.ResponseWriter, r *http.Request) {
	uid, oid := identity(r)
	switch r.Method {
	case http.MethodGet:
		if oid == "" {
			writeError(w, services.NewUnauthorizedError("Usuario no autenticado"))
			return
		}
		projects, err := rt.projects.ListProjects(oid)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
	case http.MethodPost:
		var req struct {
			Name     string   `json:"name"`
			Agencies []string `json:"agencies"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, err := rt.projects.CreateProject(uid, oid, req.Name, req.Agencies)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProjectScoped routes everything under /api/projects/{id}/...
func (rt *Router) handleProjectScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	projectID := parts[0]
	switch {
	case len(parts) == 1:
		rt.handleProject(w, r, projectID)
	case parts[1] == "questions" && len(parts) == 2:
		rt.handleProjectQuestions(w, r, projectID)
	case parts[1] == "questions" && len(parts) == 3 && parts[2] == "reorder":
		rt.handleReorderQuestions(w, r, projectID)
	case parts[1] == "sessions" && len(parts) == 2:
		rt.handleProjectSessions(w, r, projectID)
	case parts[1] == "sessions" && len(parts) == 3:
		rt.handleSession(w, r, projectID, parts[2])
	case parts[1] == "sessions" && len(parts) == 4:
		rt.handleSessionAction(w, r, projectID, parts[2], parts[3])
	default:
		http.NotFound(w, r)
	}
}

// GET/PUT/DELETE /api/projects/{id}
func (rt *Router) handleProject(w http.ResponseWriter, r *http.Request, projectID string) {
	uid, _ := identity(r)
	access, err := rt.access.ValidateProjectAccess(uid, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"project": access.Project, "role": access.Role})
	case http.MethodPut:
		var req struct {
			Name     string   `json:"name"`
			Agencies []string `json:"agencies"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, err := rt.projects.UpdateProject(projectID, req.Name, req.Agencies)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := rt.projects.DeleteProject(projectID, uid); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET/POST /api/projects/{id}/questions
func (rt *Router) handleProjectQuestions(w http.ResponseWriter, r *http.Request, projectID string) {
	uid, _ := identity(r)
	if _, err := rt.access.ValidateProjectAccess(uid, projectID); err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		questions, err := rt.projects.ListQuestions(projectID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
	case http.MethodPost:
		var q services.QuestionDefinition
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q.ProjectID = projectID
		created, err := rt.projects.CreateQuestion(&q)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// POST /api/projects/{id}/questions/reorder
func (rt *Router) handleReorderQuestions(w http.ResponseWriter, r *http.Request, projectID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := identity(r)
	if _, err := rt.access.ValidateProjectAccess(uid, projectID); err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Order []string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n, err := rt.projects.ReorderQuestions(projectID, req.Order, uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}

// GET/POST /api/projects/{id}/sessions
func (rt *Router) handleProjectSessions(w http.ResponseWriter, r *http.Request, projectID string) {
	uid, _ := identity(r)
	if _, err := rt.access.ValidateProjectAccess(uid, projectID); err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"sessions": rt.store.ListSessionsByProject(projectID)})
	case http.MethodPost:
		var req struct {
			Agency string `json:"agency"`
			Alias  string `json:"alias"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sess, err := rt.sessions.StartSession(uid, projectID, req.Agency, req.Alias)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type observationView struct {
	ID           string                    `json:"id"`
	QuestionID   string                    `json:"question_id"`
	QuestionName string                    `json:"question_name,omitempty"`
	QuestionType string                    `json:"question_type,omitempty"`
	Response     string                    `json:"response"`
	Rendered     services.RenderedResponse `json:"rendered"`
}

// GET/DELETE /api/projects/{id}/sessions/{sid}
func (rt *Router) handleSession(w http.ResponseWriter, r *http.Request, projectID, sessionID string) {
	uid, _ := identity(r)
	access, err := rt.access.ValidateSessionAccess(uid, projectID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		questions, err := rt.projects.ListQuestions(projectID)
		if err != nil {
			writeError(w, err)
			return
		}
		byID := make(map[string]*services.QuestionDefinition, len(questions))
		for _, q := range questions {
			byID[q.ID] = q
		}
		obs, err := rt.sessions.ListObservations(sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		views := make([]observationView, 0, len(obs))
		for _, o := range obs {
			v := observationView{ID: o.ID, QuestionID: o.QuestionID, Response: o.Response}
			if q := byID[o.QuestionID]; q != nil {
				v.QuestionName = q.Name
				v.QuestionType = q.QuestionType
				v.Rendered = services.RenderResponse(o.Response, q.QuestionType)
			} else {
				v.Rendered = services.RenderResponse(o.Response, "")
			}
			views = append(views, v)
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": access.Session, "observations": views})
	case http.MethodDelete:
		if err := rt.sessions.DeleteSession(sessionID, uid); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// POST /api/projects/{id}/sessions/{sid}/finish
// POST/GET /api/projects/{id}/sessions/{sid}/observations
// POST /api/projects/{id}/sessions/{sid}/voice
func (rt *Router) handleSessionAction(w http.ResponseWriter, r *http.Request, projectID, sessionID, action string) {
	uid, _ := identity(r)
	if _, err := rt.access.ValidateSessionAccess(uid, projectID, sessionID); err != nil {
		writeError(w, err)
		return
	}
	switch action {
	case "finish":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sess, err := rt.sessions.FinishSession(sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	case "observations":
		switch r.Method {
		case http.MethodGet:
			obs, err := rt.sessions.ListObservations(sessionID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"observations": obs})
		case http.MethodPost:
			var req struct {
				Answers []services.ObservationInput `json:"answers"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			n, err := rt.sessions.SubmitObservations(sessionID, req.Answers)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "voice":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			QuestionID string `json:"question_id"`
			Audio      string `json:"audio"` // base64 webm
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		url, err := rt.sessions.SaveVoiceRecording(sessionID, req.QuestionID, req.Audio)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "url": url})
	default:
		http.NotFound(w, r)
	}
}

// PUT/DELETE /api/questions/{id}
func (rt *Router) handleQuestionScoped(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/questions/"), "/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	uid, _ := identity(r)
	existing := rt.store.GetQuestion(id)
	if existing == nil {
		writeError(w, services.NewNotFoundError("Pregunta no encontrada"))
		return
	}
	if _, err := rt.access.ValidateProjectAccess(uid, existing.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Name    *string  `json:"name"`
			Options []string `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			existing.Name = strings.TrimSpace(*req.Name)
		}
		if req.Options != nil {
			existing.Options = req.Options
		}
		if err := rt.projects.UpdateQuestion(existing); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, existing)
	case http.MethodDelete:
		if err := rt.projects.DeleteQuestion(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/export?project_id=...[&session_id=...]
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := identity(r)
	projectID := r.URL.Query().Get("project_id")
	sessionID := r.URL.Query().Get("session_id")
	if projectID == "" {
		writeError(w, services.NewInvalidError("project_id requerido"))
		return
	}

	var result *services.ExportResult
	if sessionID != "" {
		access, err := rt.access.ValidateSessionAccess(uid, projectID, sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		questions, err := rt.projects.ListQuestions(projectID)
		if err != nil {
			writeError(w, err)
			return
		}
		obs, err := rt.sessions.ListObservations(sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		result, err = rt.exports.ExportSession(access.Session, obs, questions)
		if err != nil {
			writeError(w, err)
			return
		}
	} else {
		if _, err := rt.access.ValidateProjectAccess(uid, projectID); err != nil {
			writeError(w, err)
			return
		}
		var err error
		result, err = rt.exports.ExportAllSessions(projectID)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	_, _ = w.Write(result.Data)
}

// GET/POST /api/tiempos/agencias
func (rt *Router) handleTimeAgencies(w http.ResponseWriter, r *http.Request) {
	_, oid := identity(r)
	if oid == "" {
		writeError(w, services.NewUnauthorizedError("Usuario no autenticado"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		agencies, err := rt.timeTracking.ListAgencies(oid)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"agencies": agencies})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a, err := rt.timeTracking.CreateAgency(oid, req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// DELETE /api/tiempos/agencias/{id}
func (rt *Router) handleTimeAgencyScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, oid := identity(r)
	if oid == "" {
		writeError(w, services.NewUnauthorizedError("Usuario no autenticado"))
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tiempos/agencias/"), "/")
	if err := rt.timeTracking.DeleteAgency(oid, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GET/POST /api/tiempos/opciones
func (rt *Router) handleTimeOptions(w http.ResponseWriter, r *http.Request) {
	_, oid := identity(r)
	if oid == "" {
		writeError(w, services.NewUnauthorizedError("Usuario no autenticado"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		options, err := rt.timeTracking.ListOptions(oid)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"options": options})
	case http.MethodPost:
		var req struct {
			Name      string `json:"name"`
			SortOrder int    `json:"sort_order"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		o, err := rt.timeTracking.CreateOption(oid, req.Name, req.SortOrder)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// DELETE /api/tiempos/opciones/{id}
func (rt *Router) handleTimeOptionScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, oid := identity(r)
	if oid == "" {
		writeError(w, services.NewUnauthorizedError("Usuario no autenticado"))
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tiempos/opciones/"), "/")
	if err := rt.timeTracking.DeleteOption(oid, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

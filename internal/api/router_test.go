package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Shioencaja/observation-tracker/internal/middleware"
)

func newTestHandler() http.Handler {
	mux := http.NewServeMux()
	NewRouter(NewMemoryStore(), nil).Register(mux)
	return middleware.WithAuth(mux)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code >= 200 && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response from %s: %v (%s)", path, err, rec.Body.String())
		}
	}
	return rec
}

func registerUser(t *testing.T, h http.Handler, email string) (token, orgID, userID string) {
	t.Helper()
	var resp struct {
		Token          string `json:"token"`
		OrganizationID string `json:"organization_id"`
		UserID         string `json:"user_id"`
	}
	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": email, "password": "secreto", "organization_name": "Org",
	}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status %d: %s", rec.Code, rec.Body.String())
	}
	return resp.Token, resp.OrganizationID, resp.UserID
}

func TestRegisterLoginAndProjectFlow(t *testing.T) {
	h := newTestHandler()
	token, _, _ := registerUser(t, h, "ana@example.com")

	var login struct {
		Token string `json:"token"`
	}
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "secreto"}, &login)
	if rec.Code != http.StatusOK || login.Token == "" {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}

	var project struct {
		ID string `json:"id"`
	}
	rec = doJSON(t, h, http.MethodPost, "/api/projects", token, map[string]any{"name": "Atención", "agencies": []string{"Centro"}}, &project)
	if rec.Code != http.StatusOK || project.ID == "" {
		t.Fatalf("create project status %d: %s", rec.Code, rec.Body.String())
	}

	var list struct {
		Projects []struct {
			ID string `json:"id"`
		} `json:"projects"`
	}
	rec = doJSON(t, h, http.MethodGet, "/api/projects", token, nil, &list)
	if rec.Code != http.StatusOK || len(list.Projects) != 1 {
		t.Fatalf("list projects status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProjectAccessDenied(t *testing.T) {
	h := newTestHandler()
	owner, _, _ := registerUser(t, h, "dueno@example.com")
	intruder, _, _ := registerUser(t, h, "otro@example.com")

	var project struct {
		ID string `json:"id"`
	}
	doJSON(t, h, http.MethodPost, "/api/projects", owner, map[string]any{"name": "Privado"}, &project)

	rec := doJSON(t, h, http.MethodGet, "/api/projects/"+project.ID, intruder, nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Sin acceso al proyecto") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/projects/"+project.ID, "", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	h := newTestHandler()
	token, _, _ := registerUser(t, h, "campo@example.com")

	var project struct {
		ID string `json:"id"`
	}
	doJSON(t, h, http.MethodPost, "/api/projects", token, map[string]any{"name": "Visitas", "agencies": []string{"Centro"}}, &project)

	var question struct {
		ID string `json:"id"`
	}
	rec := doJSON(t, h, http.MethodPost, "/api/projects/"+project.ID+"/questions", token, map[string]any{
		"name": "¿Satisfecho?", "question_type": "boolean",
	}, &question)
	if rec.Code != http.StatusOK || question.ID == "" {
		t.Fatalf("create question status %d: %s", rec.Code, rec.Body.String())
	}

	var session struct {
		ID string `json:"id"`
	}
	rec = doJSON(t, h, http.MethodPost, "/api/projects/"+project.ID+"/sessions", token, map[string]any{"agency": "Centro"}, &session)
	if rec.Code != http.StatusOK || session.ID == "" {
		t.Fatalf("start session status %d: %s", rec.Code, rec.Body.String())
	}

	base := "/api/projects/" + project.ID + "/sessions/" + session.ID
	var submit struct {
		Count int `json:"count"`
	}
	rec = doJSON(t, h, http.MethodPost, base+"/observations", token, map[string]any{
		"answers": []map[string]any{{"question_id": question.ID, "response": true}},
	}, &submit)
	if rec.Code != http.StatusOK || submit.Count != 1 {
		t.Fatalf("submit status %d count %d: %s", rec.Code, submit.Count, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, base+"/finish", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finish status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, base+"/finish", token, nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second finish status %d: %s", rec.Code, rec.Body.String())
	}

	var detail struct {
		Observations []struct {
			Rendered struct {
				Kind string `json:"kind"`
				Text string `json:"text"`
			} `json:"rendered"`
		} `json:"observations"`
	}
	rec = doJSON(t, h, http.MethodGet, base, token, nil, &detail)
	if rec.Code != http.StatusOK || len(detail.Observations) != 1 {
		t.Fatalf("detail status %d: %s", rec.Code, rec.Body.String())
	}
	if detail.Observations[0].Rendered.Text != "Sí" {
		t.Fatalf("rendered = %+v", detail.Observations[0].Rendered)
	}

	rec = doJSON(t, h, http.MethodDelete, base, token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete session status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodGet, base, token, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	h := newTestHandler()
	token, _, _ := registerUser(t, h, "export@example.com")

	var project struct {
		ID string `json:"id"`
	}
	doJSON(t, h, http.MethodPost, "/api/projects", token, map[string]any{"name": "Sondeo"}, &project)

	rec := doJSON(t, h, http.MethodGet, "/api/export?project_id="+project.ID, token, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty project export status %d: %s", rec.Code, rec.Body.String())
	}

	var question struct {
		ID string `json:"id"`
	}
	doJSON(t, h, http.MethodPost, "/api/projects/"+project.ID+"/questions", token, map[string]any{
		"name": "Comentario", "question_type": "text",
	}, &question)
	var session struct {
		ID string `json:"id"`
	}
	doJSON(t, h, http.MethodPost, "/api/projects/"+project.ID+"/sessions", token, map[string]any{"agency": "Norte"}, &session)
	doJSON(t, h, http.MethodPost, "/api/projects/"+project.ID+"/sessions/"+session.ID+"/observations", token, map[string]any{
		"answers": []map[string]any{{"question_id": question.ID, "response": "Sin novedades"}},
	}, nil)

	rec = doJSON(t, h, http.MethodGet, "/api/export?project_id="+project.ID, token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv;charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "sesiones-Sondeo-") {
		t.Fatalf("content disposition = %q", cd)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"ID de Sesión","Fecha","Agencia","Comentario"`) {
		t.Fatalf("csv header missing: %s", body)
	}
	if !strings.Contains(body, `"Sin novedades"`) {
		t.Fatalf("csv row missing: %s", body)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/export?project_id="+project.ID+"&session_id="+session.ID, token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("single export status %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "sesion-"+session.ID[:8]) {
		t.Fatalf("single content disposition = %q", cd)
	}
}

func TestTimeTrackingEndpoints(t *testing.T) {
	h := newTestHandler()
	token, _, _ := registerUser(t, h, "tiempos@example.com")

	var agency struct {
		ID string `json:"id"`
	}
	rec := doJSON(t, h, http.MethodPost, "/api/tiempos/agencias", token, map[string]any{"name": "Agencia Sur"}, &agency)
	if rec.Code != http.StatusOK || agency.ID == "" {
		t.Fatalf("create agency status %d: %s", rec.Code, rec.Body.String())
	}

	var option struct {
		ID string `json:"id"`
	}
	doJSON(t, h, http.MethodPost, "/api/tiempos/opciones", token, map[string]any{"name": "Espera", "sort_order": 1}, &option)
	doJSON(t, h, http.MethodPost, "/api/tiempos/opciones", token, map[string]any{"name": "Atención", "sort_order": 0}, nil)

	var options struct {
		Options []struct {
			Name string `json:"name"`
		} `json:"options"`
	}
	rec = doJSON(t, h, http.MethodGet, "/api/tiempos/opciones", token, nil, &options)
	if rec.Code != http.StatusOK || len(options.Options) != 2 {
		t.Fatalf("list options status %d: %s", rec.Code, rec.Body.String())
	}
	if options.Options[0].Name != "Atención" {
		t.Fatalf("options order = %+v", options.Options)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/tiempos/agencias/"+agency.ID, token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete agency status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodGet, "/api/tiempos/agencias", "", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestTimeTrackingDeleteAcrossOrganizations(t *testing.T) {
	h := newTestHandler()
	owner, _, _ := registerUser(t, h, "config@example.com")
	intruder, _, _ := registerUser(t, h, "ajeno@example.com")

	var agency struct {
		ID string `json:"id"`
	}
	doJSON(t, h, http.MethodPost, "/api/tiempos/agencias", owner, map[string]any{"name": "Agencia Centro"}, &agency)
	var option struct {
		ID string `json:"id"`
	}
	doJSON(t, h, http.MethodPost, "/api/tiempos/opciones", owner, map[string]any{"name": "Espera", "sort_order": 0}, &option)

	rec := doJSON(t, h, http.MethodDelete, "/api/tiempos/agencias/"+agency.ID, intruder, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign agency delete status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodDelete, "/api/tiempos/opciones/"+option.ID, intruder, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign option delete status %d: %s", rec.Code, rec.Body.String())
	}

	var agencies struct {
		Agencies []struct {
			ID string `json:"id"`
		} `json:"agencies"`
	}
	rec = doJSON(t, h, http.MethodGet, "/api/tiempos/agencias", owner, nil, &agencies)
	if rec.Code != http.StatusOK || len(agencies.Agencies) != 1 {
		t.Fatalf("agency gone after foreign delete: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/tiempos/agencias/"+agency.ID, owner, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete status %d: %s", rec.Code, rec.Body.String())
	}
}

package services

// AccessStore is the read-only surface used for access decisions.
type AccessStore interface {
	GetUser(id string) (*User, error)
	GetProject(id string) (*Project, error)
	GetOrganization(id string) (*Organization, error)
	// GetSessionInProject filters by both ids so a session belonging to a
	// different project is never returned, even when both ids exist.
	GetSessionInProject(sessionID, projectID string) (*Session, error)
}

// ProjectAccess is the positive outcome of a project access check.
type ProjectAccess struct {
	Project *Project `json:"project"`
	Role    string   `json:"role"`
}

// SessionAccess extends ProjectAccess with the resolved session.
type SessionAccess struct {
	Project *Project `json:"project"`
	Session *Session `json:"session"`
	Role    string   `json:"role"`
}

// OrganizationAccess is the positive outcome of an organization membership
// check.
type OrganizationAccess struct {
	Organization *Organization `json:"organization"`
	Role         string        `json:"role"`
}

// AccessService computes ephemeral access decisions. Checks are read-only;
// callers redirect or reject on a negative decision.
type AccessService struct {
	store AccessStore
}

func NewAccessService(store AccessStore) *AccessService {
	return &AccessService{store: store}
}

// ValidateProjectAccess grants access to the project's creator without
// further checks, otherwise requires the user's organization to own the
// project.
func (s *AccessService) ValidateProjectAccess(userID, projectID string) (*ProjectAccess, error) {
	user, err := s.resolveUser(userID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, NewNotFoundError("Proyecto no encontrado")
	}
	if project.CreatedBy == user.ID {
		return &ProjectAccess{Project: project, Role: "creator"}, nil
	}
	if user.OrganizationID != "" && user.OrganizationID == project.OrganizationID {
		return &ProjectAccess{Project: project, Role: user.Role}, nil
	}
	return nil, NewForbiddenError("Sin acceso al proyecto")
}

// ValidateSessionAccess re-validates project access and then resolves the
// session scoped to that project. The session's own creator and anyone with
// project access are treated alike; no stricter session-level role exists.
func (s *AccessService) ValidateSessionAccess(userID, projectID, sessionID string) (*SessionAccess, error) {
	access, err := s.ValidateProjectAccess(userID, projectID)
	if err != nil {
		return nil, err
	}
	session, err := s.store.GetSessionInProject(sessionID, projectID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, NewNotFoundError("Sesión no encontrada")
	}
	return &SessionAccess{Project: access.Project, Session: session, Role: access.Role}, nil
}

// ValidateOrganizationAccess checks that the user belongs to the
// organization.
func (s *AccessService) ValidateOrganizationAccess(userID, orgID string) (*OrganizationAccess, error) {
	user, err := s.resolveUser(userID)
	if err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, NewNotFoundError("Organización no encontrada")
	}
	if user.OrganizationID == org.ID {
		return &OrganizationAccess{Organization: org, Role: user.Role}, nil
	}
	return nil, NewForbiddenError("Sin acceso a la organización")
}

func (s *AccessService) resolveUser(userID string) (*User, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("Usuario no autenticado")
	}
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewUnauthorizedError("Usuario no autenticado")
	}
	return user, nil
}

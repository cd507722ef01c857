package services

import (
	"testing"
	"time"
)

type authStubStore struct {
	users map[string]*User
	orgs  map[string]*Organization
}

func newAuthStubStore() *authStubStore {
	return &authStubStore{users: map[string]*User{}, orgs: map[string]*Organization{}}
}

func (s *authStubStore) FindUserByEmail(email string) (*User, error) {
	if u, ok := s.users[email]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func (s *authStubStore) AddUser(u *User) error {
	copy := *u
	s.users[u.Email] = &copy
	return nil
}

func (s *authStubStore) AddOrganization(o *Organization) error {
	copy := *o
	s.orgs[o.ID] = &copy
	return nil
}

func stubSigner(uid, oid, email string, ttl time.Duration) (string, error) {
	return "token-" + uid + "-" + oid, nil
}

func TestRegisterAndLogin(t *testing.T) {
	store := newAuthStubStore()
	svc := NewAuthService(store, stubSigner)

	reg, err := svc.Register("ana@example.com", "secreto", "Mi Org")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Token == "" || reg.OrganizationID == "" || reg.UserID == "" {
		t.Fatalf("result = %+v", reg)
	}
	u := store.users["ana@example.com"]
	if u == nil || u.Role != "owner" || u.OrganizationID != reg.OrganizationID {
		t.Fatalf("stored user = %+v", u)
	}
	if len(store.orgs) != 1 {
		t.Fatal("organization not created")
	}

	login, err := svc.Login("ana@example.com", "secreto")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.UserID != reg.UserID || login.OrganizationID != reg.OrganizationID {
		t.Fatalf("login result = %+v", login)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newAuthStubStore()
	svc := NewAuthService(store, stubSigner)
	if _, err := svc.Register("ana@example.com", "secreto", "Org"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register("ana@example.com", "otro", "Org2")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorConflict {
		t.Fatalf("error = %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newAuthStubStore()
	svc := NewAuthService(store, stubSigner)
	if _, err := svc.Register("ana@example.com", "secreto", "Org"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Login("ana@example.com", "equivocada")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorUnauthorized {
		t.Fatalf("error = %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := NewAuthService(newAuthStubStore(), stubSigner)
	_, err := svc.Login("nadie@example.com", "x")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorUnauthorized {
		t.Fatalf("error = %v", err)
	}
}

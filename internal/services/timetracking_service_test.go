package services

import (
	"testing"
	"time"
)

type timeTrackingStubStore struct {
	agencies map[string]*TimeAgency
	options  map[string]*TimeOption
}

func newTimeTrackingStubStore() *timeTrackingStubStore {
	return &timeTrackingStubStore{agencies: map[string]*TimeAgency{}, options: map[string]*TimeOption{}}
}

func (s *timeTrackingStubStore) InsertTimeAgency(a *TimeAgency) error {
	copy := *a
	s.agencies[a.ID] = &copy
	return nil
}

func (s *timeTrackingStubStore) DeleteTimeAgency(orgID, id string) error {
	if a, ok := s.agencies[id]; !ok || a.OrganizationID != orgID {
		return NewNotFoundError("Agencia no encontrada")
	}
	delete(s.agencies, id)
	return nil
}

func (s *timeTrackingStubStore) ListTimeAgencies(orgID string) ([]*TimeAgency, error) {
	out := []*TimeAgency{}
	for _, a := range s.agencies {
		if a.OrganizationID == orgID {
			copy := *a
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (s *timeTrackingStubStore) InsertTimeOption(o *TimeOption) error {
	copy := *o
	s.options[o.ID] = &copy
	return nil
}

func (s *timeTrackingStubStore) DeleteTimeOption(orgID, id string) error {
	if o, ok := s.options[id]; !ok || o.OrganizationID != orgID {
		return NewNotFoundError("Opción no encontrada")
	}
	delete(s.options, id)
	return nil
}

func (s *timeTrackingStubStore) ListTimeOptions(orgID string) ([]*TimeOption, error) {
	out := []*TimeOption{}
	for _, o := range s.options {
		if o.OrganizationID == orgID {
			copy := *o
			out = append(out, &copy)
		}
	}
	return out, nil
}

func TestTimeTrackingAgencies(t *testing.T) {
	store := newTimeTrackingStubStore()
	svc := NewTimeTrackingService(store)

	a, err := svc.CreateAgency("o1", " Agencia Sur ")
	if err != nil {
		t.Fatalf("CreateAgency: %v", err)
	}
	if a.Name != "Agencia Sur" {
		t.Fatalf("name = %q", a.Name)
	}
	if _, err := svc.CreateAgency("o1", "  "); err == nil {
		t.Fatal("expected error for blank name")
	}
	if _, err := svc.CreateAgency("", "X"); err == nil {
		t.Fatal("expected error without organization")
	}

	list, err := svc.ListAgencies("o1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, err = %v", list, err)
	}
	if err := svc.DeleteAgency("o1", a.ID); err != nil {
		t.Fatalf("DeleteAgency: %v", err)
	}
}

func TestTimeTrackingDeleteScopedToOrganization(t *testing.T) {
	store := newTimeTrackingStubStore()
	svc := NewTimeTrackingService(store)

	a, err := svc.CreateAgency("o1", "Agencia Centro")
	if err != nil {
		t.Fatalf("CreateAgency: %v", err)
	}
	o, err := svc.CreateOption("o1", "Espera", 0)
	if err != nil {
		t.Fatalf("CreateOption: %v", err)
	}

	if err := svc.DeleteAgency("o2", a.ID); err == nil {
		t.Fatal("expected error deleting another organization's agency")
	}
	if err := svc.DeleteOption("o2", o.ID); err == nil {
		t.Fatal("expected error deleting another organization's option")
	}
	if err := svc.DeleteAgency("", a.ID); err == nil {
		t.Fatal("expected error without organization")
	}

	if list, _ := svc.ListAgencies("o1"); len(list) != 1 {
		t.Fatalf("agency removed by foreign organization: %v", list)
	}
	if list, _ := svc.ListOptions("o1"); len(list) != 1 {
		t.Fatalf("option removed by foreign organization: %v", list)
	}

	if err := svc.DeleteAgency("o1", a.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if err := svc.DeleteOption("o1", o.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
}

func TestTimeTrackingOptionsOrdered(t *testing.T) {
	store := newTimeTrackingStubStore()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.options["b"] = &TimeOption{ID: "b", OrganizationID: "o1", Name: "Espera", SortOrder: 1, CreatedAt: created}
	store.options["a"] = &TimeOption{ID: "a", OrganizationID: "o1", Name: "Atención", SortOrder: 0, CreatedAt: created}
	store.options["c"] = &TimeOption{ID: "c", OrganizationID: "o1", Name: "Cierre", SortOrder: 1, CreatedAt: created.Add(-time.Minute)}
	svc := NewTimeTrackingService(store)

	options, err := svc.ListOptions("o1")
	if err != nil {
		t.Fatalf("ListOptions: %v", err)
	}
	if options[0].ID != "a" || options[1].ID != "c" || options[2].ID != "b" {
		t.Fatalf("order = %s %s %s", options[0].ID, options[1].ID, options[2].ID)
	}
}

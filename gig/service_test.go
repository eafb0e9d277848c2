package gig

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestService_Create(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo).WithIDGenerator(func() string { return "gig-1" })

	created, err := svc.Create(context.Background(), CreateParams{
		ClientID:    "client-1",
		Title:       "  Build a landing page ",
		Description: "Static site, two sections",
		Budget:      250,
	})
	if err != nil {
		t.Fatalf("create: unexpected error: %v", err)
	}
	if created.ID != "gig-1" {
		t.Fatalf("expected id gig-1, got %q", created.ID)
	}
	if created.Status != StatusOpen {
		t.Fatalf("expected status open, got %s", created.Status)
	}
	if created.Title != "Build a landing page" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := NewService(newFakeRepository())

	cases := []CreateParams{
		{Title: "t", Description: "d", Budget: 1},
		{ClientID: "c", Description: "d", Budget: 1},
		{ClientID: "c", Title: "t", Budget: 1},
		{ClientID: "c", Title: "t", Description: "d", Budget: -1},
	}
	for i, params := range cases {
		if _, err := svc.Create(context.Background(), params); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestService_ListDefaultsToOpen(t *testing.T) {
	repo := newFakeRepository()
	repo.items = []Listing{
		{Gig: Gig{ID: "g1", Title: "Logo design", Status: StatusOpen, ClientID: "c1"}},
		{Gig: Gig{ID: "g2", Title: "Logo refresh", Status: StatusAssigned, ClientID: "c1"}},
		{Gig: Gig{ID: "g3", Title: "API work", Status: StatusOpen, ClientID: "c2"}},
	}
	svc := NewService(repo)

	open, err := svc.List(context.Background(), Filters{Search: "logo"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 1 || open[0].ID != "g1" {
		t.Fatalf("expected only open logo gig, got %+v", open)
	}

	mine, err := svc.ListForClient(context.Background(), "c1")
	if err != nil {
		t.Fatalf("list for client: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected both gigs of client c1, got %d", len(mine))
	}
}

func TestService_GetNotFound(t *testing.T) {
	svc := NewService(newFakeRepository())
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fakeRepository struct {
	items []Listing
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{}
}

func (f *fakeRepository) Create(_ context.Context, g Gig) (Gig, error) {
	f.items = append(f.items, Listing{Gig: g})
	return g, nil
}

func (f *fakeRepository) List(_ context.Context, filters Filters) ([]Listing, error) {
	status := filters.Status
	if status == "" && !filters.AnyStatus {
		status = StatusOpen
	}
	out := []Listing{}
	for _, l := range f.items {
		if status != "" && l.Status != status {
			continue
		}
		if filters.ClientID != "" && l.ClientID != filters.ClientID {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeRepository) GetByID(_ context.Context, id string) (Listing, error) {
	for _, l := range f.items {
		if l.ID == id {
			return l, nil
		}
	}
	return Listing{}, ErrNotFound
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yash9140/GigFlow/auth"
	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/gig"
	"github.com/yash9140/GigFlow/hire"
)

const validToken = "good-token"

type stubAuth struct {
	user     auth.User
	loginErr error
	regErr   error
}

func (s *stubAuth) Register(_ context.Context, req auth.RegisterRequest) (*auth.User, error) {
	if s.regErr != nil {
		return nil, s.regErr
	}
	u := auth.User{ID: "new-user", Name: req.Name, Email: req.Email, Role: auth.RoleClient}
	return &u, nil
}

func (s *stubAuth) Login(_ context.Context, _ auth.LoginRequest) (auth.LoginResult, error) {
	if s.loginErr != nil {
		return auth.LoginResult{}, s.loginErr
	}
	return auth.LoginResult{Token: validToken, User: s.user}, nil
}

func (s *stubAuth) GetUserByID(_ context.Context, id string) (*auth.User, error) {
	if id != s.user.ID {
		return nil, auth.ErrUserNotFound
	}
	u := s.user
	return &u, nil
}

func (s *stubAuth) VerifyToken(token string) (string, auth.Role, error) {
	if token != validToken {
		return "", "", auth.ErrInvalidToken
	}
	return s.user.ID, s.user.Role, nil
}

type stubGigs struct {
	listings   []gig.Listing
	lastFilter gig.Filters
	created    gig.Gig
	err        error
}

func (s *stubGigs) Create(_ context.Context, params gig.CreateParams) (gig.Gig, error) {
	if s.err != nil {
		return gig.Gig{}, s.err
	}
	s.created = gig.Gig{ID: "g-new", Title: params.Title, Description: params.Description, Budget: params.Budget, ClientID: params.ClientID, Status: gig.StatusOpen}
	return s.created, nil
}

func (s *stubGigs) List(_ context.Context, filters gig.Filters) ([]gig.Listing, error) {
	s.lastFilter = filters
	return s.listings, s.err
}

func (s *stubGigs) ListForClient(_ context.Context, clientID string) ([]gig.Listing, error) {
	s.lastFilter = gig.Filters{ClientID: clientID, AnyStatus: true}
	return s.listings, s.err
}

func (s *stubGigs) Get(_ context.Context, id string) (gig.Listing, error) {
	for _, l := range s.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return gig.Listing{}, gig.ErrNotFound
}

type stubBids struct {
	submitErr error
	listErr   error
	gigBids   []bid.GigBid
	lastActor string
}

func (s *stubBids) Submit(_ context.Context, params bid.SubmitParams) (bid.Bid, error) {
	if s.submitErr != nil {
		return bid.Bid{}, s.submitErr
	}
	return bid.Bid{ID: "b-new", GigID: params.GigID, FreelancerID: params.FreelancerID, Amount: params.Amount, Proposal: params.Proposal, Status: bid.StatusPending}, nil
}

func (s *stubBids) ListForGig(_ context.Context, actorID, _ string) ([]bid.GigBid, error) {
	s.lastActor = actorID
	return s.gigBids, s.listErr
}

func (s *stubBids) ListForFreelancer(_ context.Context, _ string) ([]bid.FreelancerBid, error) {
	return []bid.FreelancerBid{{Bid: bid.Bid{ID: "b1"}, GigTitle: "Logo", GigStatus: "open"}}, nil
}

type stubHire struct {
	result    hire.Result
	err       error
	lastActor string
	lastBid   string
}

func (s *stubHire) Hire(_ context.Context, actorID, bidID string) (hire.Result, error) {
	s.lastActor, s.lastBid = actorID, bidID
	return s.result, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubMetrics struct {
	mu     sync.Mutex
	routes []string
}

func (m *stubMetrics) ObserveHTTP(route, method string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, fmt.Sprintf("%s %s %d", method, route, status))
}

func (m *stubMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
}

type harness struct {
	auth    *stubAuth
	gigs    *stubGigs
	bids    *stubBids
	hire    *stubHire
	db      stubPinger
	metrics *stubMetrics
}

func newHarness() *harness {
	return &harness{
		auth:    &stubAuth{user: auth.User{ID: "client-1", Name: "Cara", Email: "cara@example.com", Role: auth.RoleClient}},
		gigs:    &stubGigs{},
		bids:    &stubBids{},
		hire:    &stubHire{},
		metrics: &stubMetrics{},
	}
}

func (h *harness) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	srv := NewServer(Deps{
		Auth:    h.auth,
		Gigs:    h.gigs,
		Bids:    h.bids,
		Hire:    h.hire,
		DB:      h.db,
		Metrics: h.metrics,
		Log:     zerolog.Nop(),
	}, Options{CookieName: "token", TokenTTL: time.Hour, CORSOrigins: []string{"http://localhost:5173"}})
	return srv.Router()
}

func (h *harness) do(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.AddCookie(&http.Cookie{Name: "token", Value: validToken})
	}
	rec := httptest.NewRecorder()
	h.router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness()
	rec := h.do(http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", decode[map[string]string](t, rec)["status"])

	h.db = stubPinger{err: errors.New("connection refused")}
	rec = h.do(http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireAuth(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodGet, "/api/auth/me", nil, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	rec = httptest.NewRecorder()
	h.router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "client-1", decode[userResponse](t, rec).ID)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	h.router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	h := newHarness()
	rec := h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: "cara@example.com", Password: "supersafe"}, false)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "token", cookies[0].Name)
	require.Equal(t, validToken, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, 3600, cookies[0].MaxAge)

	h.auth.loginErr = auth.ErrInvalidCredentials
	rec = h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: "cara@example.com", Password: "nope-nope"}, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister(t *testing.T) {
	h := newHarness()
	rec := h.do(http.MethodPost, "/api/auth/register", registerRequest{Name: "New", Email: "new@example.com", Password: "supersafe"}, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "new@example.com", decode[userResponse](t, rec).Email)
	require.NotEmpty(t, rec.Result().Cookies())

	h.auth.regErr = auth.ErrDuplicateEmail
	rec = h.do(http.MethodPost, "/api/auth/register", registerRequest{Name: "New", Email: "new@example.com", Password: "supersafe"}, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "User already exists", decode[map[string]string](t, rec)["message"])

	rec = h.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "x@example.com"}, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newHarness()
	rec := h.do(http.MethodPost, "/api/auth/logout", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)
	require.Negative(t, cookies[0].MaxAge)
}

func TestGigRoutes(t *testing.T) {
	h := newHarness()
	h.gigs.listings = []gig.Listing{{
		Gig:        gig.Gig{ID: "g1", Title: "Logo", Budget: 200, Status: gig.StatusOpen, ClientID: "client-1"},
		ClientName: "Cara",
	}}

	rec := h.do(http.MethodGet, "/api/gigs?search=logo", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "logo", h.gigs.lastFilter.Search)
	list := decode[[]gigResponse](t, rec)
	require.Len(t, list, 1)
	require.Equal(t, "Cara", list[0].Client.Name)

	rec = h.do(http.MethodGet, "/api/gigs/g1", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/gigs/missing", nil, false)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/gigs/mine", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "client-1", h.gigs.lastFilter.ClientID)

	rec = h.do(http.MethodPost, "/api/gigs", map[string]any{"title": "API", "description": "REST work", "budget": 0}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "client-1", h.gigs.created.ClientID)

	rec = h.do(http.MethodPost, "/api/gigs", map[string]any{"title": "API", "description": "REST work"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/gigs", map[string]any{"title": "API", "description": "d", "budget": 5}, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBidRoutes(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodPost, "/api/bids", submitBidRequest{GigID: "g1", Amount: 50, Proposal: "On it"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "client-1", decode[bidResponse](t, rec).FreelancerID)

	cases := []struct {
		err  error
		code int
	}{
		{bid.ErrDuplicateBid, http.StatusBadRequest},
		{bid.ErrOwnGig, http.StatusBadRequest},
		{bid.ErrGigClosed, http.StatusBadRequest},
		{gig.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		h.bids.submitErr = tc.err
		rec = h.do(http.MethodPost, "/api/bids", submitBidRequest{GigID: "g1", Amount: 50, Proposal: "On it"}, true)
		require.Equal(t, tc.code, rec.Code, tc.err.Error())
	}

	h.bids.listErr = bid.ErrForbidden
	rec = h.do(http.MethodGet, "/api/bids/g1", nil, true)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "client-1", h.bids.lastActor)

	h.bids.listErr = nil
	h.bids.gigBids = []bid.GigBid{{Bid: bid.Bid{ID: "b1"}, FreelancerName: "Fay"}}
	rec = h.do(http.MethodGet, "/api/bids/g1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Fay", decode[[]bidResponse](t, rec)[0].Freelancer.Name)

	rec = h.do(http.MethodGet, "/api/bids/mine", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Logo", decode[[]bidResponse](t, rec)[0].Gig.Title)
}

func TestHireRoute(t *testing.T) {
	h := newHarness()
	h.hire.result = hire.Result{
		Bid: bid.Bid{ID: "b1", GigID: "g1", FreelancerID: "f1", Amount: 80, Status: bid.StatusHired},
		Gig: gig.Gig{ID: "g1", Title: "Logo", Status: gig.StatusAssigned, ClientID: "client-1"},
	}

	rec := h.do(http.MethodPost, "/api/hire/b1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "client-1", h.hire.lastActor)
	require.Equal(t, "b1", h.hire.lastBid)

	resp := decode[hireResponse](t, rec)
	require.Equal(t, "Freelancer hired successfully", resp.Message)
	require.Equal(t, "hired", resp.Bid.Status)
	require.Equal(t, "assigned", resp.Gig.Status)

	rec = h.do(http.MethodPost, "/api/hire/b1", nil, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHireRoute_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{hire.ErrBidNotFound, http.StatusNotFound},
		{hire.ErrGigNotFound, http.StatusNotFound},
		{hire.ErrUnauthorized, http.StatusForbidden},
		{hire.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: serialization failure", hire.ErrTransaction), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			h := newHarness()
			h.hire.err = tc.err
			rec := h.do(http.MethodPost, "/api/hire/b1", nil, true)
			require.Equal(t, tc.code, rec.Code)
			require.NotEmpty(t, decode[map[string]string](t, rec)["message"])
		})
	}
}

func TestObserveRecordsRoutePattern(t *testing.T) {
	h := newHarness()
	h.do(http.MethodPost, "/api/hire/b42", nil, true)
	h.do(http.MethodGet, "/nowhere", nil, false)

	require.Contains(t, h.metrics.routes, "POST /api/hire/:bidId 200")
	require.Contains(t, h.metrics.routes, "GET  404")

	rec := h.do(http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "# metrics")
}

func TestCORSAllowsCredentialedOrigin(t *testing.T) {
	h := newHarness()
	req := httptest.NewRequest(http.MethodOptions, "/api/gigs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.router().ServeHTTP(rec, req)

	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"example.com/codepad/internal/auth"
	"example.com/codepad/internal/domain"
)

func newTestHandler(store *mockStore) *Handler {
	tracker := domain.NewTracker(store, nil)
	accounts := domain.NewAccounts(store, time.Hour)
	library := domain.NewLibrary(store)
	return NewHandler(tracker, accounts, library, zerolog.Nop())
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	identity := &auth.Identity{UserID: "user-1", SessionToken: "tok-1"}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func TestEditorActivityStart(t *testing.T) {
	store := newMockStore()
	handler := newTestHandler(store)

	req := authedRequest(http.MethodPost, "/api/editor/activity", `{"action":"start"}`)
	rr := httptest.NewRecorder()
	handler.editorActivity(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ActivityResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "started" {
		t.Fatalf("expected status started got %q", resp.Status)
	}
	if len(store.intervals) != 1 {
		t.Fatalf("expected 1 interval got %d", len(store.intervals))
	}
	if !store.intervals[0].Open() {
		t.Fatal("expected the new interval to be open")
	}
}

func TestEditorActivityInvalidAction(t *testing.T) {
	store := newMockStore()
	handler := newTestHandler(store)

	req := authedRequest(http.MethodPost, "/api/editor/activity", `{"action":"pause"}`)
	rr := httptest.NewRecorder()
	handler.editorActivity(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	if len(store.intervals) != 0 {
		t.Fatalf("expected no intervals got %d", len(store.intervals))
	}
}

func TestEditorActivityEndWithoutOpenInterval(t *testing.T) {
	store := newMockStore()
	handler := newTestHandler(store)

	req := authedRequest(http.MethodPost, "/api/editor/activity", `{"action":"end"}`)
	rr := httptest.NewRecorder()
	handler.editorActivity(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ActivityResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ended" {
		t.Fatalf("expected status ended got %q", resp.Status)
	}
}

func TestEditorActivityRequiresAuth(t *testing.T) {
	handler := newTestHandler(newMockStore())

	req := httptest.NewRequest(http.MethodPost, "/api/editor/activity", strings.NewReader(`{"action":"start"}`))
	rr := httptest.NewRecorder()
	handler.editorActivity(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestEditorTodaySumsClosedInterval(t *testing.T) {
	store := newMockStore()
	now := time.Now().UTC()
	end := now.Add(-time.Minute)
	store.intervals = append(store.intervals, domain.Interval{
		ID:        "iv-1",
		UserID:    "user-1",
		Date:      domain.LocalDate(now),
		StartedAt: end.Add(-90 * time.Second),
		EndedAt:   &end,
	})
	handler := newTestHandler(store)

	req := authedRequest(http.MethodGet, "/api/editor/today", "")
	rr := httptest.NewRecorder()
	handler.editorToday(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp TodayResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Seconds != 90 {
		t.Fatalf("expected 90 seconds got %d", resp.Seconds)
	}
}

func TestEditorTodayIgnoresOtherUsers(t *testing.T) {
	store := newMockStore()
	now := time.Now().UTC()
	end := now.Add(-time.Minute)
	store.intervals = append(store.intervals, domain.Interval{
		ID:        "iv-1",
		UserID:    "user-2",
		Date:      domain.LocalDate(now),
		StartedAt: end.Add(-90 * time.Second),
		EndedAt:   &end,
	})
	handler := newTestHandler(store)

	req := authedRequest(http.MethodGet, "/api/editor/today", "")
	rr := httptest.NewRecorder()
	handler.editorToday(rr, req)

	var resp TodayResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Seconds != 0 {
		t.Fatalf("expected 0 seconds got %d", resp.Seconds)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	store := newMockStore()
	handler := newTestHandler(store)

	req := authedRequest(http.MethodPost, "/api/documents", `{"title":"main.go","language":"go","content":"package main"}`)
	rr := httptest.NewRecorder()
	handler.documents(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var created DocumentView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	req = authedRequest(http.MethodPut, "/api/documents/"+created.ID, `{"title":"main.go","content":"package main\n\nfunc main() {}"}`)
	rr = httptest.NewRecorder()
	handler.documentByID(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	req = authedRequest(http.MethodGet, "/api/documents/"+created.ID, "")
	rr = httptest.NewRecorder()
	handler.documentByID(rr, req)

	var fetched DocumentView
	if err := json.Unmarshal(rr.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.Contains(fetched.Content, "func main()") {
		t.Fatalf("expected updated content, got %q", fetched.Content)
	}

	req = authedRequest(http.MethodGet, "/api/documents", "")
	rr = httptest.NewRecorder()
	handler.documents(rr, req)

	var list ListDocumentsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 document got %d", len(list.Items))
	}
}

func TestDocumentNotFoundForOtherUser(t *testing.T) {
	store := newMockStore()
	now := time.Now().UTC()
	store.documents = append(store.documents, domain.Document{
		ID:        "doc-1",
		UserID:    "user-2",
		Title:     "secret.go",
		CreatedAt: now,
		UpdatedAt: now,
	})
	handler := newTestHandler(store)

	req := authedRequest(http.MethodGet, "/api/documents/doc-1", "")
	rr := httptest.NewRecorder()
	handler.documentByID(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestListDocumentsRejectsInvalidCursor(t *testing.T) {
	handler := newTestHandler(newMockStore())

	req := authedRequest(http.MethodGet, "/api/documents?cursor=%25not-base64", "")
	rr := httptest.NewRecorder()
	handler.documents(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	store := newMockStore()
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":"dev@example.com","password":"correct-horse"}`))
	rr := httptest.NewRecorder()
	handler.register(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
	if len(rr.Result().Cookies()) == 0 {
		t.Fatal("expected a session cookie on register")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"dev@example.com","password":"wrong"}`))
	rr = httptest.NewRecorder()
	handler.login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"dev@example.com","password":"correct-horse"}`))
	rr = httptest.NewRecorder()
	handler.login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
}

// mockStore is an in-memory implementation of the domain store interfaces.
type mockStore struct {
	intervals []domain.Interval
	users     map[string]domain.User
	sessions  map[string]domain.Session
	documents []domain.Document
}

func newMockStore() *mockStore {
	return &mockStore{
		users:    make(map[string]domain.User),
		sessions: make(map[string]domain.Session),
	}
}

func (m *mockStore) CreateInterval(_ context.Context, interval domain.Interval) error {
	m.intervals = append(m.intervals, interval)
	return nil
}

func (m *mockStore) CloseLatestOpen(_ context.Context, userID, date string, endedAt time.Time) (bool, error) {
	latest := -1
	for i, interval := range m.intervals {
		if interval.UserID != userID || interval.Date != date || interval.EndedAt != nil {
			continue
		}
		if latest == -1 || interval.StartedAt.After(m.intervals[latest].StartedAt) {
			latest = i
		}
	}
	if latest == -1 {
		return false, nil
	}
	end := endedAt
	m.intervals[latest].EndedAt = &end
	return true, nil
}

func (m *mockStore) IntervalsByUserAndDate(_ context.Context, userID, date string) ([]domain.Interval, error) {
	var out []domain.Interval
	for _, interval := range m.intervals {
		if interval.UserID == userID && interval.Date == date {
			out = append(out, interval)
		}
	}
	return out, nil
}

func (m *mockStore) CreateUser(_ context.Context, user domain.User) error {
	if _, ok := m.users[user.Email]; ok {
		return domain.ErrEmailTaken
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockStore) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	if user, ok := m.users[email]; ok {
		return &user, nil
	}
	return nil, nil
}

func (m *mockStore) UserByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return &user, nil
		}
	}
	return nil, nil
}

func (m *mockStore) CreateSession(_ context.Context, session domain.Session) error {
	m.sessions[session.Token] = session
	return nil
}

func (m *mockStore) SessionByToken(_ context.Context, token string) (*domain.Session, error) {
	if session, ok := m.sessions[token]; ok {
		return &session, nil
	}
	return nil, nil
}

func (m *mockStore) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *mockStore) CreateDocument(_ context.Context, doc domain.Document) error {
	m.documents = append(m.documents, doc)
	return nil
}

func (m *mockStore) DocumentByID(_ context.Context, userID, id string) (*domain.Document, error) {
	for _, doc := range m.documents {
		if doc.UserID == userID && doc.ID == id {
			return &doc, nil
		}
	}
	return nil, nil
}

func (m *mockStore) UpdateDocument(_ context.Context, userID, id, title, content string, updatedAt time.Time) (*domain.Document, error) {
	for i, doc := range m.documents {
		if doc.UserID == userID && doc.ID == id {
			m.documents[i].Title = title
			m.documents[i].Content = content
			m.documents[i].UpdatedAt = updatedAt
			return &m.documents[i], nil
		}
	}
	return nil, nil
}

func (m *mockStore) DocumentsByUser(_ context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Document, *domain.Cursor, error) {
	var out []domain.Document
	for _, doc := range m.documents {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil, nil
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"falcaoProAPI/internal/logging"
	"falcaoProAPI/internal/payment"
	"falcaoProAPI/internal/realtime"
	"falcaoProAPI/internal/types/activity"
	"falcaoProAPI/internal/types/admin"
	"falcaoProAPI/internal/types/discord"
	"falcaoProAPI/internal/types/support"
	"falcaoProAPI/internal/types/user"
	"falcaoProAPI/middleware"
	"falcaoProAPI/services"
)

var fixedNow = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

func member(endInDays *int) *user.User {
	u := &user.User{ID: "u-1", Email: "membro@example.com"}
	if endInDays != nil {
		end := fixedNow.Add(time.Duration(*endInDays) * 24 * time.Hour)
		u.SubscriptionEndDate = &end
	}
	return u
}

func ptr[T any](v T) *T { return &v }

func withUser(r *http.Request, u *user.User) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), u))
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestUserHandler_GetMe(t *testing.T) {
	h := NewUserHandler()
	h.now = func() time.Time { return fixedNow }

	tests := []struct {
		name    string
		user    *user.User
		state   payment.State
		days    int
		message bool
	}{
		{"active far from expiry", member(ptr(20)), payment.StateActive, 20, false},
		{"active near expiry", member(ptr(5)), payment.StateActive, 5, true},
		{"grace", member(ptr(-2)), payment.StateGracePeriod, 1, true},
		{"expired", member(ptr(-10)), payment.StateExpired, 0, true},
		{"pending", member(nil), payment.StatePending, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.GetMe(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), tt.user))

			require.Equal(t, http.StatusOK, rr.Code)

			var resp user.ProfileResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.state, resp.Payment.Status)
			assert.Equal(t, tt.days, resp.Payment.DaysRemaining)
			assert.Equal(t, tt.message, resp.Message != "")
			assert.Equal(t, "membro@example.com", resp.User.Email)
		})
	}
}

func TestUserHandler_Unauthenticated(t *testing.T) {
	h := NewUserHandler()

	rr := httptest.NewRecorder()
	h.GetPaymentStatus(rr, httptest.NewRequest(http.MethodGet, "/api/v1/me/payment-status", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

type mockActivities struct {
	mock.Mock
}

func (m *mockActivities) ListForUser(ctx context.Context, userID string) ([]*activity.Activity, error) {
	args := m.Called(userID)
	list, _ := args.Get(0).([]*activity.Activity)
	return list, args.Error(1)
}

func (m *mockActivities) Complete(ctx context.Context, userID, activityID string, profit float64) (*activity.Activity, error) {
	args := m.Called(userID, activityID, profit)
	a, _ := args.Get(0).(*activity.Activity)
	return a, args.Error(1)
}

func (m *mockActivities) Reopen(ctx context.Context, userID, activityID string) (*activity.Activity, error) {
	args := m.Called(userID, activityID)
	a, _ := args.Get(0).(*activity.Activity)
	return a, args.Error(1)
}

func activityRouter(h *ActivityHandler, u *user.User) http.Handler {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, withUser(req, u))
		})
	})
	r.HandleFunc("/api/v1/activities", h.ListActivities).Methods("GET")
	r.HandleFunc("/api/v1/activities/{id}/complete", h.CompleteActivity).Methods("POST")
	r.HandleFunc("/api/v1/activities/{id}/complete", h.ReopenActivity).Methods("DELETE")
	return r
}

func TestActivityHandler_CompleteLossIsNegative(t *testing.T) {
	store := &mockActivities{}
	store.On("Complete", "u-1", "act-1", -50.0).
		Return(&activity.Activity{ID: "act-1", Completed: true, Profit: ptr(-50.0)}, nil).Once()

	router := activityRouter(NewActivityHandler(store, logging.Discard()), member(ptr(10)))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(http.MethodPost, "/api/v1/activities/act-1/complete",
		map[string]any{"result": "loss", "amount": 50}))

	assert.Equal(t, http.StatusOK, rr.Code)
	store.AssertExpectations(t)
}

func TestActivityHandler_CompleteValidation(t *testing.T) {
	store := &mockActivities{}
	router := activityRouter(NewActivityHandler(store, logging.Discard()), member(ptr(10)))

	for _, body := range []map[string]any{
		{"result": "draw", "amount": 10},
		{"amount": 10},
		{"result": "profit", "amount": -5},
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, jsonRequest(http.MethodPost, "/api/v1/activities/act-1/complete", body))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	store.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivityHandler_NotFound(t *testing.T) {
	store := &mockActivities{}
	store.On("Reopen", "u-1", "other").Return(nil, services.ErrActivityNotFound).Once()

	router := activityRouter(NewActivityHandler(store, logging.Discard()), member(ptr(10)))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/activities/other/complete", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestActivityHandler_List(t *testing.T) {
	store := &mockActivities{}
	store.On("ListForUser", "u-1").Return([]*activity.Activity{{ID: "a"}, {ID: "b"}}, nil).Once()
	router := activityRouter(NewActivityHandler(store, logging.Discard()), member(ptr(10)))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/activities", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var list []activity.Activity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

type fakeAdmin struct {
	broadcast *activity.BroadcastResult
	err       error
	req       *activity.BroadcastRequest
	discord   *discord.UpdateRequest
	read      []string
}

func (f *fakeAdmin) Broadcast(ctx context.Context, req *activity.BroadcastRequest) (*activity.BroadcastResult, error) {
	f.req = req
	return f.broadcast, f.err
}

func (f *fakeAdmin) Update(ctx context.Context, req *discord.UpdateRequest) (*discord.Config, error) {
	f.discord = req
	return &discord.Config{IsOnline: *req.IsOnline, DiscordLink: req.DiscordLink, UpdatedAt: fixedNow}, nil
}

func (f *fakeAdmin) Overview(ctx context.Context) (*admin.Overview, error) {
	return &admin.Overview{ActiveUsers: 3, TotalUsers: 5}, nil
}

func (f *fakeAdmin) Inbox(ctx context.Context, limit int) (*support.InboxResponse, error) {
	return &support.InboxResponse{Messages: []*support.Message{}}, nil
}

func (f *fakeAdmin) MarkRead(ctx context.Context, id string) error {
	if id != "m-1" {
		return services.ErrMessageNotFound
	}
	f.read = append(f.read, id)
	return nil
}

func newAdminHandler(f *fakeAdmin) *AdminHandler {
	return NewAdminHandler(f, f, f, f, logging.Discard())
}

func TestAdminHandler_Broadcast(t *testing.T) {
	tests := []struct {
		name   string
		result *activity.BroadcastResult
		code   int
	}{
		{"all inserted", &activity.BroadcastResult{Recipients: 3, Inserted: 3}, http.StatusCreated},
		{"partial failure reported", &activity.BroadcastResult{Recipients: 3, Inserted: 2, Failed: 1}, http.StatusCreated},
		{"total failure", &activity.BroadcastResult{Recipients: 3, Failed: 3}, http.StatusInternalServerError},
		{"no users", &activity.BroadcastResult{}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeAdmin{broadcast: tt.result}
			h := newAdminHandler(f)

			rr := httptest.NewRecorder()
			h.BroadcastActivity(rr, jsonRequest(http.MethodPost, "/api/v1/admin/activities", map[string]any{
				"title":           "Cashback method",
				"description":     "Aposte no mercado de escanteios",
				"potentialProfit": 120,
			}))

			assert.Equal(t, tt.code, rr.Code)
			require.NotNil(t, f.req)
			assert.Equal(t, 120.0, f.req.PotentialProfit)

			var got activity.BroadcastResult
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Equal(t, *tt.result, got)
		})
	}
}

func TestAdminHandler_BroadcastValidation(t *testing.T) {
	f := &fakeAdmin{}
	h := newAdminHandler(f)

	rr := httptest.NewRecorder()
	h.BroadcastActivity(rr, jsonRequest(http.MethodPost, "/api/v1/admin/activities", map[string]any{
		"title":    "",
		"imageUrl": "not a url",
	}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, f.req)
}

func TestAdminHandler_UpdateDiscord(t *testing.T) {
	f := &fakeAdmin{}
	h := newAdminHandler(f)

	rr := httptest.NewRecorder()
	h.UpdateDiscord(rr, jsonRequest(http.MethodPut, "/api/v1/admin/discord", map[string]any{
		"isOnline":    false,
		"discordLink": "https://discord.gg/falcao",
	}))

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, f.discord)
	assert.False(t, *f.discord.IsOnline)

	rr = httptest.NewRecorder()
	h.UpdateDiscord(rr, jsonRequest(http.MethodPut, "/api/v1/admin/discord", map[string]any{
		"discordLink": "https://discord.gg/falcao",
	}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminHandler_MarkRead(t *testing.T) {
	f := &fakeAdmin{}
	r := mux.NewRouter()
	r.HandleFunc("/messages/{id}/read", newAdminHandler(f).MarkSupportMessageRead)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/messages/m-1/read", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/messages/missing/read", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Equal(t, []string{"m-1"}, f.read)
}

type staticDiscord struct {
	cfg *discord.Config
	err error
}

func (s staticDiscord) Get(ctx context.Context) (*discord.Config, error) {
	return s.cfg, s.err
}

func TestDiscordHandler_GetStatusFallsBackToStore(t *testing.T) {
	broker := realtime.NewBroker(logging.Discard())
	h := NewDiscordHandler(staticDiscord{cfg: &discord.Config{IsOnline: true, DiscordLink: "https://discord.gg/x"}}, broker, []string{"*"}, logging.Discard())

	rr := httptest.NewRecorder()
	h.GetStatus(rr, httptest.NewRequest(http.MethodGet, "/api/v1/discord", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"isOnline":true`)

	broken := NewDiscordHandler(staticDiscord{err: errors.New("db down")}, broker, nil, logging.Discard())
	rr = httptest.NewRecorder()
	broken.GetStatus(rr, httptest.NewRequest(http.MethodGet, "/api/v1/discord", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestDiscordHandler_StreamPushesUpdates(t *testing.T) {
	broker := realtime.NewBroker(logging.Discard())
	initial := &discord.Config{IsOnline: true, DiscordLink: "https://discord.gg/x", UpdatedAt: fixedNow}
	h := NewDiscordHandler(staticDiscord{cfg: initial}, broker, []string{"*"}, logging.Discard())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.StreamStatus(w, withUser(r, member(ptr(10))))
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var got discord.Config
	require.NoError(t, conn.ReadJSON(&got))
	assert.True(t, got.IsOnline)

	broker.Publish(context.Background(), discord.Config{
		IsOnline:    false,
		DiscordLink: "https://discord.gg/x",
		UpdatedAt:   fixedNow.Add(time.Minute),
	})

	require.NoError(t, conn.ReadJSON(&got))
	assert.False(t, got.IsOnline)
}

func TestSystemHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewSystemHandler(nil).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "disabled")

	rr = httptest.NewRecorder()
	NewSystemHandler(nil).Disabled(rr, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"error":"backend not configured"}`, rr.Body.String())
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/config"
	"github.com/rfidaccess/access-control-backend/internal/models"
	"github.com/rfidaccess/access-control-backend/internal/services"
	"github.com/rfidaccess/access-control-backend/pkg/doorlock"
	"github.com/rfidaccess/access-control-backend/pkg/jwt"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", apperr.Invalid("name is required"), http.StatusBadRequest, "validation_error"},
		{"not found", apperr.NotFound("team", 7), http.StatusNotFound, "not_found"},
		{"duplicate", fmt.Errorf("insert: %w", apperr.ErrDuplicateCredential), http.StatusConflict, "duplicate_credential"},
		{"unavailable", fmt.Errorf("select: %w", apperr.ErrDatabaseUnavailable), http.StatusServiceUnavailable, "database_unavailable"},
		{"unexpected", errors.New("pq: syntax error at position 12"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/x", func(c *gin.Context) { respondError(c, testLogger(), "test", tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.code, body["error"])
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}

	t.Run("conflict lists dependents", func(t *testing.T) {
		err := &apperr.ConflictError{Entity: "team", ID: "3", Dependent: "employees", Dependents: 2}
		router := setupTestRouter()
		router.DELETE("/x", func(c *gin.Context) { respondError(c, testLogger(), "delete_team", err) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/x", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "referential_conflict", body["error"])
		assert.Equal(t, float64(2), body["dependents"])
		assert.Contains(t, body["hint"], "force=true")
	})
}

func TestRespondList(t *testing.T) {
	t.Run("nil becomes empty list", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/x", func(c *gin.Context) {
			var teams []models.Team
			respondList(c, testLogger(), "list", teams, nil)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[],"count":0}`, w.Body.String())
	})

	t.Run("unavailable keeps the shape", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/x", func(c *gin.Context) {
			respondList[models.Team](c, testLogger(), "list", nil, apperr.ErrDatabaseUnavailable)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, []interface{}{}, body["data"])
		assert.Equal(t, float64(0), body["count"])
		assert.Equal(t, "database_unavailable", body["error"])
	})
}

func TestParamHelpers(t *testing.T) {
	router := setupTestRouter()
	router.GET("/items/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "force": forceParam(c), "limit": limitParam(c, 50, 500)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/12?force=true&limit=9000", nil))
	assert.JSONEq(t, `{"id":12,"force":true,"limit":500}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/12?limit=abc", nil))
	assert.JSONEq(t, `{"id":12,"force":false,"limit":50}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/-4", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	jwtCfg := config.JWTConfig{
		Secret:             "access-secret",
		RefreshSecret:      "refresh-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	}
	jwtService := jwt.NewService(jwtCfg.Secret, jwtCfg.RefreshSecret, jwtCfg.AccessTokenExpiry, jwtCfg.RefreshTokenExpiry)
	authService := services.NewAuthService(config.OperatorConfig{Username: "admin", PasswordHash: string(hash)}, jwtService, jwtCfg, testLogger())
	limiter := services.NewRateLimitService(services.RateLimitConfig{MaxFailures: 3, Window: time.Minute})
	handler := NewAuthHandler(authService, limiter, testLogger())

	router := setupTestRouter()
	router.POST("/auth/login", handler.Login)
	router.POST("/auth/refresh", handler.Refresh)
	router.POST("/auth/logout", handler.Logout)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler(t *testing.T) {
	router := setupAuthRouter(t)

	t.Run("missing fields", func(t *testing.T) {
		w := postJSON(router, "/auth/login", `{"username":"admin"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(router, "/auth/login", `{"username":"admin","password":"guess"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_credentials", decodeBody(t, w)["error"])
	})

	t.Run("login refresh logout", func(t *testing.T) {
		w := postJSON(router, "/auth/login", `{"username":"admin","password":"s3cret-pass"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var login models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
		assert.NotEmpty(t, login.AccessToken)
		require.NotEmpty(t, login.RefreshToken)

		refreshBody := fmt.Sprintf(`{"refresh_token":%q}`, login.RefreshToken)
		w = postJSON(router, "/auth/refresh", refreshBody)
		assert.Equal(t, http.StatusOK, w.Code)

		w = postJSON(router, "/auth/logout", refreshBody)
		assert.Equal(t, http.StatusOK, w.Code)

		w = postJSON(router, "/auth/refresh", refreshBody)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "token_revoked", decodeBody(t, w)["error"])
	})

	t.Run("refresh with garbage", func(t *testing.T) {
		w := postJSON(router, "/auth/refresh", `{"refresh_token":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_token", decodeBody(t, w)["error"])
	})
}

func TestAuthHandler_ThrottlesFailedLogins(t *testing.T) {
	router := setupAuthRouter(t)

	for i := 0; i < 3; i++ {
		w := postJSON(router, "/auth/login", `{"username":"admin","password":"guess"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := postJSON(router, "/auth/login", `{"username":"admin","password":"s3cret-pass"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decodeBody(t, w)["error"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

type fakeBadgeStore struct {
	badges  map[string]*models.QREmployee
	logs    []models.AccessLog
	err     error
	limit   int
	nextID  int64
	updated models.EmployeeStatus
}

func newFakeBadgeStore() *fakeBadgeStore {
	return &fakeBadgeStore{badges: make(map[string]*models.QREmployee)}
}

func (f *fakeBadgeStore) Enroll(_ context.Context, emp *models.QREmployee) error {
	if f.err != nil {
		return f.err
	}
	if _, exists := f.badges[emp.QRCode]; exists {
		return fmt.Errorf("badge %s: %w", emp.QRCode, apperr.ErrDuplicateCredential)
	}
	f.nextID++
	emp.ID = f.nextID
	f.badges[emp.QRCode] = emp
	return nil
}

func (f *fakeBadgeStore) Get(_ context.Context, qrCode string) (*models.QREmployee, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.badges[qrCode], nil
}

func (f *fakeBadgeStore) List(_ context.Context) ([]models.QREmployee, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.QREmployee
	for _, b := range f.badges {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBadgeStore) UpdateStatus(_ context.Context, qrCode string, status models.EmployeeStatus) error {
	if _, exists := f.badges[qrCode]; !exists {
		return apperr.NotFound("badge", qrCode)
	}
	f.updated = status
	return nil
}

func (f *fakeBadgeStore) Delete(_ context.Context, qrCode string) error {
	if _, exists := f.badges[qrCode]; !exists {
		return apperr.NotFound("badge", qrCode)
	}
	delete(f.badges, qrCode)
	return nil
}

func (f *fakeBadgeStore) RecentLogs(_ context.Context, limit int) ([]models.AccessLog, error) {
	f.limit = limit
	return f.logs, f.err
}

func setupBadgeRouter(store BadgeStore) *gin.Engine {
	handler := NewBadgeHandler(store, testLogger())
	router := setupTestRouter()
	router.POST("/badges", handler.Enroll)
	router.GET("/badges", handler.List)
	router.GET("/badges/:code", handler.Get)
	router.PUT("/badges/:code/status", handler.UpdateStatus)
	router.DELETE("/badges/:code", handler.Delete)
	router.GET("/access-logs", handler.RecentLogs)
	return router
}

func TestBadgeHandler(t *testing.T) {
	store := newFakeBadgeStore()
	router := setupBadgeRouter(store)

	t.Run("enroll", func(t *testing.T) {
		w := postJSON(router, "/badges", `{"qr_code":"QR-001","name":"Grace Hopper","card_expiry":"2030-01-31"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Grace Hopper", store.badges["QR-001"].Name)
	})

	t.Run("enroll duplicate", func(t *testing.T) {
		w := postJSON(router, "/badges", `{"qr_code":"QR-001","name":"Someone Else"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("enroll bad expiry", func(t *testing.T) {
		w := postJSON(router, "/badges", `{"qr_code":"QR-002","name":"Ann","card_expiry":"31/01/2030"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get unknown", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badges/QR-404", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update status upper-cases", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/badges/QR-001/status", strings.NewReader(`{"status":" suspended "}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.EmployeeStatus("SUSPENDED"), store.updated)
	})

	t.Run("list and delete", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badges", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decodeBody(t, w)["count"])

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/badges/QR-001", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, store.badges)
	})

	t.Run("recent logs limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/access-logs", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 10, store.limit)
	})

	t.Run("store down", func(t *testing.T) {
		down := newFakeBadgeStore()
		down.err = apperr.ErrDatabaseUnavailable
		w := httptest.NewRecorder()
		setupBadgeRouter(down).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badges", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, []interface{}{}, decodeBody(t, w)["data"])
	})
}

type fakeDoor struct {
	err   error
	cards []string
}

func (f *fakeDoor) Status(context.Context) (*doorlock.Status, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &doorlock.Status{DoorLocked: true}, nil
}

func (f *fakeDoor) Unlock(context.Context) (doorlock.Result, error) {
	return doorlock.Result{"status": "unlocked"}, f.err
}

func (f *fakeDoor) Lock(context.Context) (doorlock.Result, error) {
	return doorlock.Result{"status": "locked"}, f.err
}

func (f *fakeDoor) AuthorizedCards(context.Context) ([]string, error) {
	return f.cards, f.err
}

func (f *fakeDoor) AddCard(_ context.Context, cardID string) (doorlock.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cards = append(f.cards, cardID)
	return doorlock.Result{"status": "added"}, nil
}

func TestDoorHandler(t *testing.T) {
	door := &fakeDoor{}
	handler := NewDoorHandler(door, testLogger())
	router := setupTestRouter()
	router.GET("/door/status", handler.Status)
	router.POST("/door/unlock", handler.Unlock)
	router.GET("/door/cards", handler.Cards)
	router.POST("/door/cards", handler.AddCard)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/door/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["doorLocked"])

	w = postJSON(router, "/door/cards", `{"card_id":" 04A1B2C3 "}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"04A1B2C3"}, door.cards)

	w = postJSON(router, "/door/cards", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	door.err = errors.New("dial tcp: i/o timeout")
	w = postJSON(router, "/door/unlock", ``)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "door_controller_error", decodeBody(t, w)["error"])
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeJobs struct {
	created int
	err     error
}

func (fakeJobs) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{"running": true, "job_count": 1}
}

func (f fakeJobs) RunCalendarJobNow(context.Context) (int, error) {
	return f.created, f.err
}

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		handler := NewHealthHandler(fakePinger{}, fakeJobs{}, config.BackendHR, "1.0.0", testLogger())
		router := setupTestRouter()
		router.GET("/health", handler.Health)
		router.GET("/jobs", handler.Jobs)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", decodeBody(t, w)["status"])

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs", nil))
		assert.Equal(t, true, decodeBody(t, w)["running"])
	})

	t.Run("store down", func(t *testing.T) {
		handler := NewHealthHandler(fakePinger{err: apperr.ErrDatabaseUnavailable}, nil, config.BackendQR, "1.0.0", testLogger())
		router := setupTestRouter()
		router.GET("/health", handler.Health)
		router.GET("/jobs", handler.Jobs)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "qr", decodeBody(t, w)["backend"])

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs", nil))
		assert.Equal(t, false, decodeBody(t, w)["running"])
	})
}

func TestHealthHandler_RunCalendarJob(t *testing.T) {
	tests := []struct {
		name   string
		jobs   JobReporter
		status int
	}{
		{"runs", fakeJobs{created: 2}, http.StatusOK},
		{"no scheduler", nil, http.StatusNotFound},
		{"no calendar", fakeJobs{err: apperr.NotFound("job", "calendar")}, http.StatusNotFound},
		{"store down", fakeJobs{err: apperr.ErrDatabaseUnavailable}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(fakePinger{}, tt.jobs, config.BackendHR, "1.0.0", testLogger())
			router := setupTestRouter()
			router.POST("/system/jobs/calendar", handler.RunCalendarJob)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/system/jobs/calendar", nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, float64(2), decodeBody(t, w)["days"])
			}
		})
	}
}

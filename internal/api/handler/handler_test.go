package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sachirademein17/mindcareapp-sub000/internal/chathub"
	"github.com/sachirademein17/mindcareapp-sub000/internal/config"
	"github.com/sachirademein17/mindcareapp-sub000/internal/models"
	"github.com/sachirademein17/mindcareapp-sub000/internal/storage"
)

type testEnv struct {
	router  *gin.Engine
	handler *Handler
	store   *storage.Service
	patient *models.User
	doctor  *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&models.User{}, &models.ChatMessage{}))

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	patient := &models.User{Name: "Amara Silva", Email: "amara@example.com", PasswordHash: string(hash), Role: "patient"}
	doctor := &models.User{Name: "Dr. Perera", Email: "perera@example.com", PasswordHash: string(hash), Role: "doctor"}
	require.NoError(t, gdb.Create(patient).Error)
	require.NoError(t, gdb.Create(doctor).Error)

	store := storage.NewService(gdb, nil, time.Minute)
	cfg := config.Config{Env: "dev", JWTSecret: "test-secret", JWTTTLHours: 1, StoreTimeout: time.Second, PushOnStoreFailure: true}

	hub := chathub.NewManager(store, chathub.Options{StoreTimeout: cfg.StoreTimeout, PushOnStoreFailure: cfg.PushOnStoreFailure})
	go hub.Run()
	t.Cleanup(hub.Stop)

	h := NewHandler(store, hub, cfg)
	return &testEnv{router: NewRouter(h), handler: h, store: store, patient: patient, doctor: doctor}
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.handler.generateToken(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestChatEndpoints_FailClosedWithoutToken(t *testing.T) {
	env := newTestEnv(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/chat/send/2"},
		{http.MethodGet, "/api/chat/messages/2"},
		{http.MethodGet, "/api/chat/list"},
		{http.MethodPut, "/api/chat/read/2"},
	} {
		w := env.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}

	w := env.do(t, http.MethodGet, "/api/chat/list", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.patient)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/chat/send/%d", env.doctor.ID), token,
		gin.H{"message": "hello doctor", "clientRef": "ref-abc"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.NotZero(t, msg.ID)
	assert.Equal(t, env.patient.ID, msg.SenderID)
	assert.Equal(t, env.doctor.ID, msg.ReceiverID)
	assert.Equal(t, "hello doctor", msg.Body)
	assert.Equal(t, "ref-abc", msg.ClientRef)
	assert.False(t, msg.IsRead)
}

func TestSendMessage_Rejections(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.patient)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/chat/send/%d", env.doctor.ID), token, gin.H{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/chat/send/9999", token, gin.H{"message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/chat/send/zero", token, gin.H{"message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMessages_MarksRead(t *testing.T) {
	env := newTestEnv(t)
	patientToken := env.token(t, env.patient)
	doctorToken := env.token(t, env.doctor)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/chat/send/%d", env.doctor.ID), patientToken, gin.H{"message": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/chat/messages/%d", env.patient.ID), doctorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var msgs []models.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead, "fetching history acknowledges receipt")
}

func TestChatList(t *testing.T) {
	env := newTestEnv(t)
	patientToken := env.token(t, env.patient)
	doctorToken := env.token(t, env.doctor)

	for i := 0; i < 3; i++ {
		w := env.do(t, http.MethodPost, fmt.Sprintf("/api/chat/send/%d", env.patient.ID), doctorToken, gin.H{"message": "checkup reminder"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/chat/list", patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sums []models.ConversationSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sums))
	require.Len(t, sums, 1)
	assert.Equal(t, env.doctor.ID, sums[0].Peer.ID)
	assert.EqualValues(t, 3, sums[0].UnreadCount)
	assert.False(t, sums[0].LastMessage.IsOwn)
}

func TestMarkAsRead(t *testing.T) {
	env := newTestEnv(t)
	patientToken := env.token(t, env.patient)
	doctorToken := env.token(t, env.doctor)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/chat/send/%d", env.patient.ID), doctorToken, gin.H{"message": "note"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/chat/read/%d", env.doctor.ID), patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated": 1}`, w.Body.String())

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/chat/read/%d", env.doctor.ID), patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated": 0}`, w.Body.String())
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"name": "Dr. Fernando", "email": "fernando@example.com", "password": "secret123",
		"role": "doctor", "specializations": []string{"psychiatry"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Token)
	assert.NotZero(t, created.User.ID)

	// Duplicate email is a conflict.
	w = env.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"name": "Imposter", "email": "fernando@example.com", "password": "secret123", "role": "doctor",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "fernando@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "fernando@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPrincipalRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	token := env.token(t, env.doctor)
	p, err := env.handler.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, env.doctor.ID, p.UserID)
	assert.Equal(t, "doctor", p.Role)

	_, err = env.handler.parseToken("garbage")
	assert.Error(t, err)
}

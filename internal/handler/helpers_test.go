package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kidcanvas/api/internal/auth"
	"github.com/kidcanvas/api/internal/middleware"
	"github.com/kidcanvas/api/internal/model"
	"github.com/kidcanvas/api/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const testSecret = "a-test-secret-that-is-long-enough!!"

var dbSeq int

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	codec  *auth.Codec
	store  *storage.LocalStore
}

// newTestEnv wires the full route table over an isolated in-memory SQLite
// database and a temp-dir file store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbSeq++
	dsn := fmt.Sprintf("file:handler%d?mode=memory&cache=shared", dbSeq)
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.ProcessType{},
		&model.Drawing{},
		&model.AIProcess{},
		&model.ProcessResult{},
		&model.ChatSession{},
		&model.ChatMessage{},
	))

	codec, err := auth.NewCodec(testSecret)
	require.NoError(t, err)

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()

	authHandler := NewAuthHandler(db, codec, logger, false, nil, "http://localhost:3000")
	userHandler := NewUserHandler(db, logger, false)
	drawingHandler := NewDrawingHandler(db, store, logger, false)
	processHandler := NewProcessHandler(db, nil, logger, false)
	chatHandler := NewChatHandler(db, logger, false)
	adminHandler := NewAdminHandler(db, logger, false)

	authRequired := middleware.AuthMiddleware(codec)

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", authRequired, authHandler.Me)

		users := api.Group("/users", authRequired)
		{
			users.GET("/me", userHandler.Me)
			users.PUT("/me", userHandler.UpdateMe)
			users.GET("/me/stats", userHandler.Stats)
		}

		drawings := api.Group("/drawings", authRequired)
		{
			drawings.POST("", drawingHandler.Upload)
			drawings.GET("", drawingHandler.List)
			drawings.GET("/:id", drawingHandler.Get)
			drawings.DELETE("/:id", drawingHandler.Delete)
		}

		processes := api.Group("/processes")
		{
			processes.GET("/types", processHandler.Types)
			processes.POST("", authRequired, processHandler.Create)
			processes.GET("", authRequired, processHandler.List)
			processes.GET("/:id", authRequired, processHandler.Get)
			processes.GET("/:id/results", authRequired, processHandler.Results)
		}

		chat := api.Group("/chat", authRequired)
		{
			chat.POST("/sessions", chatHandler.CreateSession)
			chat.GET("/sessions", chatHandler.ListSessions)
			chat.GET("/sessions/:sessionId/messages", chatHandler.Messages)
			chat.POST("/sessions/:sessionId/messages", chatHandler.SendMessage)
			chat.PATCH("/sessions/:sessionId/close", chatHandler.Close)
		}

		admin := api.Group("/admin", authRequired, middleware.RequireRole(model.RoleAdmin))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/stats", adminHandler.Stats)
		}
	}

	return &testEnv{router: r, db: db, codec: codec, store: store}
}

// register creates an account through the API and returns its token.
func (e *testEnv) register(t *testing.T, name, email, password, role string) string {
	t.Helper()
	body := map[string]interface{}{"name": name, "email": email, "password": password}
	if role != "" {
		body["role"] = role
	}
	w := e.doJSON(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
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

// uploadDrawing posts a small PNG-typed payload and returns the created row.
func (e *testEnv) uploadDrawing(t *testing.T, token string) model.Drawing {
	t.Helper()
	w := e.uploadRaw(t, token, []byte("fake image bytes"), "image/png")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var drawing model.Drawing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drawing))
	return drawing
}

func (e *testEnv) uploadRaw(t *testing.T, token string, content []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="drawing"; filename="drawing.png"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/drawings", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedProcessType(t *testing.T) model.ProcessType {
	t.Helper()
	pt := model.ProcessType{Name: "story", Description: "story generation"}
	require.NoError(t, e.db.Create(&pt).Error)
	return pt
}

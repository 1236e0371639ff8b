package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kidcanvas/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestProcessTypesIsPublic(t *testing.T) {
	env := newTestEnv(t)
	pt := env.seedProcessType(t)

	w := env.doJSON(t, http.MethodGet, "/api/processes/types", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), pt.Name)
}

func TestCreateProcess(t *testing.T) {
	env := newTestEnv(t)
	pt := env.seedProcessType(t)
	token := env.register(t, "Ana", "a@x.com", "secret1", "")
	drawing := env.uploadDrawing(t, token)

	w := env.doJSON(t, http.MethodPost, "/api/processes", token, map[string]interface{}{
		"drawingId":     drawing.ID,
		"processTypeId": pt.ID,
		"parameters":    map[string]string{"style": "watercolor"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var process model.AIProcess
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &process))
	assert.Equal(t, model.StatusPending, process.Status)
	assert.Equal(t, drawing.ID, process.DrawingID)
}

func TestCreateProcessAgainstForeignDrawing(t *testing.T) {
	env := newTestEnv(t)
	pt := env.seedProcessType(t)
	tokenA := env.register(t, "Ana", "a@x.com", "secret1", "")
	tokenB := env.register(t, "Ben", "b@x.com", "secret2", "")
	drawing := env.uploadDrawing(t, tokenA)

	w := env.doJSON(t, http.MethodPost, "/api/processes", tokenB, map[string]interface{}{
		"drawingId":     drawing.ID,
		"processTypeId": pt.ID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// No row may be inserted by the rejected create.
	var count int64
	require.NoError(t, env.db.Model(&model.AIProcess{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateProcessUnknownType(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Ana", "a@x.com", "secret1", "")
	drawing := env.uploadDrawing(t, token)

	w := env.doJSON(t, http.MethodPost, "/api/processes", token, map[string]interface{}{
		"drawingId":     drawing.ID,
		"processTypeId": 999,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown process type")
}

func TestProcessListAndResultsOwnership(t *testing.T) {
	env := newTestEnv(t)
	pt := env.seedProcessType(t)
	tokenA := env.register(t, "Ana", "a@x.com", "secret1", "")
	tokenB := env.register(t, "Ben", "b@x.com", "secret2", "")
	drawing := env.uploadDrawing(t, tokenA)

	w := env.doJSON(t, http.MethodPost, "/api/processes", tokenA, map[string]interface{}{
		"drawingId": drawing.ID, "processTypeId": pt.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var process model.AIProcess
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &process))

	// Simulate the external worker appending a result.
	result := model.ProcessResult{ProcessID: process.ID, Payload: datatypes.JSON(`{"story":"once upon a time"}`)}
	require.NoError(t, env.db.Create(&result).Error)

	w = env.doJSON(t, http.MethodGet, "/api/processes", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"typeName":"story"`)

	w = env.doJSON(t, http.MethodGet, "/api/processes/1/results", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "once upon a time")

	// The stranger sees nothing, and cannot reach the results either.
	w = env.doJSON(t, http.MethodGet, "/api/processes", tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = env.doJSON(t, http.MethodGet, "/api/processes/1/results", tokenB, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doJSON(t, http.MethodGet, "/api/processes/1", tokenB, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

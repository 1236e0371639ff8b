package handler

import (
	"net/http"
	"testing"

	"github.com/kidcanvas/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	childToken := env.register(t, "Kid", "kid@x.com", "secret1", "")
	adminToken := env.register(t, "Root", "root@x.com", "secret2", model.RoleAdmin)

	w := env.doJSON(t, http.MethodGet, "/api/admin/users", childToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.doJSON(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kid@x.com")
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	pt := env.seedProcessType(t)
	token := env.register(t, "Ana", "a@x.com", "secret1", "")
	adminToken := env.register(t, "Root", "root@x.com", "secret2", model.RoleAdmin)

	drawing := env.uploadDrawing(t, token)
	w := env.doJSON(t, http.MethodPost, "/api/processes", token, map[string]interface{}{
		"drawingId": drawing.ID, "processTypeId": pt.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.doJSON(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"users":2`)
	assert.Contains(t, w.Body.String(), `"drawings":1`)
	assert.Contains(t, w.Body.String(), `"PENDING":1`)
}

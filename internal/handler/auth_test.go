package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kidcanvas/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	token := env.register(t, "Ana", "a@x.com", "secret1", "")

	w := env.doJSON(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, model.RoleChild, user.Role)

	// Fresh login works too.
	w = env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "a@x.com", resp.User.Email)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "not-an-email", "password": "123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Errors []FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	fields := make(map[string]bool)
	for _, fe := range body.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["Email"])
	assert.True(t, fields["Password"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ana", "a@x.com", "secret1", "")

	w := env.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Imposter", "email": "a@x.com", "password": "secret2",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already registered")
}

func TestRegisterUnknownParent(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name": "Kid", "email": "kid@x.com", "password": "secret1", "parentId": 999,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "does not exist")
}

func TestLoginEnumerationSafety(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ana", "a@x.com", "secret1", "")

	// Unknown email and wrong password must produce byte-identical bodies
	// and the same status.
	unknown := env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@x.com", "password": "whatever",
	})
	wrong := env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "not-the-password",
	})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
}

func TestAuthMeIntrospection(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Ana", "a@x.com", "secret1", model.RoleParent)

	w := env.doJSON(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)
	assert.Contains(t, w.Body.String(), `"role":"PARENT"`)
}

func TestGenerateStateIsUnique(t *testing.T) {
	a, err := generateState()
	require.NoError(t, err)
	b, err := generateState()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Ana", "a@x.com", "secret1", "")

	w := env.doJSON(t, http.MethodPut, "/api/users/me", token, map[string]string{"name": "Ana Maria"})
	require.Equal(t, http.StatusOK, w.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Ana Maria", user.Name)
	// Email untouched when absent from the request.
	assert.Equal(t, "a@x.com", user.Email)
}

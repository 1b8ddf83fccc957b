package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Apikey test")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_CreateAndFilter(t *testing.T) {
	store := NewStore()
	r := NewRouter(store)

	w := do(t, r, http.MethodPost, "/v1/api/projects", `{"name":"Roadmap","team_id":"t1","is_open":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Len(t, created["id"], 16)

	do(t, r, http.MethodPost, "/v1/api/projects", `{"name":"Other","team_id":"t2"}`)

	w = do(t, r, http.MethodGet, "/v1/api/projects?team_id=t1&fields=id,name", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Roadmap", listed[0]["name"])

	w = do(t, r, http.MethodGet, "/v1/api/projects/"+created["id"].(string), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RejectsEmptyName(t *testing.T) {
	r := NewRouter(NewStore())
	w := do(t, r, http.MethodPost, "/v1/api/tasks", `{"name":"  ","project_id":"p"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RequiresAuth(t *testing.T) {
	r := NewRouter(NewStore())
	req := httptest.NewRequest(http.MethodGet, "/v1/api/projects", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_TeamAndUpgrade(t *testing.T) {
	store := NewStore()
	store.AddTeam("t1", "ACME", map[string]int{"projects_open": 5})
	r := NewRouter(store)

	w := do(t, r, http.MethodGet, "/v1/api/teams/t1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var team map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &team))
	assert.JSONEq(t, `{"projects_open":5}`, team["limits"].(string))

	store.FailUpgrades(true)
	w = do(t, r, http.MethodPatch, "/v1/teams/t1/plan", `{"plan_type":"trial"}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	store.FailUpgrades(false)
	w = do(t, r, http.MethodPatch, "/v1/teams/t1/plan", `{"plan_type":"trial"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, store.Upgrades())

	w = do(t, r, http.MethodGet, "/v1/api/teams/t1", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &team))
	assert.JSONEq(t, `{"projects_open":-1,"project_sections":-1,"tags":-1}`, team["limits"].(string))
}

func TestRouter_FailCreates(t *testing.T) {
	store := NewStore()
	store.FailCreates("comments")
	w := do(t, NewRouter(store), http.MethodPost, "/v1/api/comments", `{"body":"x","task_id":"t"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, store.Count("comments"))
}

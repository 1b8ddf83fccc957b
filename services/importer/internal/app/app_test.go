package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/taskbridge/internal/fakeapi"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSourcesCommand(t *testing.T) {
	out, err := execute(t, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "INPUT FIELDS")
	for _, code := range []string{"trello", "asana", "todoist", "monday"} {
		assert.Contains(t, out, code)
	}
	assert.Contains(t, out, "token,app_key")
}

func TestRunCommand_MissingCredentials(t *testing.T) {
	t.Setenv("SOURCE_TYPE", "trello")
	t.Setenv("SOURCE_TOKEN", "tok")
	t.Setenv("SOURCE_APP_KEY", "key")
	t.Setenv("TEAM_ID", "t1")
	t.Setenv("DESTINATION_TOKEN", "")

	_, err := execute(t, "run")
	assert.EqualError(t, err, "Missing 'destination.token'")
}

func TestHistoryCommand_RequiresTeam(t *testing.T) {
	t.Setenv("TEAM_ID", "")
	_, err := execute(t, "history")
	assert.EqualError(t, err, "team_id not configured")
}

func TestRunCommand_Monday(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := fakeapi.NewStore()
	store.AddTeam("t1", "ACME", map[string]int{"projects_open": -1, "project_sections": -1, "tags": -1})
	store.AddMember("t1", "me@acme.com", true)
	dest := httptest.NewServer(fakeapi.NewRouter(store))
	defer dest.Close()

	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "app-key", r.Header.Get("Authorization"))

		var data any
		switch q := req.Query; {
		case strings.Contains(q, "updates"):
			data = map[string]any{"items": []any{map[string]any{"updates": []any{
				map[string]any{"id": "u1", "text_body": "Looks good", "created_at": "2024-05-01T10:00:00Z"},
			}}}}
		case strings.Contains(q, "groups"):
			data = map[string]any{"boards": []any{map[string]any{"groups": []any{
				map[string]any{"id": "g1", "title": "This week", "position": "65536"},
			}}}}
		case strings.Contains(q, "items"):
			data = map[string]any{"boards": []any{map[string]any{"items": []any{
				map[string]any{"id": "11", "name": "Ship it", "group": map[string]any{"id": "g1"}},
			}}}}
		case strings.Contains(q, "users"):
			data = map[string]any{"users": []any{map[string]any{"id": 1, "name": "Ann", "email": "me@acme.com"}}}
		default:
			data = map[string]any{"boards": []any{map[string]any{"id": 100, "name": "Launch", "state": "active", "board_kind": "public"}}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer vendor.Close()

	t.Setenv("SOURCE_TYPE", "monday")
	t.Setenv("SOURCE_APP_KEY", "app-key")
	t.Setenv("SOURCE_API_URL", vendor.URL)
	t.Setenv("TEAM_ID", "t1")
	t.Setenv("DESTINATION_TOKEN", "u1_secret")
	t.Setenv("CUSTOM_API_HOST", dest.URL+"/v1/api")
	t.Setenv("LOG_LEVEL", "error")

	_, err := execute(t, "run")
	require.NoError(t, err)

	assert.Equal(t, 1, store.Count("projects"))
	assert.Equal(t, 1, store.Count("project_sections"))
	assert.Equal(t, 1, store.Count("tasks"))
	assert.Equal(t, 1, store.Count("comments"))

	// a second run reuses everything
	_, err = execute(t, "run")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Count("projects"))
	assert.Equal(t, 1, store.Count("tasks"))
}

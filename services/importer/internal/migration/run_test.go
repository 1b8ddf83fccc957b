package migration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestValidate(t *testing.T) {
	full := Credentials{DestinationToken: "d", TeamID: "t1", Token: "tok", AppKey: "key"}
	tests := []struct {
		name   string
		source string
		creds  Credentials
		field  string
	}{
		{"trello ok", "trello", full, ""},
		{"destination token", "asana", Credentials{TeamID: "t1", Token: "tok"}, "destination.token"},
		{"trello token", "trello", Credentials{DestinationToken: "d", TeamID: "t1", AppKey: "key"}, "source.token"},
		{"trello app key", "trello", Credentials{DestinationToken: "d", TeamID: "t1", Token: "tok"}, "source.app_key"},
		{"monday needs no token", "monday", Credentials{DestinationToken: "d", TeamID: "t1", AppKey: "key"}, ""},
		{"monday app key", "monday", Credentials{DestinationToken: "d", TeamID: "t1", Token: "tok"}, "source.app_key"},
		{"todoist team", "todoist", Credentials{DestinationToken: "d", Token: "tok"}, "team_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.source, tt.creds)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Equal(t, "Missing '"+tt.field+"'", err.Error())
		})
	}

	assert.Error(t, Validate("jira", full))
}

func TestRunImport_ValidatesBeforeNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	_, err := RunImport(context.Background(), "asana", Credentials{DestinationToken: "d", TeamID: "t1"},
		RunConfig{DestinationHost: srv.URL, SourceURL: srv.URL})
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestRunImport_Todoist(t *testing.T) {
	f := newFixture(t, nil)

	routes := map[string]any{
		"/projects": []any{
			map[string]any{"id": "inbox", "name": "Inbox", "is_inbox_project": true},
			map[string]any{"id": "p1", "name": "Roadmap"},
		},
		"/projects/inbox/collaborators": []any{},
		"/projects/p1/collaborators":    []any{},
		"/labels":                       []any{},
		"/sections":                     []any{map[string]any{"id": "s1", "name": "Backlog", "order": 1}},
		"/completed/get_all":            map[string]any{"items": []any{}},
		"/comments":                     []any{},
	}
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if r.URL.Path == "/tasks" {
			ok = true
			body = []any{map[string]any{"id": "k1", "content": "Write docs", "section_id": "s1"}}
			if r.URL.Query().Get("project_id") == "inbox" {
				body = []any{map[string]any{"id": "k9", "content": "Buy milk"}}
			}
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer vendor.Close()

	result, err := RunImport(context.Background(), "todoist",
		Credentials{DestinationToken: "u1_secret", TeamID: "t1", Token: "tok"},
		RunConfig{
			DestinationHost: f.baseURL,
			SourceURL:       vendor.URL,
			Timeout:         5 * time.Second,
			Logger:          zaptest.NewLogger(t),
		})
	require.NoError(t, err)
	assert.Equal(t, "Todoist", result.Source)
	assert.Zero(t, result.Failures)

	requireOne(t, f.named("projects", "Roadmap"))
	requireOne(t, f.named("projects", MiscProjectName))
	requireOne(t, f.named("tasks", "Write docs"))
	requireOne(t, f.named("tasks", "Buy milk"))
	requireOne(t, f.named("project_groups", "Imported from Todoist"))
}

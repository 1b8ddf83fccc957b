package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMondayFixture(t *testing.T) (*MondayProvider, *vendorServer) {
	t.Helper()
	srv := newVendorServer(t, map[string]any{
		"/": func(r *http.Request) any {
			raw, _ := io.ReadAll(r.Body)
			var req struct {
				Query string `json:"query"`
			}
			_ = json.Unmarshal(raw, &req)
			q := req.Query
			switch {
			case strings.Contains(q, "users"):
				return data(map[string]any{"users": []any{map[string]any{"id": 7, "name": "Bob", "email": "bob@example.com"}}})
			case strings.Contains(q, "groups"):
				return data(map[string]any{"boards": []any{map[string]any{"groups": []any{
					map[string]any{"id": "topics", "title": "Backlog", "archived": false, "position": "65536.5"},
				}}}})
			case strings.Contains(q, "updates"):
				return data(map[string]any{"items": []any{map[string]any{"updates": []any{
					map[string]any{"id": "u2", "text_body": "second", "created_at": "2024-04-02T00:00:00Z"},
					map[string]any{"id": "u1", "text_body": "first", "created_at": "2024-04-01T00:00:00Z",
						"replies": []any{map[string]any{"id": "r1", "text_body": "reply", "created_at": "2024-04-01T01:00:00Z"}}},
				}}}})
			case strings.Contains(q, "items"):
				return data(map[string]any{"boards": []any{map[string]any{"items": []any{
					map[string]any{
						"id": "i1", "name": "Write docs", "group": map[string]any{"id": "topics"},
						"column_values": []any{
							map[string]any{"type": "date", "text": "2024-05-01"},
							map[string]any{"type": "people", "value": `{"personsAndTeams":[{"id":7,"kind":"person"}]}`},
						},
						"subitems": []any{map[string]any{"id": "i2", "name": "outline", "column_values": []any{
							map[string]any{"type": "date", "text": "2024-05-01 10:00"},
							map[string]any{"type": "date", "text": "2024-05-02"},
						}}},
					},
				}}}})
			case strings.Contains(q, "boards"):
				return data(map[string]any{"boards": []any{
					map[string]any{"id": "1", "name": "Roadmap", "state": "active", "board_kind": "public"},
					map[string]any{"id": "2", "name": "Old", "state": "archived", "board_kind": "private"},
				}})
			}
			return map[string]any{"errors": []any{map[string]any{"message": "unexpected query"}}}
		},
	})
	return NewMonday(Credentials{AppKey: "key"}, Options{BaseURL: srv.URL}), srv
}

func TestMonday_Projects(t *testing.T) {
	p, srv := newMondayFixture(t)
	ctx := context.Background()

	projects, err := p.Projects(ctx, "monday")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.True(t, projects[0].Open)
	assert.False(t, projects[1].Open)
	assert.True(t, projects[1].Archived)
	assert.Equal(t, "key", srv.lastAuth())

	sections, err := p.Sections(ctx, "1")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, 65536.5, sections[0].Position)

	users, err := p.Users(ctx, "monday")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "7", users[0].ID)
}

func TestMonday_TasksWithSubitems(t *testing.T) {
	p, _ := newMondayFixture(t)
	tasks, err := p.Tasks(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "topics", tasks[0].SectionID)
	require.NotNil(t, tasks[0].DueAt)
	assert.True(t, tasks[0].AllDay)
	assert.Equal(t, "7", tasks[0].AssigneeID)

	assert.Equal(t, "topics", tasks[1].SectionID)
	assert.Nil(t, tasks[1].DueAt, "two date columns leave the due date unset")
	assert.Equal(t, 2.0, tasks[1].Position)
}

func TestMonday_CommentsOldestFirst(t *testing.T) {
	p, _ := newMondayFixture(t)
	comments, err := p.Comments(context.Background(), "i1")
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, []string{"first", "reply", "second"},
		[]string{comments[0].Body, comments[1].Body, comments[2].Body})
}

func TestMonday_GraphQLError(t *testing.T) {
	srv := newVendorServer(t, map[string]any{
		"/": map[string]any{"error_message": "not authenticated"},
	})
	p := NewMonday(Credentials{AppKey: "bad"}, Options{BaseURL: srv.URL})
	_, err := p.Projects(context.Background(), "monday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
}

package migration

import (
	"context"
	"math/rand"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stoik/taskbridge/internal/fakeapi"
	"github.com/stoik/taskbridge/internal/models"
	"github.com/stoik/taskbridge/services/importer/internal/destination"
)

// memSource is an in-memory foreign account
type memSource struct {
	workspaces []models.Workspace
	users      []models.User
	tags       []models.Tag
	projects   []models.Project
	sections   map[string][]models.Section
	tasks      map[string][]models.Task
	loose      []models.Task
	comments   map[string][]models.Comment

	sectionsErr error
	commentsErr error
}

func newMemSource() *memSource {
	return &memSource{
		workspaces: []models.Workspace{{ID: "w1", Name: "Main"}},
		sections:   make(map[string][]models.Section),
		tasks:      make(map[string][]models.Task),
		comments:   make(map[string][]models.Comment),
	}
}

func (m *memSource) Name() string { return "Fake" }

func (m *memSource) Workspaces(context.Context) ([]models.Workspace, error) {
	return m.workspaces, nil
}

func (m *memSource) Users(context.Context, string) ([]models.User, error) { return m.users, nil }
func (m *memSource) Tags(context.Context, string) ([]models.Tag, error)   { return m.tags, nil }

func (m *memSource) Projects(context.Context, string) ([]models.Project, error) {
	return m.projects, nil
}

func (m *memSource) Sections(_ context.Context, projectID string) ([]models.Section, error) {
	if m.sectionsErr != nil {
		return nil, m.sectionsErr
	}
	return m.sections[projectID], nil
}

func (m *memSource) Tasks(_ context.Context, projectID string) ([]models.Task, error) {
	return m.tasks[projectID], nil
}

func (m *memSource) LooseTasks(context.Context, string) ([]models.Task, error) {
	return m.loose, nil
}

func (m *memSource) Comments(_ context.Context, taskID string) ([]models.Comment, error) {
	if m.commentsErr != nil {
		return nil, m.commentsErr
	}
	return m.comments[taskID], nil
}

type fixture struct {
	store   *fakeapi.Store
	dest    *destination.Client
	baseURL string
	me      string
}

func newFixture(t *testing.T, limits map[string]int) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := fakeapi.NewStore()
	store.AddTeam("t1", "ACME", unlimited(limits))
	me := store.AddMember("t1", "me@acme.com", true)

	srv := httptest.NewServer(fakeapi.NewRouter(store))
	t.Cleanup(srv.Close)
	baseURL := srv.URL + "/v1/api"
	return &fixture{
		store:   store,
		dest:    destination.NewClient(destination.Config{BaseURL: baseURL, Token: "u1_secret"}),
		baseURL: baseURL,
		me:      me,
	}
}

// unlimited lifts every plan limit not named in overrides
func unlimited(overrides map[string]int) map[string]int {
	limits := map[string]int{LimitOpenProjects: Unlimited, LimitProjectSections: Unlimited, LimitTags: Unlimited}
	for k, v := range overrides {
		limits[k] = v
	}
	return limits
}

func (f *fixture) pipeline(t *testing.T, src *memSource) *Pipeline {
	return NewPipeline(f.dest, src, Options{
		TeamID: "t1",
		Rand:   rand.New(rand.NewSource(1)),
		Logger: zaptest.NewLogger(t),
	})
}

func (f *fixture) run(t *testing.T, src *memSource) (*Result, error) {
	t.Helper()
	return f.pipeline(t, src).Run(context.Background())
}

// named returns the records of resource whose name (or body) equals name
func (f *fixture) named(resource, name string) []map[string]any {
	var out []map[string]any
	for _, r := range f.store.Records(resource) {
		if r["name"] == name || r["body"] == name {
			out = append(out, r)
		}
	}
	return out
}

func requireOne(t *testing.T, records []map[string]any) map[string]any {
	t.Helper()
	require.Len(t, records, 1)
	return records[0]
}

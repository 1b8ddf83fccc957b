package destination

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/taskbridge/internal/apiclient"
	"github.com/stoik/taskbridge/internal/fakeapi"
	"github.com/stoik/taskbridge/internal/models"
)

func newTestClient(t *testing.T) (*Client, *fakeapi.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := fakeapi.NewStore()
	server := httptest.NewServer(fakeapi.NewRouter(store))
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/v1/api", Token: "user1_secret"}), store
}

func TestHost(t *testing.T) {
	assert.Equal(t, ProductionHost, Host("", false))
	assert.Equal(t, DevelopmentHost, Host("", true))
	assert.Equal(t, "http://localhost:8888/v1/api", Host("http://localhost:8888/v1/api", true))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestClient_TokenUserID(t *testing.T) {
	c := NewClient(Config{Token: "abc123_secret"})
	assert.Equal(t, "abc123", c.TokenUserID())
	assert.Empty(t, NewClient(Config{Token: "plain"}).TokenUserID())
}

func TestClient_ProjectRoundTrip(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateProject(ctx, models.DestProject{Name: "Roadmap", TeamID: "t1", IsOpen: true})
	require.NoError(t, err)
	assert.Len(t, created.ID, 16)
	assert.Equal(t, 1, store.Count("projects"))

	found, err := c.ListProjects(ctx, Params{"team_id": "t1", "name": "Roadmap", "limit": "1"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	byID, err := c.GetProject(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, byID.IsOpen)
}

func TestClient_CreateRejected(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.CreateTask(context.Background(), models.DestTask{Name: "", ProjectID: "p1"})
	require.Error(t, err)
	assert.True(t, apiclient.IsStatus(err, 400))
}

func TestClient_TeamAndTrial(t *testing.T) {
	c, store := newTestClient(t)
	store.AddTeam("t1", "ACME", map[string]int{"tags": 2})
	ctx := context.Background()

	team, err := c.GetTeam(ctx, "t1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":2}`, team.Limits)

	store.FailUpgrades(true)
	assert.Error(t, c.UpgradeToTrial(ctx, "t1", 1))

	store.FailUpgrades(false)
	require.NoError(t, c.UpgradeToTrial(ctx, "t1", 0))
	assert.Equal(t, 2, store.Upgrades())
}

// Package destination is the CRUD client of the destination task-management
// REST API.
package destination

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stoik/taskbridge/internal/apiclient"
	"github.com/stoik/taskbridge/internal/models"
)

const (
	ProductionHost  = "https://api4.nozbe.com/v1/api"
	DevelopmentHost = "https://devapi4.nozbe.com/v1/api"
)

// Host picks the API host: an explicit custom host wins, then the
// development host when dev is set, then production
func Host(custom string, dev bool) string {
	switch {
	case custom != "":
		return custom
	case dev:
		return DevelopmentHost
	default:
		return ProductionHost
	}
}

// NewID returns a client-generated 16 character record id
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Params are query filters of a list call (team_id, name, limit, fields, ...)
type Params map[string]string

func (p Params) values() url.Values {
	v := make(url.Values, len(p))
	for key, value := range p {
		if value != "" {
			v.Set(key, value)
		}
	}
	return v
}

// Config configures the client
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the destination API with an API key
type Client struct {
	api     *apiclient.Client
	planURL string
	token   string
}

// NewClient creates a destination client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ProductionHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = apiclient.DefaultTimeout
	}
	api := apiclient.New(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})
	api.SetHeader("Authorization", "Apikey "+cfg.Token)
	api.SetHeader("API-Version", "current")

	return &Client{
		api:     api,
		planURL: strings.TrimSuffix(api.BaseURL(), "/api") + "/teams",
		token:   cfg.Token,
	}
}

// TokenUserID returns the user id encoded in the API key prefix, if any
func (c *Client) TokenUserID() string {
	if i := strings.Index(c.token, "_"); i > 0 {
		return c.token[:i]
	}
	return ""
}

func list[T any](ctx context.Context, c *Client, resource string, params Params) ([]T, error) {
	var out []T
	if err := c.api.Get(ctx, resource, params.values(), &out); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", resource, err)
	}
	return out, nil
}

func create[T any](ctx context.Context, c *Client, resource string, record T) (T, error) {
	var out T
	if err := c.api.Post(ctx, resource, record, &out); err != nil {
		return out, fmt.Errorf("failed to create %s: %w", resource, err)
	}
	return out, nil
}

func (c *Client) ListProjects(ctx context.Context, params Params) ([]models.DestProject, error) {
	return list[models.DestProject](ctx, c, "projects", params)
}

func (c *Client) GetProject(ctx context.Context, id string) (models.DestProject, error) {
	var out models.DestProject
	if err := c.api.Get(ctx, "projects/"+url.PathEscape(id), nil, &out); err != nil {
		return out, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	return out, nil
}

func (c *Client) CreateProject(ctx context.Context, p models.DestProject) (models.DestProject, error) {
	if p.ID == "" {
		p.ID = NewID()
	}
	return create(ctx, c, "projects", p)
}

func (c *Client) ListSections(ctx context.Context, params Params) ([]models.DestSection, error) {
	return list[models.DestSection](ctx, c, "project_sections", params)
}

func (c *Client) CreateSection(ctx context.Context, s models.DestSection) (models.DestSection, error) {
	if s.ID == "" {
		s.ID = NewID()
	}
	return create(ctx, c, "project_sections", s)
}

func (c *Client) ListTasks(ctx context.Context, params Params) ([]models.DestTask, error) {
	return list[models.DestTask](ctx, c, "tasks", params)
}

func (c *Client) CreateTask(ctx context.Context, t models.DestTask) (models.DestTask, error) {
	if t.ID == "" {
		t.ID = NewID()
	}
	return create(ctx, c, "tasks", t)
}

func (c *Client) ListComments(ctx context.Context, params Params) ([]models.DestComment, error) {
	return list[models.DestComment](ctx, c, "comments", params)
}

func (c *Client) CreateComment(ctx context.Context, cm models.DestComment) (models.DestComment, error) {
	if cm.ID == "" {
		cm.ID = NewID()
	}
	return create(ctx, c, "comments", cm)
}

func (c *Client) ListTags(ctx context.Context, params Params) ([]models.DestTag, error) {
	return list[models.DestTag](ctx, c, "tags", params)
}

func (c *Client) CreateTag(ctx context.Context, t models.DestTag) (models.DestTag, error) {
	if t.ID == "" {
		t.ID = NewID()
	}
	return create(ctx, c, "tags", t)
}

func (c *Client) ListTagAssignments(ctx context.Context, params Params) ([]models.DestTagAssignment, error) {
	return list[models.DestTagAssignment](ctx, c, "tag_assignments", params)
}

func (c *Client) CreateTagAssignment(ctx context.Context, a models.DestTagAssignment) (models.DestTagAssignment, error) {
	if a.ID == "" {
		a.ID = NewID()
	}
	return create(ctx, c, "tag_assignments", a)
}

func (c *Client) ListProjectGroups(ctx context.Context, params Params) ([]models.DestProjectGroup, error) {
	return list[models.DestProjectGroup](ctx, c, "project_groups", params)
}

func (c *Client) CreateProjectGroup(ctx context.Context, g models.DestProjectGroup) (models.DestProjectGroup, error) {
	if g.ID == "" {
		g.ID = NewID()
	}
	return create(ctx, c, "project_groups", g)
}

func (c *Client) ListGroupAssignments(ctx context.Context, params Params) ([]models.DestGroupAssignment, error) {
	return list[models.DestGroupAssignment](ctx, c, "group_assignments", params)
}

func (c *Client) CreateGroupAssignment(ctx context.Context, a models.DestGroupAssignment) (models.DestGroupAssignment, error) {
	if a.ID == "" {
		a.ID = NewID()
	}
	return create(ctx, c, "group_assignments", a)
}

func (c *Client) ListTeamMembers(ctx context.Context, params Params) ([]models.DestTeamMember, error) {
	return list[models.DestTeamMember](ctx, c, "team_members", params)
}

func (c *Client) ListUsers(ctx context.Context, params Params) ([]models.DestUser, error) {
	return list[models.DestUser](ctx, c, "users", params)
}

// GetTeam fetches a team with its plan limits
func (c *Client) GetTeam(ctx context.Context, id string) (models.DestTeam, error) {
	var out models.DestTeam
	if err := c.api.Get(ctx, "teams/"+url.PathEscape(id), nil, &out); err != nil {
		return out, fmt.Errorf("failed to get team %s: %w", id, err)
	}
	return out, nil
}

// UpgradeToTrial switches the team to a non-recurring trial plan
func (c *Client) UpgradeToTrial(ctx context.Context, teamID string, members int) error {
	if members < 1 {
		members = 1
	}
	body := models.PlanRequest{MembersLen: members, PlanType: "trial"}
	target := c.planURL + "/" + url.PathEscape(teamID) + "/plan"
	if err := c.api.Patch(ctx, target, body, nil); err != nil {
		return fmt.Errorf("failed to subscribe trial: %w", err)
	}
	return nil
}

package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/stoik/taskbridge/internal/apiclient"
	"github.com/stoik/taskbridge/internal/models"
)

const (
	asanaAPI      = "https://app.asana.com/api/1.0"
	asanaPageSize = 100
)

type asanaRef struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

type asanaUser struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type asanaTag struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type asanaProject struct {
	GID      string `json:"gid"`
	Name     string `json:"name"`
	Notes    string `json:"notes"`
	Color    string `json:"color"`
	Archived bool   `json:"archived"`
}

type asanaTask struct {
	GID         string     `json:"gid"`
	Name        string     `json:"name"`
	Notes       string     `json:"notes"`
	CreatedAt   string     `json:"created_at"`
	DueAt       string     `json:"due_at"`
	DueOn       string     `json:"due_on"`
	Completed   bool       `json:"completed"`
	CompletedAt string     `json:"completed_at"`
	Assignee    *asanaRef  `json:"assignee"`
	Tags        []asanaRef `json:"tags"`
	Projects    []asanaRef `json:"projects"`
	Memberships []struct {
		Section *asanaRef `json:"section"`
	} `json:"memberships"`
}

type asanaStory struct {
	GID       string `json:"gid"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	CreatedBy *struct {
		Email string `json:"email"`
	} `json:"created_by"`
}

const asanaTaskFields = "name,due_at,due_on,completed,completed_at,assignee,tags,projects,memberships.section"

// AsanaProvider reads workspaces, projects and tasks through the Asana REST API
type AsanaProvider struct {
	api *apiclient.Client
}

// NewAsana creates an Asana client authenticated with a personal access token
func NewAsana(creds Credentials, opts Options) *AsanaProvider {
	return &AsanaProvider{
		api: apiclient.New(opts.baseURL(asanaAPI), bearerClient(creds.Token, opts)),
	}
}

func (a *AsanaProvider) Name() string { return "Asana" }

// asanaList follows offset pagination until next_page is empty
func asanaList[T any](ctx context.Context, a *AsanaProvider, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", strconv.Itoa(asanaPageSize))

	var out []T
	for {
		var page struct {
			Data     []T `json:"data"`
			NextPage *struct {
				Offset string `json:"offset"`
			} `json:"next_page"`
		}
		if err := a.api.Get(ctx, path, query, &page); err != nil {
			return nil, fmt.Errorf("failed to list asana %s: %w", path, err)
		}
		out = append(out, page.Data...)
		if page.NextPage == nil || page.NextPage.Offset == "" {
			return out, nil
		}
		query.Set("offset", page.NextPage.Offset)
	}
}

func (a *AsanaProvider) Workspaces(ctx context.Context) ([]models.Workspace, error) {
	refs, err := asanaList[asanaRef](ctx, a, "workspaces", nil)
	if err != nil {
		return nil, err
	}
	workspaces := make([]models.Workspace, 0, len(refs))
	for _, r := range refs {
		workspaces = append(workspaces, models.Workspace{ID: r.GID, Name: r.Name})
	}
	return workspaces, nil
}

func (a *AsanaProvider) Users(ctx context.Context, workspaceID string) ([]models.User, error) {
	raw, err := asanaList[asanaUser](ctx, a, "workspaces/"+url.PathEscape(workspaceID)+"/users",
		url.Values{"opt_fields": {"name,email"}})
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(raw))
	for _, u := range raw {
		users = append(users, models.User{ID: u.GID, Name: u.Name, Emails: []string{u.Email}})
	}
	return users, nil
}

func (a *AsanaProvider) Tags(ctx context.Context, workspaceID string) ([]models.Tag, error) {
	raw, err := asanaList[asanaTag](ctx, a, "workspaces/"+url.PathEscape(workspaceID)+"/tags",
		url.Values{"opt_fields": {"name,color"}})
	if err != nil {
		return nil, err
	}
	tags := make([]models.Tag, 0, len(raw))
	for _, t := range raw {
		tags = append(tags, models.Tag{ID: t.GID, Name: t.Name, Color: t.Color})
	}
	return tags, nil
}

func (a *AsanaProvider) Projects(ctx context.Context, workspaceID string) ([]models.Project, error) {
	raw, err := asanaList[asanaProject](ctx, a, "projects",
		url.Values{"workspace": {workspaceID}, "opt_fields": {"name,notes,color,archived"}})
	if err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(raw))
	for _, p := range raw {
		projects = append(projects, models.Project{
			ID:          p.GID,
			Name:        p.Name,
			Description: p.Notes,
			Color:       p.Color,
			Open:        true,
			Archived:    p.Archived,
		})
	}
	return projects, nil
}

// Sections skips the "Untitled section" Asana creates implicitly for every project
func (a *AsanaProvider) Sections(ctx context.Context, projectID string) ([]models.Section, error) {
	raw, err := asanaList[asanaRef](ctx, a, "projects/"+url.PathEscape(projectID)+"/sections",
		url.Values{"opt_fields": {"name"}})
	if err != nil {
		return nil, err
	}
	sections := make([]models.Section, 0, len(raw))
	for i, s := range raw {
		if s.Name == "Untitled section" {
			continue
		}
		sections = append(sections, models.Section{
			ID:        s.GID,
			ProjectID: projectID,
			Name:      s.Name,
			Position:  float64(i + 1),
		})
	}
	return sections, nil
}

func (a *AsanaProvider) Tasks(ctx context.Context, projectID string) ([]models.Task, error) {
	raw, err := asanaList[asanaTask](ctx, a, "projects/"+url.PathEscape(projectID)+"/tasks",
		url.Values{"opt_fields": {asanaTaskFields}})
	if err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(raw))
	for i, t := range raw {
		tasks = append(tasks, asanaToTask(t, projectID, i))
	}
	return tasks, nil
}

// LooseTasks returns the tasks assigned to the token owner that sit in no project
func (a *AsanaProvider) LooseTasks(ctx context.Context, workspaceID string) ([]models.Task, error) {
	var me struct {
		Data asanaRef `json:"data"`
	}
	if err := a.api.Get(ctx, "users/me", nil, &me); err != nil {
		return nil, fmt.Errorf("failed to get asana user: %w", err)
	}
	raw, err := asanaList[asanaTask](ctx, a, "tasks", url.Values{
		"workspace":  {workspaceID},
		"assignee":   {me.Data.GID},
		"opt_fields": {asanaTaskFields},
	})
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	for i, t := range raw {
		if len(t.Projects) > 0 {
			continue
		}
		tasks = append(tasks, asanaToTask(t, "", i))
	}
	return tasks, nil
}

func asanaToTask(t asanaTask, projectID string, index int) models.Task {
	task := models.Task{
		ID:        t.GID,
		ProjectID: projectID,
		Name:      t.Name,
		Position:  float64(index + 1),
	}
	if t.DueAt != "" {
		task.DueAt, _ = parseTime(t.DueAt)
	} else {
		task.DueAt, task.AllDay = parseTime(t.DueOn)
	}
	if t.Completed {
		task.CompletedAt, _ = parseTime(t.CompletedAt)
	}
	if t.Assignee != nil {
		task.AssigneeID = t.Assignee.GID
	}
	for _, tag := range t.Tags {
		task.Tags = append(task.Tags, tag.GID)
	}
	if len(t.Memberships) > 0 && t.Memberships[0].Section != nil {
		task.SectionID = t.Memberships[0].Section.GID
	}
	return task
}

// Comments renders the task notes and subtasks as leading comments, then
// appends the comment stories
func (a *AsanaProvider) Comments(ctx context.Context, taskID string) ([]models.Comment, error) {
	var full struct {
		Data asanaTask `json:"data"`
	}
	if err := a.api.Get(ctx, "tasks/"+url.PathEscape(taskID), url.Values{"opt_fields": {"notes,created_at"}}, &full); err != nil {
		return nil, fmt.Errorf("failed to get asana task: %w", err)
	}
	created, _ := parseTime(full.Data.CreatedAt)

	var comments []models.Comment
	lead := func(id, body string) {
		c := models.Comment{ID: id, TaskID: taskID, Body: body}
		if created != nil {
			c.CreatedAt = *created
		}
		comments = append(comments, c)
	}
	if full.Data.Notes != "" {
		lead(taskID+"-notes", full.Data.Notes)
	}

	subtasks, err := asanaList[asanaTask](ctx, a, "tasks/"+url.PathEscape(taskID)+"/subtasks",
		url.Values{"opt_fields": {"name,completed"}})
	if err != nil {
		return nil, err
	}
	if len(subtasks) > 0 {
		body := ""
		for i, s := range subtasks {
			if i > 0 {
				body += "\n"
			}
			body += checklistLine(s.Name, s.Completed)
		}
		lead(taskID+"-subtasks", body)
	}

	stories, err := asanaList[asanaStory](ctx, a, "tasks/"+url.PathEscape(taskID)+"/stories",
		url.Values{"opt_fields": {"type,text,created_at,created_by.email"}})
	if err != nil {
		return nil, err
	}
	for _, s := range stories {
		if s.Type != "comment" {
			continue
		}
		c := models.Comment{ID: s.GID, TaskID: taskID, Body: s.Text}
		if at, _ := parseTime(s.CreatedAt); at != nil {
			c.CreatedAt = *at
		}
		if s.CreatedBy != nil {
			c.AuthorEmail = s.CreatedBy.Email
		}
		comments = append(comments, c)
	}
	return comments, nil
}

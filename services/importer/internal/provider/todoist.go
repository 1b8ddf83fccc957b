package provider

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/stoik/taskbridge/internal/apiclient"
	"github.com/stoik/taskbridge/internal/models"
)

const (
	todoistAPI     = "https://api.todoist.com/rest/v2"
	todoistSyncAPI = "https://api.todoist.com/sync/v9"
	todoistInbox   = "Inbox"
)

type todoistProject struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Color          string `json:"color"`
	IsFavorite     bool   `json:"is_favorite"`
	IsInboxProject bool   `json:"is_inbox_project"`
}

type todoistDue struct {
	Date     string `json:"date"`
	Datetime string `json:"datetime"`
}

type todoistTask struct {
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	Description string      `json:"description"`
	ProjectID   string      `json:"project_id"`
	SectionID   string      `json:"section_id"`
	Order       float64     `json:"order"`
	Due         *todoistDue `json:"due"`
	AssigneeID  string      `json:"assignee_id"`
	Labels      []string    `json:"labels"`
	CreatedAt   string      `json:"created_at"`
}

type todoistCompleted struct {
	ID            string `json:"id"`
	TaskID        string `json:"task_id"`
	Content       string `json:"content"`
	SectionID     string `json:"section_id"`
	CompletedAt   string `json:"completed_at"`
	CompletedDate string `json:"completed_date"`
}

type todoistComment struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	PostedAt string `json:"posted_at"`
}

// TodoistProvider reads projects through the REST API and completed items
// through the sync API. The Inbox project is exposed as loose tasks.
type TodoistProvider struct {
	api  *apiclient.Client
	sync *apiclient.Client

	mu           sync.Mutex
	inboxID      string
	descriptions map[string]todoistTask
}

// NewTodoist creates a Todoist client authenticated with an API token. A
// BaseURL override serves both the REST and the sync endpoints.
func NewTodoist(creds Credentials, opts Options) *TodoistProvider {
	httpClient := bearerClient(creds.Token, opts)
	return &TodoistProvider{
		api:          apiclient.New(opts.baseURL(todoistAPI), httpClient),
		sync:         apiclient.New(opts.baseURL(todoistSyncAPI), httpClient),
		descriptions: make(map[string]todoistTask),
	}
}

func (t *TodoistProvider) Name() string { return "Todoist" }

func (t *TodoistProvider) Workspaces(context.Context) ([]models.Workspace, error) {
	return []models.Workspace{{ID: "todoist", Name: "Todoist"}}, nil
}

func (t *TodoistProvider) projects(ctx context.Context) ([]todoistProject, error) {
	var projects []todoistProject
	if err := t.api.Get(ctx, "projects", nil, &projects); err != nil {
		return nil, fmt.Errorf("failed to get todoist projects: %w", err)
	}
	t.mu.Lock()
	for _, p := range projects {
		if p.IsInboxProject || p.Name == todoistInbox {
			t.inboxID = p.ID
		}
	}
	t.mu.Unlock()
	return projects, nil
}

// Users returns the collaborators of every project, deduplicated
func (t *TodoistProvider) Users(ctx context.Context, _ string) ([]models.User, error) {
	projects, err := t.projects(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var users []models.User
	for _, p := range projects {
		var collaborators []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := t.api.Get(ctx, "projects/"+url.PathEscape(p.ID)+"/collaborators", nil, &collaborators); err != nil {
			return nil, fmt.Errorf("failed to get todoist collaborators: %w", err)
		}
		for _, c := range collaborators {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			users = append(users, models.User{ID: c.ID, Name: c.Name, Emails: []string{c.Email}})
		}
	}
	return users, nil
}

// Tags returns personal labels. Tasks reference labels by name.
func (t *TodoistProvider) Tags(ctx context.Context, _ string) ([]models.Tag, error) {
	var labels []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := t.api.Get(ctx, "labels", nil, &labels); err != nil {
		return nil, fmt.Errorf("failed to get todoist labels: %w", err)
	}
	tags := make([]models.Tag, 0, len(labels))
	for _, l := range labels {
		tags = append(tags, models.Tag{ID: l.ID, Name: l.Name, Color: l.Color})
	}
	return tags, nil
}

// Projects returns every project except the Inbox
func (t *TodoistProvider) Projects(ctx context.Context, _ string) ([]models.Project, error) {
	raw, err := t.projects(ctx)
	if err != nil {
		return nil, err
	}
	var projects []models.Project
	for _, p := range raw {
		if p.IsInboxProject || p.Name == todoistInbox {
			continue
		}
		projects = append(projects, models.Project{
			ID:       p.ID,
			Name:     p.Name,
			Color:    p.Color,
			Favorite: p.IsFavorite,
			Open:     true,
		})
	}
	return projects, nil
}

func (t *TodoistProvider) Sections(ctx context.Context, projectID string) ([]models.Section, error) {
	var raw []struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Order float64 `json:"order"`
	}
	if err := t.api.Get(ctx, "sections", url.Values{"project_id": {projectID}}, &raw); err != nil {
		return nil, fmt.Errorf("failed to get todoist sections: %w", err)
	}
	sections := make([]models.Section, 0, len(raw))
	for _, s := range raw {
		sections = append(sections, models.Section{ID: s.ID, ProjectID: projectID, Name: s.Name, Position: s.Order})
	}
	return sections, nil
}

// Tasks returns completed items from the sync API followed by active tasks
func (t *TodoistProvider) Tasks(ctx context.Context, projectID string) ([]models.Task, error) {
	var completed struct {
		Items []todoistCompleted `json:"items"`
	}
	if err := t.sync.Get(ctx, "completed/get_all", url.Values{"project_id": {projectID}}, &completed); err != nil {
		return nil, fmt.Errorf("failed to get todoist completed items: %w", err)
	}

	var tasks []models.Task
	for _, c := range completed.Items {
		id := c.TaskID
		if id == "" {
			id = c.ID
		}
		done := c.CompletedAt
		if done == "" {
			done = c.CompletedDate
		}
		task := models.Task{ID: id, ProjectID: projectID, SectionID: c.SectionID, Name: c.Content, Position: 1}
		task.CompletedAt, _ = parseTime(done)
		tasks = append(tasks, task)
	}

	active, err := t.active(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, a := range active {
		tasks = append(tasks, t.toTask(a, projectID))
	}
	return tasks, nil
}

// LooseTasks returns the active tasks of the Inbox
func (t *TodoistProvider) LooseTasks(ctx context.Context, _ string) ([]models.Task, error) {
	t.mu.Lock()
	inbox := t.inboxID
	t.mu.Unlock()
	if inbox == "" {
		if _, err := t.projects(ctx); err != nil {
			return nil, err
		}
		t.mu.Lock()
		inbox = t.inboxID
		t.mu.Unlock()
	}
	if inbox == "" {
		return nil, nil
	}

	active, err := t.active(ctx, inbox)
	if err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(active))
	for _, a := range active {
		tasks = append(tasks, t.toTask(a, ""))
	}
	return tasks, nil
}

func (t *TodoistProvider) active(ctx context.Context, projectID string) ([]todoistTask, error) {
	var raw []todoistTask
	if err := t.api.Get(ctx, "tasks", url.Values{"project_id": {projectID}}, &raw); err != nil {
		return nil, fmt.Errorf("failed to get todoist tasks: %w", err)
	}
	t.mu.Lock()
	for _, task := range raw {
		t.descriptions[task.ID] = task
	}
	t.mu.Unlock()
	return raw, nil
}

func (t *TodoistProvider) toTask(raw todoistTask, projectID string) models.Task {
	task := models.Task{
		ID:         raw.ID,
		ProjectID:  projectID,
		SectionID:  raw.SectionID,
		Name:       raw.Content,
		Position:   raw.Order,
		AssigneeID: raw.AssigneeID,
		Tags:       raw.Labels,
	}
	if raw.Due != nil {
		if raw.Due.Datetime != "" {
			task.DueAt, _ = parseTime(raw.Due.Datetime)
		} else {
			task.DueAt, task.AllDay = parseTime(raw.Due.Date)
		}
	}
	return task
}

// Comments returns the task description as the first comment followed by the
// task comments
func (t *TodoistProvider) Comments(ctx context.Context, taskID string) ([]models.Comment, error) {
	var raw []todoistComment
	if err := t.api.Get(ctx, "comments", url.Values{"task_id": {taskID}}, &raw); err != nil {
		return nil, fmt.Errorf("failed to get todoist comments: %w", err)
	}

	var comments []models.Comment
	t.mu.Lock()
	task, ok := t.descriptions[taskID]
	t.mu.Unlock()
	if ok && task.Description != "" {
		c := models.Comment{ID: taskID + "-description", TaskID: taskID, Body: task.Description}
		if at, _ := parseTime(task.CreatedAt); at != nil {
			c.CreatedAt = *at
		}
		comments = append(comments, c)
	}
	for _, r := range raw {
		c := models.Comment{ID: r.ID, TaskID: taskID, Body: r.Content}
		if at, _ := parseTime(r.PostedAt); at != nil {
			c.CreatedAt = *at
		}
		comments = append(comments, c)
	}
	return comments, nil
}

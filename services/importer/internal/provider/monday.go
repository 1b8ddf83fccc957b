package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/stoik/taskbridge/internal/apiclient"
	"github.com/stoik/taskbridge/internal/models"
)

const (
	mondayAPI   = "https://api.monday.com/v2"
	mondayLimit = 300
)

type mondayColumn struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Value string `json:"value"`
}

type mondayItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group *struct {
		ID string `json:"id"`
	} `json:"group"`
	ColumnValues []mondayColumn `json:"column_values"`
	Subitems     []mondayItem   `json:"subitems"`
}

type mondayUpdate struct {
	ID        string `json:"id"`
	TextBody  string `json:"text_body"`
	CreatedAt string `json:"created_at"`
	Creator   *struct {
		Email string `json:"email"`
	} `json:"creator"`
	Replies []mondayUpdate `json:"replies"`
}

// MondayProvider reads boards, groups and items through the Monday GraphQL API
type MondayProvider struct {
	api *apiclient.Client
}

// NewMonday creates a Monday client authenticated with an API key
func NewMonday(creds Credentials, opts Options) *MondayProvider {
	api := apiclient.New(opts.baseURL(mondayAPI), opts.httpClient())
	api.SetHeader("Authorization", creds.AppKey)
	return &MondayProvider{api: api}
}

func (m *MondayProvider) Name() string { return "Monday" }

// query posts a GraphQL query and decodes its data member into out
func (m *MondayProvider) query(ctx context.Context, q string, out any) error {
	var resp struct {
		Data         json.RawMessage `json:"data"`
		ErrorMessage string          `json:"error_message"`
		Errors       []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := m.api.Do(ctx, http.MethodPost, m.api.BaseURL(), map[string]string{"query": q}, &resp); err != nil {
		return fmt.Errorf("failed to query monday: %w", err)
	}
	if resp.ErrorMessage != "" {
		return fmt.Errorf("monday: %s", resp.ErrorMessage)
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("monday: %s", resp.Errors[0].Message)
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("monday: empty response")
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode monday data: %w", err)
	}
	return nil
}

func (m *MondayProvider) Workspaces(context.Context) ([]models.Workspace, error) {
	return []models.Workspace{{ID: "monday", Name: "Monday"}}, nil
}

func (m *MondayProvider) Users(ctx context.Context, _ string) ([]models.User, error) {
	var data struct {
		Users []struct {
			ID    json.Number `json:"id"`
			Name  string      `json:"name"`
			Email string      `json:"email"`
		} `json:"users"`
	}
	if err := m.query(ctx, "{ users { id name email } }", &data); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(data.Users))
	for _, u := range data.Users {
		users = append(users, models.User{ID: u.ID.String(), Name: u.Name, Emails: []string{u.Email}})
	}
	return users, nil
}

// Tags returns nil; Monday has no account-level labels
func (m *MondayProvider) Tags(context.Context, string) ([]models.Tag, error) {
	return nil, nil
}

// Projects maps boards. Only public boards are open; archived and deleted
// boards are ended.
func (m *MondayProvider) Projects(ctx context.Context, _ string) ([]models.Project, error) {
	var data struct {
		Boards []struct {
			ID          json.Number `json:"id"`
			Name        string      `json:"name"`
			State       string      `json:"state"`
			Description string      `json:"description"`
			BoardKind   string      `json:"board_kind"`
		} `json:"boards"`
	}
	q := fmt.Sprintf("{ boards(state: all, limit: %d) { id name state description board_kind } }", mondayLimit)
	if err := m.query(ctx, q, &data); err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(data.Boards))
	for _, b := range data.Boards {
		projects = append(projects, models.Project{
			ID:          b.ID.String(),
			Name:        b.Name,
			Description: b.Description,
			Open:        b.BoardKind == "public",
			Archived:    b.State == "archived" || b.State == "deleted",
		})
	}
	return projects, nil
}

func (m *MondayProvider) Sections(ctx context.Context, projectID string) ([]models.Section, error) {
	var data struct {
		Boards []struct {
			Groups []struct {
				ID       string `json:"id"`
				Title    string `json:"title"`
				Archived bool   `json:"archived"`
				Position string `json:"position"`
			} `json:"groups"`
		} `json:"boards"`
	}
	q := fmt.Sprintf("{ boards(state: all, ids: [%s]) { groups { id title archived position } } }", strconv.Quote(projectID))
	if err := m.query(ctx, q, &data); err != nil {
		return nil, err
	}
	if len(data.Boards) == 0 {
		return nil, nil
	}
	sections := make([]models.Section, 0, len(data.Boards[0].Groups))
	for _, g := range data.Boards[0].Groups {
		position, err := strconv.ParseFloat(g.Position, 64)
		if err != nil {
			position = 1
		}
		sections = append(sections, models.Section{
			ID:        g.ID,
			ProjectID: projectID,
			Name:      g.Title,
			Position:  position,
			Archived:  g.Archived,
		})
	}
	return sections, nil
}

// Tasks returns the items of a board, each followed by its subitems. Subitems
// inherit the group of their parent item.
func (m *MondayProvider) Tasks(ctx context.Context, projectID string) ([]models.Task, error) {
	var data struct {
		Boards []struct {
			Items []mondayItem `json:"items"`
		} `json:"boards"`
	}
	const columns = "column_values { type text value }"
	q := fmt.Sprintf(`{ boards(state: all, limit: %d, ids: [%s]) { items(newest_first: false) { id name group { id } %s subitems { id name %s } } } }`,
		mondayLimit, strconv.Quote(projectID), columns, columns)
	if err := m.query(ctx, q, &data); err != nil {
		return nil, err
	}
	if len(data.Boards) == 0 {
		return nil, nil
	}

	var tasks []models.Task
	position := 0
	for _, item := range data.Boards[0].Items {
		group := ""
		if item.Group != nil {
			group = item.Group.ID
		}
		position++
		tasks = append(tasks, mondayToTask(item, projectID, group, position))
		for _, sub := range item.Subitems {
			position++
			tasks = append(tasks, mondayToTask(sub, projectID, group, position))
		}
	}
	return tasks, nil
}

// mondayToTask takes the due date from the date column only when the item has
// exactly one filled date column
func mondayToTask(item mondayItem, projectID, group string, position int) models.Task {
	task := models.Task{
		ID:        item.ID,
		ProjectID: projectID,
		SectionID: group,
		Name:      item.Name,
		Position:  float64(position),
	}
	dates := 0
	var dateText string
	for _, col := range item.ColumnValues {
		switch col.Type {
		case "date":
			if col.Text != "" {
				dates++
				dateText = col.Text
			}
		case "people", "multiple-person":
			if task.AssigneeID == "" {
				task.AssigneeID = firstPerson(col.Value)
			}
		}
	}
	if dates == 1 {
		task.DueAt, task.AllDay = parseTime(dateText)
	}
	return task
}

func firstPerson(value string) string {
	var v struct {
		PersonsAndTeams []struct {
			ID   json.Number `json:"id"`
			Kind string      `json:"kind"`
		} `json:"personsAndTeams"`
	}
	if json.Unmarshal([]byte(value), &v) != nil {
		return ""
	}
	for _, p := range v.PersonsAndTeams {
		if p.Kind == "person" {
			return p.ID.String()
		}
	}
	return ""
}

func (m *MondayProvider) LooseTasks(context.Context, string) ([]models.Task, error) {
	return nil, nil
}

// Comments returns the updates of an item, oldest first, each followed by its replies
func (m *MondayProvider) Comments(ctx context.Context, taskID string) ([]models.Comment, error) {
	var data struct {
		Items []struct {
			Updates []mondayUpdate `json:"updates"`
		} `json:"items"`
	}
	const fields = "id text_body created_at creator { email }"
	q := fmt.Sprintf("{ items(ids: [%s]) { updates(limit: %d) { %s replies { %s } } } }",
		strconv.Quote(taskID), mondayLimit, fields, fields)
	if err := m.query(ctx, q, &data); err != nil {
		return nil, err
	}
	if len(data.Items) == 0 {
		return nil, nil
	}

	updates := data.Items[0].Updates
	var comments []models.Comment
	for i := len(updates) - 1; i >= 0; i-- {
		comments = append(comments, mondayToComment(updates[i], taskID))
		for _, reply := range updates[i].Replies {
			comments = append(comments, mondayToComment(reply, taskID))
		}
	}
	return comments, nil
}

func mondayToComment(u mondayUpdate, taskID string) models.Comment {
	c := models.Comment{ID: u.ID, TaskID: taskID, Body: strings.TrimSpace(u.TextBody)}
	if at, _ := parseTime(u.CreatedAt); at != nil {
		c.CreatedAt = *at
	}
	if u.Creator != nil {
		c.AuthorEmail = u.Creator.Email
	}
	return c
}

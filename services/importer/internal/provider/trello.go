package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/stoik/taskbridge/internal/apiclient"
	"github.com/stoik/taskbridge/internal/models"
)

const trelloAPI = "https://api.trello.com/1"

type trelloMember struct {
	ID       string   `json:"id"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	IDBoards []string `json:"idBoards"`
}

type trelloBoard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	Closed bool   `json:"closed"`
	Prefs  struct {
		Background string `json:"background"`
	} `json:"prefs"`
}

type trelloList struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Closed bool    `json:"closed"`
	Pos    float64 `json:"pos"`
}

type trelloLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type trelloCard struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	IDList      string        `json:"idList"`
	Pos         float64       `json:"pos"`
	Due         string        `json:"due"`
	DueComplete bool          `json:"dueComplete"`
	IDMembers   []string      `json:"idMembers"`
	Labels      []trelloLabel `json:"labels"`
}

type trelloAction struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	IDMemberCreator string `json:"idMemberCreator"`
	Data            struct {
		Text string `json:"text"`
		Card struct {
			ID string `json:"id"`
		} `json:"card"`
	} `json:"data"`
}

type trelloChecklist struct {
	ID         string `json:"id"`
	CheckItems []struct {
		Name  string `json:"name"`
		State string `json:"state"`
	} `json:"checkItems"`
}

// TrelloProvider reads boards, lists and cards of the authenticated member
type TrelloProvider struct {
	api *apiclient.Client
	now func() time.Time

	mu      sync.Mutex
	me      *trelloMember
	members map[string]trelloMember
}

// NewTrello creates a Trello client authenticated with an app key and token
func NewTrello(creds Credentials, opts Options) *TrelloProvider {
	api := apiclient.New(opts.baseURL(trelloAPI), opts.httpClient())
	api.SetHeader("Authorization", fmt.Sprintf(`OAuth oauth_consumer_key="%s", oauth_token="%s"`, creds.AppKey, creds.Token))
	return &TrelloProvider{
		api:     api,
		now:     time.Now,
		members: make(map[string]trelloMember),
	}
}

func (t *TrelloProvider) Name() string { return "Trello" }

func (t *TrelloProvider) self(ctx context.Context) (trelloMember, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.me != nil {
		return *t.me, nil
	}
	var me trelloMember
	if err := t.api.Get(ctx, "members/me", nil, &me); err != nil {
		return me, fmt.Errorf("failed to get trello member: %w", err)
	}
	t.me = &me
	t.members[me.ID] = me
	return me, nil
}

func (t *TrelloProvider) member(ctx context.Context, id string) (trelloMember, error) {
	t.mu.Lock()
	if m, ok := t.members[id]; ok {
		t.mu.Unlock()
		return m, nil
	}
	t.mu.Unlock()

	var m trelloMember
	if err := t.api.Get(ctx, "members/"+url.PathEscape(id), nil, &m); err != nil {
		return m, fmt.Errorf("failed to get trello member %s: %w", id, err)
	}
	t.mu.Lock()
	t.members[id] = m
	t.mu.Unlock()
	return m, nil
}

// Workspaces returns a single synthetic workspace; Trello boards hang off the member
func (t *TrelloProvider) Workspaces(ctx context.Context) ([]models.Workspace, error) {
	me, err := t.self(ctx)
	if err != nil {
		return nil, err
	}
	return []models.Workspace{{ID: me.ID, Name: "Trello"}}, nil
}

// Users returns the members of every board of the authenticated member
func (t *TrelloProvider) Users(ctx context.Context, _ string) ([]models.User, error) {
	me, err := t.self(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var users []models.User
	for _, boardID := range me.IDBoards {
		var members []trelloMember
		if err := t.api.Get(ctx, "boards/"+url.PathEscape(boardID)+"/members", nil, &members); err != nil {
			return nil, fmt.Errorf("failed to get board members: %w", err)
		}
		for _, m := range members {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			full, err := t.member(ctx, m.ID)
			if err != nil {
				return nil, err
			}
			users = append(users, models.User{ID: m.ID, Name: full.FullName, Emails: []string{full.Email}})
		}
	}
	return users, nil
}

// Tags returns the labels of every board. Labels are board-scoped in Trello;
// equally named labels collapse into one destination tag.
func (t *TrelloProvider) Tags(ctx context.Context, _ string) ([]models.Tag, error) {
	me, err := t.self(ctx)
	if err != nil {
		return nil, err
	}
	var tags []models.Tag
	for _, boardID := range me.IDBoards {
		var labels []trelloLabel
		if err := t.api.Get(ctx, "boards/"+url.PathEscape(boardID)+"/labels", nil, &labels); err != nil {
			return nil, fmt.Errorf("failed to get board labels: %w", err)
		}
		for _, l := range labels {
			if strings.TrimSpace(l.Name) == "" {
				continue
			}
			tags = append(tags, models.Tag{ID: l.ID, Name: l.Name, Color: l.Color})
		}
	}
	return tags, nil
}

func (t *TrelloProvider) Projects(ctx context.Context, _ string) ([]models.Project, error) {
	me, err := t.self(ctx)
	if err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(me.IDBoards))
	for _, boardID := range me.IDBoards {
		var board trelloBoard
		if err := t.api.Get(ctx, "boards/"+url.PathEscape(boardID), nil, &board); err != nil {
			return nil, fmt.Errorf("failed to get board %s: %w", boardID, err)
		}
		var stars []struct {
			ID string `json:"id"`
		}
		if err := t.api.Get(ctx, "boards/"+url.PathEscape(boardID)+"/boardStars", nil, &stars); err != nil {
			return nil, fmt.Errorf("failed to get board stars: %w", err)
		}
		projects = append(projects, models.Project{
			ID:          board.ID,
			Name:        board.Name,
			Description: board.Desc,
			Color:       board.Prefs.Background,
			Favorite:    len(stars) > 0,
			Open:        true,
			Archived:    board.Closed,
		})
	}
	return projects, nil
}

func (t *TrelloProvider) Sections(ctx context.Context, projectID string) ([]models.Section, error) {
	var lists []trelloList
	if err := t.api.Get(ctx, "boards/"+url.PathEscape(projectID)+"/lists", url.Values{"filter": {"all"}}, &lists); err != nil {
		return nil, fmt.Errorf("failed to get board lists: %w", err)
	}
	sections := make([]models.Section, 0, len(lists))
	for _, l := range lists {
		sections = append(sections, models.Section{
			ID:        l.ID,
			ProjectID: projectID,
			Name:      l.Name,
			Position:  l.Pos,
			Archived:  l.Closed,
		})
	}
	return sections, nil
}

// Tasks returns the open cards of a board. Trello has no completion time, so
// a card marked due-complete ends at its due date.
func (t *TrelloProvider) Tasks(ctx context.Context, projectID string) ([]models.Task, error) {
	var cards []trelloCard
	if err := t.api.Get(ctx, "boards/"+url.PathEscape(projectID)+"/cards", nil, &cards); err != nil {
		return nil, fmt.Errorf("failed to get board cards: %w", err)
	}
	tasks := make([]models.Task, 0, len(cards))
	for _, c := range cards {
		task := models.Task{
			ID:        c.ID,
			ProjectID: projectID,
			SectionID: c.IDList,
			Name:      c.Name,
			Position:  c.Pos,
		}
		task.DueAt, task.AllDay = parseTime(c.Due)
		if c.DueComplete {
			task.CompletedAt = task.DueAt
		}
		if len(c.IDMembers) > 0 {
			task.AssigneeID = c.IDMembers[0]
		}
		for _, l := range c.Labels {
			task.Tags = append(task.Tags, l.ID)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (t *TrelloProvider) LooseTasks(context.Context, string) ([]models.Task, error) {
	return nil, nil
}

// Comments returns the comment actions of a card followed by its checklists
func (t *TrelloProvider) Comments(ctx context.Context, taskID string) ([]models.Comment, error) {
	me, err := t.self(ctx)
	if err != nil {
		return nil, err
	}

	var actions []trelloAction
	query := url.Values{"filter": {"commentCard"}}
	if err := t.api.Get(ctx, "cards/"+url.PathEscape(taskID)+"/actions", query, &actions); err != nil {
		return nil, fmt.Errorf("failed to get card actions: %w", err)
	}
	var comments []models.Comment
	for _, a := range actions {
		if a.Data.Card.ID != "" && a.Data.Card.ID != taskID {
			continue
		}
		author := me.Email
		if a.IDMemberCreator != "" {
			if m, err := t.member(ctx, a.IDMemberCreator); err == nil && m.Email != "" {
				author = m.Email
			}
		}
		created, _ := parseTime(a.Date)
		comment := models.Comment{ID: a.ID, TaskID: taskID, Body: a.Data.Text, AuthorEmail: author}
		if created != nil {
			comment.CreatedAt = *created
		}
		comments = append(comments, comment)
	}

	var checklists []trelloChecklist
	if err := t.api.Get(ctx, "cards/"+url.PathEscape(taskID)+"/checklists", nil, &checklists); err != nil {
		return nil, fmt.Errorf("failed to get card checklists: %w", err)
	}
	for _, cl := range checklists {
		lines := make([]string, 0, len(cl.CheckItems))
		for _, item := range cl.CheckItems {
			lines = append(lines, checklistLine(item.Name, item.State != "incomplete"))
		}
		comments = append(comments, models.Comment{
			ID:          cl.ID,
			TaskID:      taskID,
			Body:        strings.Join(lines, "\n"),
			AuthorEmail: me.Email,
			CreatedAt:   t.now(),
		})
	}
	return comments, nil
}

func checklistLine(name string, done bool) string {
	if done {
		return "- [x] " + name
	}
	return "- [ ] " + name
}

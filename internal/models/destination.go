package models

// Destination wire records. Timestamps are unix milliseconds, matching the
// destination REST API.

type DestProject struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name"`
	TeamID          string   `json:"team_id"`
	AuthorID        string   `json:"author_id,omitempty"`
	Color           string   `json:"color,omitempty"`
	Description     string   `json:"description,omitempty"`
	IsFavorite      bool     `json:"is_favorite"`
	IsOpen          bool     `json:"is_open"`
	IsTemplate      bool     `json:"is_template"`
	IsSingleActions bool     `json:"is_single_actions"`
	SidebarPosition *float64 `json:"sidebar_position,omitempty"`
	EndedAt         *int64   `json:"ended_at,omitempty"`
}

type DestSection struct {
	ID         string  `json:"id,omitempty"`
	ProjectID  string  `json:"project_id"`
	Name       string  `json:"name"`
	Position   float64 `json:"position"`
	ArchivedAt *int64  `json:"archived_at,omitempty"`
}

type DestTask struct {
	ID               string  `json:"id,omitempty"`
	Name             string  `json:"name"`
	ProjectID        string  `json:"project_id"`
	AuthorID         string  `json:"author_id,omitempty"`
	ProjectSectionID *string `json:"project_section_id,omitempty"`
	ProjectPosition  float64 `json:"project_position"`
	DueAt            *int64  `json:"due_at,omitempty"`
	IsAllDay         bool    `json:"is_all_day"`
	EndedAt          *int64  `json:"ended_at,omitempty"`
	ResponsibleID    *string `json:"responsible_id,omitempty"`
}

type DestTag struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	TeamID string `json:"team_id,omitempty"`
	Color  string `json:"color,omitempty"`
}

type DestTagAssignment struct {
	ID     string `json:"id,omitempty"`
	TagID  string `json:"tag_id"`
	TaskID string `json:"task_id"`
}

type DestComment struct {
	ID       string `json:"id,omitempty"`
	Body     string `json:"body"`
	TaskID   string `json:"task_id"`
	AuthorID string `json:"author_id,omitempty"`
	IsTeam   bool   `json:"is_team"`
	IsPinned bool   `json:"is_pinned"`
}

// DestProjectGroup is the grouping object used as the import marker
type DestProjectGroup struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	TeamID    string `json:"team_id"`
	IsPrivate bool   `json:"is_private"`
}

type DestGroupAssignment struct {
	ID        string `json:"id,omitempty"`
	GroupID   string `json:"group_id"`
	GroupType string `json:"group_type"`
	ObjectID  string `json:"object_id"`
}

type DestTeamMember struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
	Status string `json:"status,omitempty"`
}

type DestUser struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	InvitationEmail string `json:"invitation_email,omitempty"`
	IsMe            bool   `json:"is_me"`
}

// Address returns the email the destination knows the user by
func (u DestUser) Address() string {
	if u.Email != "" {
		return u.Email
	}
	return u.InvitationEmail
}

// DestTeam carries plan limits as a JSON-encoded object, e.g.
// {"projects_open": 5, "tags": -1}
type DestTeam struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Limits string `json:"limits,omitempty"`
}

// PlanRequest is the body of the trial upgrade call
type PlanRequest struct {
	MembersLen  int    `json:"members_len"`
	PlanType    string `json:"plan_type"`
	IsRecurring bool   `json:"is_recurring"`
	Creds       int    `json:"creds"`
}

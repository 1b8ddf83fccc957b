package models

import "time"

// Kind identifies the entity class of a foreign or destination record
type Kind string

const (
	KindTag           Kind = "tag"
	KindProject       Kind = "project"
	KindSection       Kind = "project_section"
	KindTask          Kind = "task"
	KindComment       Kind = "comment"
	KindTagAssignment Kind = "tag_assignment"
)

// Entity is the tagged variant over every foreign record the importer reads.
// Vendor clients produce these at the system boundary; nothing past the
// provider layer looks at vendor payloads.
type Entity interface {
	Kind() Kind
	ForeignID() string
	DisplayName() string
}

// Workspace groups projects and tags inside a foreign account. Vendors without
// workspaces expose a single synthetic one.
type Workspace struct {
	ID   string
	Name string
}

// Tag represents a foreign label/tag
type Tag struct {
	ID    string
	Name  string
	Color string
}

func (t Tag) Kind() Kind          { return KindTag }
func (t Tag) ForeignID() string   { return t.ID }
func (t Tag) DisplayName() string { return t.Name }

// Project represents a foreign project/board
type Project struct {
	ID          string
	Name        string
	Description string
	Color       string
	Favorite    bool
	Open        bool
	Archived    bool
}

func (p Project) Kind() Kind          { return KindProject }
func (p Project) ForeignID() string   { return p.ID }
func (p Project) DisplayName() string { return p.Name }

// Section represents a foreign section/list/group inside a project
type Section struct {
	ID        string
	ProjectID string
	Name      string
	Position  float64
	Archived  bool
}

func (s Section) Kind() Kind          { return KindSection }
func (s Section) ForeignID() string   { return s.ID }
func (s Section) DisplayName() string { return s.Name }

// Task represents a foreign task/card/item
type Task struct {
	ID          string
	ProjectID   string
	SectionID   string
	Name        string
	Position    float64
	DueAt       *time.Time
	AllDay      bool
	CompletedAt *time.Time
	// AssigneeID references a User returned by the same provider
	AssigneeID string
	// Tags holds foreign tag ids or, for vendors that reference labels by
	// name, tag names. The pipeline accepts both.
	Tags []string
}

func (t Task) Kind() Kind          { return KindTask }
func (t Task) ForeignID() string   { return t.ID }
func (t Task) DisplayName() string { return t.Name }

// Comment represents a foreign comment, description or rendered checklist
type Comment struct {
	ID          string
	TaskID      string
	Body        string
	AuthorEmail string
	CreatedAt   time.Time
}

func (c Comment) Kind() Kind          { return KindComment }
func (c Comment) ForeignID() string   { return c.ID }
func (c Comment) DisplayName() string { return c.Body }

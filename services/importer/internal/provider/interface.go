package provider

import (
	"context"

	"github.com/stoik/taskbridge/internal/models"
)

// Provider defines the interface for foreign task-management clients
// (Trello, Asana, Todoist, Monday). Every call returns fully normalized
// records; vendor payloads never leave the implementation.
type Provider interface {
	// Name returns the vendor display name ("Trello", "Asana", ...)
	Name() string

	// Workspaces lists the workspaces visible to the credentials. Vendors
	// without workspaces return exactly one.
	Workspaces(ctx context.Context) ([]models.Workspace, error)

	// Users retrieves the people of a workspace, used to resolve assignees
	Users(ctx context.Context, workspaceID string) ([]models.User, error)

	Tags(ctx context.Context, workspaceID string) ([]models.Tag, error)
	Projects(ctx context.Context, workspaceID string) ([]models.Project, error)
	Sections(ctx context.Context, projectID string) ([]models.Section, error)

	// Tasks retrieves the open and completed tasks of a project
	Tasks(ctx context.Context, projectID string) ([]models.Task, error)

	// LooseTasks retrieves tasks that belong to no project (Todoist inbox,
	// Asana "my tasks" without a project). Vendors without them return nil.
	LooseTasks(ctx context.Context, workspaceID string) ([]models.Task, error)

	// Comments retrieves the comments of a task, oldest first. Descriptions
	// and checklists are rendered as leading comments.
	Comments(ctx context.Context, taskID string) ([]models.Comment, error)
}

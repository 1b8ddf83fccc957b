package migration

import (
	"context"

	"github.com/stoik/taskbridge/internal/models"
	"github.com/stoik/taskbridge/services/importer/internal/destination"
)

// Destination is the part of the destination API the importer consumes.
// *destination.Client implements it.
type Destination interface {
	TokenUserID() string

	ListProjects(ctx context.Context, params destination.Params) ([]models.DestProject, error)
	GetProject(ctx context.Context, id string) (models.DestProject, error)
	CreateProject(ctx context.Context, p models.DestProject) (models.DestProject, error)

	ListSections(ctx context.Context, params destination.Params) ([]models.DestSection, error)
	CreateSection(ctx context.Context, s models.DestSection) (models.DestSection, error)

	ListTasks(ctx context.Context, params destination.Params) ([]models.DestTask, error)
	CreateTask(ctx context.Context, t models.DestTask) (models.DestTask, error)

	ListComments(ctx context.Context, params destination.Params) ([]models.DestComment, error)
	CreateComment(ctx context.Context, c models.DestComment) (models.DestComment, error)

	ListTags(ctx context.Context, params destination.Params) ([]models.DestTag, error)
	CreateTag(ctx context.Context, t models.DestTag) (models.DestTag, error)

	ListTagAssignments(ctx context.Context, params destination.Params) ([]models.DestTagAssignment, error)
	CreateTagAssignment(ctx context.Context, a models.DestTagAssignment) (models.DestTagAssignment, error)

	ListProjectGroups(ctx context.Context, params destination.Params) ([]models.DestProjectGroup, error)
	CreateProjectGroup(ctx context.Context, g models.DestProjectGroup) (models.DestProjectGroup, error)
	ListGroupAssignments(ctx context.Context, params destination.Params) ([]models.DestGroupAssignment, error)
	CreateGroupAssignment(ctx context.Context, a models.DestGroupAssignment) (models.DestGroupAssignment, error)

	ListTeamMembers(ctx context.Context, params destination.Params) ([]models.DestTeamMember, error)
	ListUsers(ctx context.Context, params destination.Params) ([]models.DestUser, error)
	GetTeam(ctx context.Context, id string) (models.DestTeam, error)
	UpgradeToTrial(ctx context.Context, teamID string, members int) error
}

var _ Destination = (*destination.Client)(nil)

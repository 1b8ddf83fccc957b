package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stoik/taskbridge/internal/models"
	"github.com/stoik/taskbridge/services/importer/internal/destination"
)

const groupTypeProject = "project"

// Key is the de-duplication unit: an entity kind, the destination id of the
// parent it is scoped to and its trimmed display name. Projects and tags are
// team-wide and carry no parent. Comments are keyed by body and tag
// assignments by destination tag id.
type Key struct {
	Kind   models.Kind
	Parent string
	Name   string
}

// NewKey builds a key, normalizing name the same way records are created
func NewKey(kind models.Kind, parent, name string) Key {
	switch kind {
	case models.KindComment:
		name = CommentBody(name)
	case models.KindTagAssignment:
	default:
		name = Trim(name)
	}
	return Key{Kind: kind, Parent: parent, Name: name}
}

// Record is the destination counterpart of an imported entity
type Record struct {
	ID   string
	Kind models.Kind
	Name string
}

// Index remembers every destination record reachable from the import marker
// of one (team, vendor) pair, plus everything created during the run. It is
// owned by a single run and is not safe for concurrent use.
type Index struct {
	client  Destination
	teamID  string
	marker  string
	groupID string
	records map[Key]Record
	logger  *zap.Logger
}

// LoadIndex finds the marker group named importTag and walks every project
// linked to it. Without a marker the index only knows the team tags; this is
// the first run.
func LoadIndex(ctx context.Context, client Destination, teamID, importTag string, logger *zap.Logger) (*Index, error) {
	ix := &Index{
		client:  client,
		teamID:  teamID,
		marker:  importTag,
		records: make(map[Key]Record),
		logger:  logger,
	}

	tags, err := client.ListTags(ctx, destination.Params{"team_id": teamID})
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	for _, t := range tags {
		ix.Record(NewKey(models.KindTag, "", t.Name), Record{ID: t.ID, Kind: models.KindTag, Name: t.Name})
	}

	groups, err := client.ListProjectGroups(ctx, destination.Params{"team_id": teamID, "name": importTag, "limit": "1"})
	if err != nil {
		return nil, fmt.Errorf("failed to find import marker: %w", err)
	}
	if len(groups) == 0 {
		logger.Info("no import marker, first run", zap.String("marker", importTag))
		return ix, nil
	}
	ix.groupID = groups[0].ID

	assignments, err := client.ListGroupAssignments(ctx, destination.Params{"group_id": ix.groupID, "group_type": groupTypeProject})
	if err != nil {
		return nil, fmt.Errorf("failed to list marker projects: %w", err)
	}
	for _, a := range assignments {
		project, err := client.GetProject(ctx, a.ObjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load imported project %s: %w", a.ObjectID, err)
		}
		if err := ix.LoadProject(ctx, project); err != nil {
			return nil, err
		}
	}
	logger.Info("import index loaded",
		zap.String("marker", importTag),
		zap.Int("projects", len(assignments)),
		zap.Int("records", len(ix.records)),
	)
	return ix, nil
}

// LoadProject records a destination project with its sections, tasks,
// comments and tag assignments
func (ix *Index) LoadProject(ctx context.Context, project models.DestProject) error {
	ix.Record(NewKey(models.KindProject, "", project.Name), Record{ID: project.ID, Kind: models.KindProject, Name: project.Name})

	sections, err := ix.client.ListSections(ctx, destination.Params{"project_id": project.ID})
	if err != nil {
		return fmt.Errorf("failed to load sections of %s: %w", project.ID, err)
	}
	for _, s := range sections {
		ix.Record(NewKey(models.KindSection, project.ID, s.Name), Record{ID: s.ID, Kind: models.KindSection, Name: s.Name})
	}

	tasks, err := ix.client.ListTasks(ctx, destination.Params{"project_id": project.ID})
	if err != nil {
		return fmt.Errorf("failed to load tasks of %s: %w", project.ID, err)
	}
	for _, t := range tasks {
		parent := project.ID
		if t.ProjectSectionID != nil && *t.ProjectSectionID != "" {
			parent = *t.ProjectSectionID
		}
		ix.Record(NewKey(models.KindTask, parent, t.Name), Record{ID: t.ID, Kind: models.KindTask, Name: t.Name})

		comments, err := ix.client.ListComments(ctx, destination.Params{"task_id": t.ID})
		if err != nil {
			return fmt.Errorf("failed to load comments of %s: %w", t.ID, err)
		}
		for _, c := range comments {
			ix.Record(NewKey(models.KindComment, t.ID, c.Body), Record{ID: c.ID, Kind: models.KindComment, Name: c.Body})
		}

		assignments, err := ix.client.ListTagAssignments(ctx, destination.Params{"task_id": t.ID})
		if err != nil {
			return fmt.Errorf("failed to load tag assignments of %s: %w", t.ID, err)
		}
		for _, a := range assignments {
			ix.Record(NewKey(models.KindTagAssignment, t.ID, a.TagID), Record{ID: a.ID, Kind: models.KindTagAssignment, Name: a.TagID})
		}
	}
	return nil
}

// Lookup returns the record stored under key
func (ix *Index) Lookup(key Key) (Record, bool) {
	rec, ok := ix.records[key]
	return rec, ok
}

// Record stores rec under key. The first record of a key wins.
func (ix *Index) Record(key Key, rec Record) {
	if _, ok := ix.records[key]; ok {
		return
	}
	ix.records[key] = rec
}

// Count returns the number of records of kind scoped to parent
func (ix *Index) Count(kind models.Kind, parent string) int {
	n := 0
	for key := range ix.records {
		if key.Kind == kind && key.Parent == parent {
			n++
		}
	}
	return n
}

func (ix *Index) Len() int { return len(ix.records) }

// Attach links a freshly created project to the import marker, creating the
// marker group on first use
func (ix *Index) Attach(ctx context.Context, projectID string) error {
	if ix.groupID == "" {
		group, err := ix.client.CreateProjectGroup(ctx, models.DestProjectGroup{
			Name:      ix.marker,
			TeamID:    ix.teamID,
			IsPrivate: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create import marker: %w", err)
		}
		ix.groupID = group.ID
	}
	_, err := ix.client.CreateGroupAssignment(ctx, models.DestGroupAssignment{
		GroupID:   ix.groupID,
		GroupType: groupTypeProject,
		ObjectID:  projectID,
	})
	if err != nil {
		return fmt.Errorf("failed to attach project %s to import marker: %w", projectID, err)
	}
	return nil
}

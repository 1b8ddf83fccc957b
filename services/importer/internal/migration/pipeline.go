package migration

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stoik/taskbridge/internal/models"
	"github.com/stoik/taskbridge/services/importer/internal/destination"
	"github.com/stoik/taskbridge/services/importer/internal/provider"
)

// Stages of the per-workspace traversal, in order
const (
	StageStart          = "START"
	StageTags           = "TAGS_IMPORTED"
	StageProjectCreated = "PROJECT_CREATED"
	StageSections       = "SECTIONS_IMPORTED"
	StageTaskCreated    = "TASK_CREATED"
	StageComments       = "COMMENTS_IMPORTED"
	StageTagsAssigned   = "TAGS_ASSIGNED"
	StageLooseTasks     = "LOOSE_TASKS_IMPORTED"
	StageDone           = "DONE"
)

const (
	// MissingResponsibilityTag flags tasks that fell back to the current member
	MissingResponsibilityTag = "missing responsibility"
	// MiscProjectName receives loose tasks when the team has no single actions project
	MiscProjectName = "Miscellaneous tasks"
)

// ImportTag names the marker group of a vendor
func ImportTag(vendor string) string {
	return "Imported from " + vendor
}

// Options configure a pipeline
type Options struct {
	TeamID string
	// ImportTag defaults to ImportTag(source.Name())
	ImportTag string
	// Colors defaults to ColorTables[source.Name()]
	Colors map[string]string
	Rand   *rand.Rand
	Logger *zap.Logger
	Now    func() time.Time
}

// Result summarizes one run
type Result struct {
	RunID    string
	Source   string
	TeamID   string
	Started  time.Time
	Finished time.Time
	Created  map[models.Kind]int
	Reused   map[models.Kind]int
	Failures int
	Err      error
}

// Pipeline walks workspace, project, section, task and their comments and tag
// assignments, creating what the destination does not have yet. One pipeline
// serves one run.
type Pipeline struct {
	dest   Destination
	src    provider.Provider
	opts   Options
	logger *zap.Logger

	index    *Index
	identity *Identity
	quota    *Quota
	result   *Result

	users        map[string]models.User
	tagByForeign map[string]string
	tagByName    map[string]string
	sentinel     string
	miscProject  string
}

// NewPipeline creates a pipeline reading from src and writing to dest
func NewPipeline(dest Destination, src provider.Provider, opts Options) *Pipeline {
	if opts.ImportTag == "" {
		opts.ImportTag = ImportTag(src.Name())
	}
	if opts.Colors == nil {
		opts.Colors = ColorTables[src.Name()]
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		dest:         dest,
		src:          src,
		opts:         opts,
		logger:       opts.Logger.With(zap.String("source", src.Name()), zap.String("team_id", opts.TeamID)),
		tagByForeign: make(map[string]string),
		tagByName:    make(map[string]string),
	}
}

// Run imports every workspace. Fatal errors abort the run and are returned;
// item-level failures are logged, counted and skipped.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.result = &Result{
		RunID:   uuid.NewString(),
		Source:  p.src.Name(),
		TeamID:  p.opts.TeamID,
		Started: p.opts.Now(),
		Created: make(map[models.Kind]int),
		Reused:  make(map[models.Kind]int),
	}
	p.logger = p.logger.With(zap.String("run_id", p.result.RunID))

	err := p.run(ctx)
	p.result.Finished = p.opts.Now()
	p.result.Err = err
	if err != nil {
		p.logger.Error("import aborted", zap.Error(err))
		return p.result, err
	}
	p.logger.Info("import finished",
		zap.Any("created", p.result.Created),
		zap.Any("reused", p.result.Reused),
		zap.Int("failures", p.result.Failures),
	)
	return p.result, nil
}

func (p *Pipeline) run(ctx context.Context) error {
	var err error
	if p.index, err = LoadIndex(ctx, p.dest, p.opts.TeamID, p.opts.ImportTag, p.logger); err != nil {
		return err
	}
	if p.identity, err = BuildIdentity(ctx, p.dest, p.opts.TeamID); err != nil {
		return err
	}
	if p.quota, err = LoadQuota(ctx, p.dest, p.opts.TeamID, p.logger); err != nil {
		return err
	}

	workspaces, err := p.src.Workspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}
	for _, ws := range workspaces {
		if err := p.importWorkspace(ctx, ws); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) stage(stage string, fields ...zap.Field) {
	p.logger.Debug("stage reached", append(fields, zap.String("stage", stage))...)
}

// fail counts and logs a non-fatal failure
func (p *Pipeline) fail(msg string, err error, fields ...zap.Field) {
	p.result.Failures++
	p.logger.Warn(msg, append(fields, zap.Error(err))...)
}

func (p *Pipeline) importWorkspace(ctx context.Context, ws models.Workspace) error {
	log := p.logger.With(zap.String("workspace", ws.Name))
	log.Info("importing workspace")
	p.stage(StageStart, zap.String("workspace", ws.ID))

	p.users = make(map[string]models.User)
	users, err := p.src.Users(ctx, ws.ID)
	if err != nil {
		p.fail("failed to list users, assignees will not resolve", err)
	}
	for _, u := range users {
		p.users[u.ID] = u
	}

	if err := p.importTags(ctx, ws); err != nil {
		return err
	}
	p.stage(StageTags, zap.String("workspace", ws.ID))

	projects, err := p.src.Projects(ctx, ws.ID)
	if err != nil {
		return fmt.Errorf("failed to list projects of %s: %w", ws.Name, err)
	}
	if err := p.checkProjects(ctx, projects); err != nil {
		return err
	}
	for _, fp := range projects {
		if err := p.importProject(ctx, fp); err != nil {
			return err
		}
	}

	if err := p.importLooseTasks(ctx, ws); err != nil {
		return err
	}
	p.stage(StageLooseTasks, zap.String("workspace", ws.ID))
	p.stage(StageDone, zap.String("workspace", ws.ID))
	return nil
}

func (p *Pipeline) importTags(ctx context.Context, ws models.Workspace) error {
	tags, err := p.src.Tags(ctx, ws.ID)
	if err != nil {
		p.fail("failed to list tags", err)
		return nil
	}

	fresh := make(map[string]bool)
	for _, t := range tags {
		key := NewKey(models.KindTag, "", t.Name)
		if _, ok := p.index.Lookup(key); !ok {
			fresh[key.Name] = true
		}
	}
	if len(fresh) > 0 {
		if err := p.quota.Check(ctx, LimitTags, p.index.Count(models.KindTag, "")+len(fresh)); err != nil {
			return err
		}
	}

	for _, t := range tags {
		id, err := p.ensureTag(ctx, t.Name, t.Color)
		if err != nil {
			p.fail("failed to create tag", err, zap.String("tag", t.Name))
			continue
		}
		p.tagByForeign[t.ID] = id
		p.tagByName[Trim(t.Name)] = id
	}
	return nil
}

func (p *Pipeline) ensureTag(ctx context.Context, name, color string) (string, error) {
	key := NewKey(models.KindTag, "", name)
	if rec, ok := p.index.Lookup(key); ok {
		p.result.Reused[models.KindTag]++
		return rec.ID, nil
	}
	tag, err := p.dest.CreateTag(ctx, models.DestTag{
		Name:   key.Name,
		TeamID: p.opts.TeamID,
		Color:  MapColor(p.opts.Colors, color, p.opts.Rand),
	})
	if err != nil {
		return "", err
	}
	p.index.Record(key, Record{ID: tag.ID, Kind: models.KindTag, Name: key.Name})
	p.result.Created[models.KindTag]++
	return tag.ID, nil
}

func (p *Pipeline) checkProjects(ctx context.Context, projects []models.Project) error {
	fresh := make(map[string]bool)
	for _, fp := range projects {
		key := NewKey(models.KindProject, "", fp.Name)
		if _, ok := p.index.Lookup(key); !ok && fp.Open && !fp.Archived {
			fresh[key.Name] = true
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	open, err := OpenProjects(ctx, p.dest, p.opts.TeamID)
	if err != nil {
		return err
	}
	return p.quota.Check(ctx, LimitOpenProjects, open+len(fresh))
}

// importProject creates or reuses a project, then walks its sections and
// tasks. Project creation and quota violations are fatal.
func (p *Pipeline) importProject(ctx context.Context, fp models.Project) error {
	log := p.logger.With(zap.String("project", fp.Name))
	key := NewKey(models.KindProject, "", fp.Name)

	projectID := ""
	if rec, ok := p.index.Lookup(key); ok {
		projectID = rec.ID
		p.result.Reused[models.KindProject]++
	} else {
		record := models.DestProject{
			Name:        key.Name,
			TeamID:      p.opts.TeamID,
			Color:       MapColor(p.opts.Colors, fp.Color, p.opts.Rand),
			Description: fp.Description,
			IsFavorite:  fp.Favorite,
			IsOpen:      fp.Open,
		}
		if fp.Favorite {
			position := 1.0
			record.SidebarPosition = &position
		}
		if fp.Archived {
			now := p.opts.Now()
			record.EndedAt = Millis(&now)
		}
		created, err := p.dest.CreateProject(ctx, record)
		if err != nil {
			return fmt.Errorf("failed to create project %q: %w", key.Name, err)
		}
		projectID = created.ID
		p.index.Record(key, Record{ID: projectID, Kind: models.KindProject, Name: key.Name})
		p.result.Created[models.KindProject]++
		if err := p.index.Attach(ctx, projectID); err != nil {
			p.fail("project created but not linked to import marker", err, zap.String("project_id", projectID))
		}
	}
	p.stage(StageProjectCreated, zap.String("project_id", projectID))

	sections, err := p.importSections(ctx, fp, projectID)
	if err != nil {
		return err
	}
	p.stage(StageSections, zap.String("project_id", projectID))

	tasks, err := p.src.Tasks(ctx, fp.ID)
	if err != nil {
		p.fail("failed to list tasks", err, zap.String("project", fp.Name))
		return nil
	}
	for _, ft := range tasks {
		if err := p.importTask(ctx, ft, projectID, sections[ft.SectionID]); err != nil {
			return err
		}
	}
	log.Info("project imported", zap.Int("tasks", len(tasks)))
	return nil
}

// importSections returns foreign section id to destination section id
func (p *Pipeline) importSections(ctx context.Context, fp models.Project, projectID string) (map[string]string, error) {
	mapping := make(map[string]string)
	sections, err := p.src.Sections(ctx, fp.ID)
	if err != nil {
		p.fail("failed to list sections", err, zap.String("project", fp.Name))
		return mapping, nil
	}

	fresh := make(map[string]bool)
	for _, fs := range sections {
		key := NewKey(models.KindSection, projectID, fs.Name)
		if _, ok := p.index.Lookup(key); !ok {
			fresh[key.Name] = true
		}
	}
	if len(fresh) > 0 {
		if err := p.quota.Check(ctx, LimitProjectSections, p.index.Count(models.KindSection, projectID)+len(fresh)); err != nil {
			return nil, err
		}
	}

	for _, fs := range sections {
		key := NewKey(models.KindSection, projectID, fs.Name)
		if rec, ok := p.index.Lookup(key); ok {
			mapping[fs.ID] = rec.ID
			p.result.Reused[models.KindSection]++
			continue
		}
		record := models.DestSection{ProjectID: projectID, Name: key.Name, Position: fs.Position}
		if fs.Archived {
			now := p.opts.Now()
			record.ArchivedAt = Millis(&now)
		}
		created, err := p.dest.CreateSection(ctx, record)
		if err != nil {
			p.fail("failed to create section", err, zap.String("section", key.Name))
			continue
		}
		p.index.Record(key, Record{ID: created.ID, Kind: models.KindSection, Name: key.Name})
		p.result.Created[models.KindSection]++
		mapping[fs.ID] = created.ID
	}
	return mapping, nil
}

// importTask creates or reuses a task and then its comments and tag
// assignments. Every failure here is logged and skipped, except a tag quota
// violation on the missing responsibility tag.
func (p *Pipeline) importTask(ctx context.Context, ft models.Task, projectID, sectionID string) error {
	parent := projectID
	if sectionID != "" {
		parent = sectionID
	}
	key := NewKey(models.KindTask, parent, ft.Name)

	taskID := ""
	flagged := false
	if rec, ok := p.index.Lookup(key); ok {
		taskID = rec.ID
		p.result.Reused[models.KindTask]++
	} else {
		record := models.DestTask{
			Name:            key.Name,
			ProjectID:       projectID,
			ProjectPosition: ft.Position,
			DueAt:           Millis(ft.DueAt),
			IsAllDay:        ft.AllDay,
			EndedAt:         Millis(ft.CompletedAt),
		}
		if sectionID != "" {
			record.ProjectSectionID = &sectionID
		}
		record.ResponsibleID, flagged = p.responsible(ft)

		created, err := p.dest.CreateTask(ctx, record)
		if err != nil {
			p.fail("failed to create task", err, zap.String("task", key.Name))
			return nil
		}
		taskID = created.ID
		p.index.Record(key, Record{ID: taskID, Kind: models.KindTask, Name: key.Name})
		p.result.Created[models.KindTask]++
	}
	p.stage(StageTaskCreated, zap.String("task_id", taskID))

	p.importComments(ctx, ft, taskID)
	p.stage(StageComments, zap.String("task_id", taskID))

	for _, ref := range ft.Tags {
		tagID, ok := p.tagByForeign[ref]
		if !ok {
			tagID, ok = p.tagByName[Trim(ref)]
		}
		if !ok {
			p.logger.Debug("task references unknown tag", zap.String("tag", ref))
			continue
		}
		p.assignTag(ctx, taskID, tagID)
	}
	if flagged {
		tagID, err := p.sentinelTag(ctx)
		if err != nil {
			return err
		}
		if tagID != "" {
			p.assignTag(ctx, taskID, tagID)
		}
	}
	p.stage(StageTagsAssigned, zap.String("task_id", taskID))
	return nil
}

// responsible resolves the assignee. A task with a due date but no resolvable
// assignee falls back to the current member and is flagged for re-triage.
func (p *Pipeline) responsible(ft models.Task) (*string, bool) {
	if ft.AssigneeID != "" {
		if user, ok := p.users[ft.AssigneeID]; ok {
			if memberID, ok := p.identity.Resolve(user.Candidates()...); ok {
				return &memberID, false
			}
		}
	}
	if ft.DueAt == nil {
		return nil, false
	}
	if current := p.identity.CurrentMember(); current != "" {
		return &current, true
	}
	return nil, true
}

// sentinelTag returns the missing responsibility tag, creating it on first
// use. Creating it counts against the tag quota.
func (p *Pipeline) sentinelTag(ctx context.Context) (string, error) {
	if p.sentinel != "" {
		return p.sentinel, nil
	}
	if _, ok := p.index.Lookup(NewKey(models.KindTag, "", MissingResponsibilityTag)); !ok {
		if err := p.quota.Check(ctx, LimitTags, p.index.Count(models.KindTag, "")+1); err != nil {
			return "", err
		}
	}
	id, err := p.ensureTag(ctx, MissingResponsibilityTag, "")
	if err != nil {
		p.fail("failed to create missing responsibility tag", err)
		return "", nil
	}
	p.sentinel = id
	return id, nil
}

func (p *Pipeline) importComments(ctx context.Context, ft models.Task, taskID string) {
	comments, err := p.src.Comments(ctx, ft.ID)
	if err != nil {
		p.fail("failed to list comments", err, zap.String("task", ft.Name))
		return
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	for _, fc := range comments {
		key := NewKey(models.KindComment, taskID, fc.Body)
		if _, ok := p.index.Lookup(key); ok {
			p.result.Reused[models.KindComment]++
			continue
		}
		created, err := p.dest.CreateComment(ctx, models.DestComment{Body: key.Name, TaskID: taskID, AuthorID: p.author(fc)})
		if err != nil {
			p.fail("failed to create comment", err, zap.String("task_id", taskID))
			continue
		}
		p.index.Record(key, Record{ID: created.ID, Kind: models.KindComment, Name: key.Name})
		p.result.Created[models.KindComment]++
	}
}

// author resolves the comment author, falling back to the current member
func (p *Pipeline) author(fc models.Comment) string {
	if fc.AuthorEmail != "" {
		if memberID, ok := p.identity.Resolve(fc.AuthorEmail); ok {
			return memberID
		}
	}
	return p.identity.CurrentMember()
}

func (p *Pipeline) assignTag(ctx context.Context, taskID, tagID string) {
	key := NewKey(models.KindTagAssignment, taskID, tagID)
	if _, ok := p.index.Lookup(key); ok {
		p.result.Reused[models.KindTagAssignment]++
		return
	}
	created, err := p.dest.CreateTagAssignment(ctx, models.DestTagAssignment{TagID: tagID, TaskID: taskID})
	if err != nil {
		p.fail("failed to assign tag", err, zap.String("task_id", taskID), zap.String("tag_id", tagID))
		return
	}
	p.index.Record(key, Record{ID: created.ID, Kind: models.KindTagAssignment, Name: tagID})
	p.result.Created[models.KindTagAssignment]++
}

func (p *Pipeline) importLooseTasks(ctx context.Context, ws models.Workspace) error {
	tasks, err := p.src.LooseTasks(ctx, ws.ID)
	if err != nil {
		p.fail("failed to list loose tasks", err)
		return nil
	}
	if len(tasks) == 0 {
		return nil
	}
	projectID, err := p.resolveMiscProject(ctx)
	if err != nil {
		return err
	}
	for _, ft := range tasks {
		if err := p.importTask(ctx, ft, projectID, ""); err != nil {
			return err
		}
	}
	p.logger.Info("loose tasks imported", zap.Int("tasks", len(tasks)), zap.String("project_id", projectID))
	return nil
}

// resolveMiscProject finds the team's single actions project, or else the
// miscellaneous tasks project, creating the latter when missing. The answer
// is cached for the run.
func (p *Pipeline) resolveMiscProject(ctx context.Context) (string, error) {
	if p.miscProject != "" {
		return p.miscProject, nil
	}

	found, err := p.dest.ListProjects(ctx, destination.Params{"team_id": p.opts.TeamID, "is_single_actions": "true", "limit": "1"})
	if err != nil {
		return "", fmt.Errorf("failed to find single actions project: %w", err)
	}
	if len(found) == 0 {
		found, err = p.dest.ListProjects(ctx, destination.Params{"team_id": p.opts.TeamID, "name": MiscProjectName, "limit": "1"})
		if err != nil {
			return "", fmt.Errorf("failed to find %s project: %w", MiscProjectName, err)
		}
	}

	if len(found) > 0 {
		if err := p.index.LoadProject(ctx, found[0]); err != nil {
			return "", err
		}
		p.miscProject = found[0].ID
		return p.miscProject, nil
	}

	created, err := p.dest.CreateProject(ctx, models.DestProject{
		Name:   MiscProjectName,
		TeamID: p.opts.TeamID,
		Color:  MapColor(nil, "", p.opts.Rand),
		IsOpen: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create %s project: %w", MiscProjectName, err)
	}
	p.index.Record(NewKey(models.KindProject, "", MiscProjectName), Record{ID: created.ID, Kind: models.KindProject, Name: MiscProjectName})
	p.result.Created[models.KindProject]++
	if err := p.index.Attach(ctx, created.ID); err != nil {
		p.fail("project created but not linked to import marker", err, zap.String("project_id", created.ID))
	}
	p.miscProject = created.ID
	return p.miscProject, nil
}

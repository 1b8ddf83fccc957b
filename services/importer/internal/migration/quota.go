package migration

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/stoik/taskbridge/internal/models"
	"github.com/stoik/taskbridge/services/importer/internal/destination"
)

// Plan limit names
const (
	LimitOpenProjects    = "projects_open"
	LimitProjectSections = "project_sections"
	LimitTags            = "tags"
)

// Unlimited is the only limit value that never triggers
const Unlimited = -1

// Quota guards the plan limits of one team. It holds a snapshot of the limits
// and refreshes it only after a trial upgrade.
type Quota struct {
	client Destination
	teamID string
	limits map[string]int
	logger *zap.Logger
}

// LoadQuota fetches the team limits
func LoadQuota(ctx context.Context, client Destination, teamID string, logger *zap.Logger) (*Quota, error) {
	q := &Quota{client: client, teamID: teamID, logger: logger}
	if err := q.refresh(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Quota) refresh(ctx context.Context) error {
	team, err := q.client.GetTeam(ctx, q.teamID)
	if err != nil {
		return fmt.Errorf("failed to load team limits: %w", err)
	}
	limits, err := parseLimits(team.Limits)
	if err != nil {
		return err
	}
	q.limits = limits
	return nil
}

func parseLimits(raw string) (map[string]int, error) {
	limits := make(map[string]int)
	if raw == "" {
		return limits, nil
	}
	if err := json.Unmarshal([]byte(raw), &limits); err != nil {
		return nil, fmt.Errorf("failed to parse team limits: %w", err)
	}
	return limits, nil
}

// Limit returns the snapshot value of a limit. A limit missing from the plan
// is 0, so anything fresh exceeds it.
func (q *Quota) Limit(name string) int {
	return q.limits[name]
}

// Check passes when prospective does not exceed the limit. On violation it
// makes one trial upgrade attempt; success passes the check, failure returns
// a LimitExceededError.
func (q *Quota) Check(ctx context.Context, limit string, prospective int) error {
	allowed := q.Limit(limit)
	if allowed == Unlimited || prospective <= allowed {
		return nil
	}

	q.logger.Warn("plan limit reached, requesting trial",
		zap.String("limit", limit),
		zap.Int("count", prospective),
		zap.Int("max", allowed),
	)
	members, err := q.client.ListTeamMembers(ctx, destination.Params{"team_id": q.teamID, "status": "active"})
	if err != nil {
		q.logger.Warn("failed to count team members", zap.Error(err))
	}
	if err := q.client.UpgradeToTrial(ctx, q.teamID, len(members)); err != nil {
		q.logger.Error("trial upgrade failed", zap.Error(err))
		return &LimitExceededError{Limit: limit, Count: prospective, Max: allowed}
	}
	if err := q.refresh(ctx); err != nil {
		q.logger.Warn("failed to refresh limits after trial upgrade", zap.Error(err))
	}
	q.logger.Info("team upgraded to trial", zap.String("team_id", q.teamID))
	return nil
}

// OpenProjects counts the team projects that consume the open projects limit
func OpenProjects(ctx context.Context, client Destination, teamID string) (int, error) {
	projects, err := client.ListProjects(ctx, destination.Params{"team_id": teamID})
	if err != nil {
		return 0, fmt.Errorf("failed to count open projects: %w", err)
	}
	n := 0
	for _, p := range projects {
		if countsAsOpen(p) {
			n++
		}
	}
	return n, nil
}

func countsAsOpen(p models.DestProject) bool {
	return p.IsOpen && p.EndedAt == nil && !p.IsTemplate && !p.IsSingleActions
}

package migration

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/stoik/taskbridge/services/importer/internal/destination"
)

type identityEntry struct {
	userID   string
	email    string
	memberID string
}

// Identity resolves foreign user emails to destination team member ids
type Identity struct {
	byEmail map[string]string
	entries []identityEntry
	current string
}

// HashEmail is the redacted form some vendors return instead of an address:
// hex md5 of the destination user id followed by the lowercased email
func HashEmail(userID, email string) string {
	sum := md5.Sum([]byte(userID + strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}

// BuildIdentity loads the team members and their users. The current member is
// the user flagged is_me, or else the user id carried by the API key.
func BuildIdentity(ctx context.Context, client Destination, teamID string) (*Identity, error) {
	members, err := client.ListTeamMembers(ctx, destination.Params{"team_id": teamID})
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	memberByUser := make(map[string]string, len(members))
	for _, m := range members {
		memberByUser[m.UserID] = m.ID
	}

	users, err := client.ListUsers(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	id := &Identity{byEmail: make(map[string]string)}
	currentUser := client.TokenUserID()
	for _, u := range users {
		if u.IsMe {
			currentUser = u.ID
		}
		memberID, ok := memberByUser[u.ID]
		if !ok {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(u.Address()))
		if email == "" {
			continue
		}
		if _, dup := id.byEmail[email]; !dup {
			id.byEmail[email] = memberID
		}
		id.entries = append(id.entries, identityEntry{userID: u.ID, email: email, memberID: memberID})
	}
	id.current = memberByUser[currentUser]
	return id, nil
}

// Resolve tries every candidate by exact case-folded email first, then by
// hash in either direction. The first match wins.
func (id *Identity) Resolve(candidates ...string) (string, bool) {
	for _, candidate := range candidates {
		if memberID, ok := id.byEmail[strings.ToLower(strings.TrimSpace(candidate))]; ok {
			return memberID, true
		}
	}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		for _, e := range id.entries {
			if strings.EqualFold(candidate, HashEmail(e.userID, e.email)) || e.email == HashEmail(e.userID, candidate) {
				return e.memberID, true
			}
		}
	}
	return "", false
}

// CurrentMember returns the member id of the authenticated user, or "" when
// the team has no such member
func (id *Identity) CurrentMember() string {
	return id.current
}

// Members returns the number of resolvable members
func (id *Identity) Members() int {
	return len(id.entries)
}

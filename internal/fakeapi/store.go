// Package fakeapi is an in-memory stand-in for the destination REST API. It
// backs the mock-server binary and the end-to-end tests of the importer.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Resources the fake serves generically
var resources = map[string]bool{
	"projects":          true,
	"project_sections":  true,
	"tasks":             true,
	"tags":              true,
	"tag_assignments":   true,
	"comments":          true,
	"project_groups":    true,
	"group_assignments": true,
	"team_members":      true,
	"users":             true,
}

// Required non-empty text fields per resource
var requiredText = map[string]string{
	"projects":         "name",
	"project_sections": "name",
	"tasks":            "name",
	"tags":             "name",
	"comments":         "body",
	"project_groups":   "name",
}

// Limits a trial plan lifts, whether or not the team plan names them
var trialLimits = []string{"projects_open", "project_sections", "tags"}

type team struct {
	name   string
	limits map[string]int
}

// Store holds every record of the fake destination
type Store struct {
	mu          sync.RWMutex
	records     map[string][]map[string]any
	teams       map[string]*team
	failCreate  map[string]bool
	failUpgrade bool
	upgrades    int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		records:    make(map[string][]map[string]any),
		teams:      make(map[string]*team),
		failCreate: make(map[string]bool),
	}
}

// NewID returns a 16 character identifier in the destination's format
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// AddTeam registers a team with its plan limits
func (s *Store) AddTeam(id, name string, limits map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]int, len(limits))
	for k, v := range limits {
		copied[k] = v
	}
	s.teams[id] = &team{name: name, limits: copied}
}

// AddMember seeds a user and its team membership and returns the member id
func (s *Store) AddMember(teamID, email string, isMe bool) string {
	userID := s.Seed("users", map[string]any{"email": email, "is_me": isMe})
	return s.Seed("team_members", map[string]any{"team_id": teamID, "user_id": userID, "status": "active"})
}

// Seed inserts a record and returns its id
func (s *Store) Seed(resource string, record map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(resource, record)
}

func (s *Store) insert(resource string, record map[string]any) string {
	copied := make(map[string]any, len(record)+1)
	for k, v := range record {
		copied[k] = v
	}
	id, _ := copied["id"].(string)
	if id == "" {
		id = NewID()
		copied["id"] = id
	}
	s.records[resource] = append(s.records[resource], copied)
	return id
}

// Records returns a copy of the records of a resource, in insertion order
func (s *Store) Records(resource string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]any, len(s.records[resource]))
	copy(out, s.records[resource])
	return out
}

// Count returns the number of records of a resource
func (s *Store) Count(resource string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[resource])
}

// FailCreates makes every POST to resource answer 500
func (s *Store) FailCreates(resource string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate[resource] = true
}

// FailUpgrades makes the trial upgrade endpoint answer 402
func (s *Store) FailUpgrades(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpgrade = fail
}

// Upgrades returns how many trial upgrade calls were received
func (s *Store) Upgrades() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upgrades
}

func (s *Store) list(resource string, filters map[string]string, limit int) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []map[string]any{}
	for _, record := range s.records[resource] {
		if !matches(record, filters) {
			continue
		}
		out = append(out, record)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (s *Store) get(resource, id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records[resource] {
		if record["id"] == id {
			return record, true
		}
	}
	return nil, false
}

func (s *Store) create(resource string, record map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate[resource] {
		return nil, fmt.Errorf("%s: create disabled", resource)
	}
	if field, ok := requiredText[resource]; ok {
		if text, _ := record[field].(string); strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%s: field %q must not be empty", resource, field)
		}
	}
	id := s.insert(resource, record)
	for _, r := range s.records[resource] {
		if r["id"] == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s: record %s vanished", resource, id)
}

func (s *Store) team(id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, false
	}
	limits, _ := json.Marshal(t.limits)
	return map[string]any{"id": id, "name": t.name, "limits": string(limits)}, true
}

// upgrade switches a team to the trial plan, lifting every limit
func (s *Store) upgrade(id string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upgrades++
	t, ok := s.teams[id]
	if !ok {
		return false, false
	}
	if s.failUpgrade {
		return true, false
	}
	for _, k := range trialLimits {
		t.limits[k] = -1
	}
	for k := range t.limits {
		t.limits[k] = -1
	}
	return true, true
}

func matches(record map[string]any, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := record[key]
		if !ok || got == nil {
			if want != "" {
				return false
			}
			continue
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func (s *Store) failing(resource string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failCreate[resource]
}

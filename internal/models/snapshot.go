package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the immutable output of one collection cycle
type Snapshot struct {
	Timestamp      time.Time                      `json:"timestamp"`
	Repositories   []RepositoryRecord             `json:"repositories"`
	Contributors   map[string][]ContributorRecord `json:"contributors"`
	TransferEvents []TransferEvent                `json:"transfer_events"`
	OrgActivity    map[string][]OrgEvent          `json:"org_activity"`
	CommitActivity map[string][]time.Time         `json:"commit_activity,omitempty"`
	Metadata       SnapshotMetadata               `json:"metadata"`
}

// SnapshotMetadata summarizes a snapshot
type SnapshotMetadata struct {
	TotalRepositories         int `json:"total_repositories"`
	TotalContributorsAnalyzed int `json:"total_contributors_analyzed"`
	TransferEventsDetected    int `json:"transfer_events_detected"`
	OrganizationsMonitored    int `json:"organizations_monitored"`
	SkippedItems              int `json:"skipped_items"`
}

// ContributorsFor returns the contributors collected for a repository
func (s *Snapshot) ContributorsFor(fullName string) []ContributorRecord {
	if s == nil || s.Contributors == nil {
		return nil
	}
	return s.Contributors[fullName]
}

// CommitsFor returns the commit timestamps collected for a repository
func (s *Snapshot) CommitsFor(fullName string) []time.Time {
	if s == nil || s.CommitActivity == nil {
		return nil
	}
	return s.CommitActivity[fullName]
}

// String returns the JSON string representation of the snapshot
func (s *Snapshot) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal snapshot: %v"}`, err)
	}
	return string(data)
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// RepositoryRecord is one GitHub repository as seen at collection time
type RepositoryRecord struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Owner       string    `json:"owner"`
	OwnerType   string    `json:"owner_type"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Watchers    int       `json:"watchers"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Topics      []string  `json:"topics"`
	License     string    `json:"license,omitempty"`
	Archived    bool      `json:"archived"`
	Disabled    bool      `json:"disabled"`
	Visibility  string    `json:"visibility"`
}

// Validate checks the required fields of a record decoded from the API
func (r *RepositoryRecord) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("repository id must be positive, got %d", r.ID)
	}
	if _, _, err := SplitFullName(r.FullName); err != nil {
		return err
	}
	if r.Stars < 0 || r.Forks < 0 || r.Watchers < 0 || r.Size < 0 {
		return fmt.Errorf("repository %s has negative counts", r.FullName)
	}
	return nil
}

// SplitFullName splits "owner/name" into its two parts
func SplitFullName(fullName string) (owner, name string, err error) {
	parts := strings.Split(strings.Trim(fullName, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository full name %q", fullName)
	}
	return parts[0], parts[1], nil
}

// ContributorRecord is one person contributing to a repository
type ContributorRecord struct {
	Username      string    `json:"username"`
	Contributions int       `json:"contributions"`
	Employer      string    `json:"employer,omitempty"`
	Location      string    `json:"location,omitempty"`
	Hireable      bool      `json:"hireable"`
	PublicRepos   int       `json:"public_repos"`
	Followers     int       `json:"followers"`
	Following     int       `json:"following"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the required fields of a contributor
func (c *ContributorRecord) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("contributor username cannot be empty")
	}
	if c.Contributions < 0 {
		return fmt.Errorf("contributor %s has negative contributions", c.Username)
	}
	return nil
}

// TransferEvent is a detected ownership change of a repository
type TransferEvent struct {
	RepoID       int64     `json:"repo_id"`
	RepoName     string    `json:"repo_name"`
	OldOwner     string    `json:"old_owner"`
	NewOwner     string    `json:"new_owner"`
	DetectedType string    `json:"detected_type"`
	TransferDate time.Time `json:"transfer_date"`
	Confidence   float64   `json:"confidence"`
}

// IsOwnershipTransfer reports whether the event asserts a real change of owner.
// Reference entries such as a corporate restructuring keep the same owner.
func (e TransferEvent) IsOwnershipTransfer() bool {
	return e.OldOwner != "" && e.NewOwner != "" && e.OldOwner != e.NewOwner
}

// OrgEvent is one entry of an organization's public event feed
type OrgEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor"`
	Repo      string    `json:"repo"`
	CreatedAt time.Time `json:"created_at"`
}

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

const maxPerPage = 100

// SearchRepositories returns up to limit repositories with more than
// minStars stars, most starred first.
func (c *Client) SearchRepositories(ctx context.Context, minStars, limit int) ([]models.RepositoryRecord, error) {
	if limit <= 0 {
		return nil, NewValidationError("limit", strconv.Itoa(limit))
	}

	var records []models.RepositoryRecord
	for page := 1; len(records) < limit; page++ {
		perPage := limit - len(records)
		if perPage > maxPerPage {
			perPage = maxPerPage
		}
		params := url.Values{}
		params.Set("q", fmt.Sprintf("stars:>%d", minStars))
		params.Set("sort", "stars")
		params.Set("order", "desc")
		params.Set("per_page", strconv.Itoa(perPage))
		params.Set("page", strconv.Itoa(page))

		raw, err := c.Fetch(ctx, "/search/repositories", params)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			break
		}

		var result gh.RepositoriesSearchResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, NewGitHubError(200, "failed to decode search result", err)
		}
		for _, repo := range result.Repositories {
			record, err := toRepositoryRecord(repo)
			if err != nil {
				c.logger.WithError(err).WithField("repo", repo.GetFullName()).Warn("Skipping invalid search item")
				continue
			}
			records = append(records, record)
		}
		if len(result.Repositories) < perPage {
			break
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Stars > records[j].Stars
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// GetRepository gets repository details. A missing repository yields (nil, nil).
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*models.RepositoryRecord, error) {
	if err := validateRepo(owner, name); err != nil {
		return nil, err
	}

	raw, err := c.Fetch(ctx, fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(name)), nil)
	if err != nil || raw == nil {
		return nil, err
	}

	var repo gh.Repository
	if err := json.Unmarshal(raw, &repo); err != nil {
		return nil, NewGitHubError(200, "failed to decode repository", err)
	}
	record, err := toRepositoryRecord(&repo)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListContributors returns up to max contributors of a repository with only
// username and contribution count populated.
func (c *Client) ListContributors(ctx context.Context, owner, name string, max int) ([]models.ContributorRecord, error) {
	if err := validateRepo(owner, name); err != nil {
		return nil, err
	}
	if max <= 0 || max > maxPerPage {
		max = maxPerPage
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(max))
	raw, err := c.Fetch(ctx, fmt.Sprintf("/repos/%s/%s/contributors", url.PathEscape(owner), url.PathEscape(name)), params)
	if err != nil || raw == nil {
		return nil, err
	}

	var contributors []*gh.Contributor
	if err := json.Unmarshal(raw, &contributors); err != nil {
		return nil, NewGitHubError(200, "failed to decode contributors", err)
	}

	records := make([]models.ContributorRecord, 0, len(contributors))
	for _, contributor := range contributors {
		// anonymous contributors carry no login
		if contributor.GetLogin() == "" {
			continue
		}
		records = append(records, models.ContributorRecord{
			Username:      contributor.GetLogin(),
			Contributions: contributor.GetContributions(),
		})
		if len(records) == max {
			break
		}
	}
	return records, nil
}

// GetUser returns the profile of a user as a contributor record without a
// contribution count. A missing user yields (nil, nil).
func (c *Client) GetUser(ctx context.Context, login string) (*models.ContributorRecord, error) {
	if login == "" {
		return nil, NewValidationError("login", "cannot be empty")
	}

	raw, err := c.Fetch(ctx, "/users/"+url.PathEscape(login), nil)
	if err != nil || raw == nil {
		return nil, err
	}

	var user gh.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, NewGitHubError(200, "failed to decode user", err)
	}

	return &models.ContributorRecord{
		Username:    user.GetLogin(),
		Employer:    user.GetCompany(),
		Location:    user.GetLocation(),
		Hireable:    user.GetHireable(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		CreatedAt:   user.GetCreatedAt().Time,
	}, nil
}

// ListOrgEvents returns the most recent public events of an organization
func (c *Client) ListOrgEvents(ctx context.Context, org string) ([]models.OrgEvent, error) {
	if org == "" {
		return nil, NewValidationError("org", "cannot be empty")
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(maxPerPage))
	raw, err := c.Fetch(ctx, fmt.Sprintf("/orgs/%s/events", url.PathEscape(org)), params)
	if err != nil || raw == nil {
		return nil, err
	}

	var events []*gh.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, NewGitHubError(200, "failed to decode events", err)
	}

	out := make([]models.OrgEvent, 0, len(events))
	for _, event := range events {
		out = append(out, models.OrgEvent{
			ID:        event.GetID(),
			Type:      event.GetType(),
			Actor:     event.GetActor().GetLogin(),
			Repo:      event.GetRepo().GetName(),
			CreatedAt: event.GetCreatedAt().Time,
		})
	}
	return out, nil
}

// ListCommitTimes returns the author timestamps of the most recent commits
// since the given time, oldest first.
func (c *Client) ListCommitTimes(ctx context.Context, owner, name string, since time.Time) ([]time.Time, error) {
	if err := validateRepo(owner, name); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(maxPerPage))
	if !since.IsZero() {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}
	raw, err := c.Fetch(ctx, fmt.Sprintf("/repos/%s/%s/commits", url.PathEscape(owner), url.PathEscape(name)), params)
	if err != nil || raw == nil {
		return nil, err
	}

	var commits []*gh.RepositoryCommit
	if err := json.Unmarshal(raw, &commits); err != nil {
		return nil, NewGitHubError(200, "failed to decode commits", err)
	}

	times := make([]time.Time, 0, len(commits))
	for _, commit := range commits {
		date := commit.GetCommit().GetAuthor().GetDate().Time
		if date.IsZero() {
			continue
		}
		times = append(times, date.UTC())
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	c.logger.WithFields(logrus.Fields{
		"repo":    owner + "/" + name,
		"commits": len(times),
	}).Debug("Fetched commit activity")
	return times, nil
}

func validateRepo(owner, name string) error {
	if owner == "" {
		return NewValidationError("owner", "cannot be empty")
	}
	if name == "" {
		return NewValidationError("name", "cannot be empty")
	}
	return nil
}

func toRepositoryRecord(repo *gh.Repository) (models.RepositoryRecord, error) {
	record := models.RepositoryRecord{
		ID:          repo.GetID(),
		Name:        repo.GetName(),
		FullName:    repo.GetFullName(),
		Owner:       repo.GetOwner().GetLogin(),
		OwnerType:   repo.GetOwner().GetType(),
		Description: repo.GetDescription(),
		Language:    repo.GetLanguage(),
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		Watchers:    repo.GetWatchersCount(),
		Size:        repo.GetSize(),
		CreatedAt:   repo.GetCreatedAt().Time,
		UpdatedAt:   repo.GetUpdatedAt().Time,
		PushedAt:    repo.GetPushedAt().Time,
		Topics:      append([]string(nil), repo.Topics...),
		License:     repo.GetLicense().GetName(),
		Archived:    repo.GetArchived(),
		Disabled:    repo.GetDisabled(),
		Visibility:  repo.GetVisibility(),
	}
	if record.Owner == "" {
		if owner, _, err := models.SplitFullName(record.FullName); err == nil {
			record.Owner = owner
		}
	}
	if err := record.Validate(); err != nil {
		return models.RepositoryRecord{}, NewValidationError("repository", err.Error())
	}
	return record, nil
}

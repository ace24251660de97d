// Package collector builds one Snapshot per cycle from the GitHub API.
package collector

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Kamar-Folarin/github-ma-intel/internal/config"
	apperrors "github.com/Kamar-Folarin/github-ma-intel/internal/errors"
	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

// Source is the subset of the GitHub client the collector needs
type Source interface {
	SearchRepositories(ctx context.Context, minStars, limit int) ([]models.RepositoryRecord, error)
	GetRepository(ctx context.Context, owner, name string) (*models.RepositoryRecord, error)
	ListContributors(ctx context.Context, owner, name string, max int) ([]models.ContributorRecord, error)
	GetUser(ctx context.Context, login string) (*models.ContributorRecord, error)
	ListOrgEvents(ctx context.Context, org string) ([]models.OrgEvent, error)
	ListCommitTimes(ctx context.Context, owner, name string, since time.Time) ([]time.Time, error)
}

// Collector queries a Source sequentially, spacing requests with a token
// bucket. Collect must not be called concurrently with itself; the refresh
// service's single-flight guarantees this.
type Collector struct {
	source    Source
	cfg       *config.CollectorConfig
	limiter   *rate.Limiter
	logger    *logrus.Logger
	transfers []KnownTransfer
	now       func() time.Time

	mu   sync.Mutex
	last time.Time
}

// Option configures a Collector
type Option func(*Collector)

// WithClock replaces the time source for snapshot timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// WithKnownTransfers replaces the transfer reference list
func WithKnownTransfers(table []KnownTransfer) Option {
	return func(c *Collector) {
		c.transfers = table
	}
}

// WithLastTimestamp seeds the timestamp of the previous snapshot, e.g. from
// an archive after a restart.
func WithLastTimestamp(t time.Time) Option {
	return func(c *Collector) {
		c.last = t
	}
}

// New creates a collector
func New(source Source, cfg *config.CollectorConfig, logger *logrus.Logger, opts ...Option) *Collector {
	if cfg == nil {
		cfg = config.DefaultCollectorConfig()
	}
	limit := rate.Inf
	if cfg.RequestSpacing > 0 {
		limit = rate.Every(cfg.RequestSpacing)
	}
	c := &Collector{
		source:    source,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		transfers: KnownTransfers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cycle carries the per-run state of a collection
type cycle struct {
	c        *Collector
	logger   *logrus.Entry
	skipped  int
	profiles map[string]*models.ContributorRecord
}

// Collect runs one collection cycle. Individual failures are logged and
// skipped; authentication failures and an empty repository phase abort.
func (c *Collector) Collect(ctx context.Context) (*models.Snapshot, error) {
	ts := c.nextTimestamp()
	run := &cycle{
		c:        c,
		logger:   c.logger.WithField("snapshot", ts.Format(time.RFC3339Nano)),
		profiles: make(map[string]*models.ContributorRecord),
	}
	start := time.Now()
	run.logger.Info("Starting collection cycle")

	repos, err := run.repositories(ctx)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		Timestamp:      ts,
		Repositories:   repos,
		Contributors:   make(map[string][]models.ContributorRecord),
		OrgActivity:    make(map[string][]models.OrgEvent),
		CommitActivity: make(map[string][]time.Time),
	}

	subset := repos
	if len(subset) > c.cfg.ContributorRepos {
		subset = subset[:c.cfg.ContributorRepos]
	}
	for _, repo := range subset {
		contributors, err := run.contributors(ctx, repo)
		if err != nil {
			return nil, err
		}
		snap.Contributors[repo.FullName] = contributors
		snap.Metadata.TotalContributorsAnalyzed += len(contributors)
	}

	since := ts.Add(-c.cfg.CommitWindow)
	for _, repo := range subset {
		commits, err := run.commits(ctx, repo, since)
		if err != nil {
			return nil, err
		}
		if commits != nil {
			snap.CommitActivity[repo.FullName] = commits
		}
	}

	orgs := c.cfg.OrgWatchlist
	if c.cfg.OrgLimit > 0 && len(orgs) > c.cfg.OrgLimit {
		orgs = orgs[:c.cfg.OrgLimit]
	}
	for _, org := range orgs {
		events, err := run.orgEvents(ctx, org)
		if err != nil {
			return nil, err
		}
		if events != nil {
			snap.OrgActivity[org] = events
		}
	}

	snap.TransferEvents = DetectTransfers(repos, c.transfers, ts)

	snap.Metadata.TotalRepositories = len(repos)
	snap.Metadata.TransferEventsDetected = len(snap.TransferEvents)
	snap.Metadata.OrganizationsMonitored = len(snap.OrgActivity)
	snap.Metadata.SkippedItems = run.skipped

	run.logger.WithFields(logrus.Fields{
		"repositories":  snap.Metadata.TotalRepositories,
		"contributors":  snap.Metadata.TotalContributorsAnalyzed,
		"transfers":     snap.Metadata.TransferEventsDetected,
		"organizations": snap.Metadata.OrganizationsMonitored,
		"skipped":       run.skipped,
		"duration":      time.Since(start).String(),
	}).Info("Collection cycle completed")

	return snap, nil
}

func (r *cycle) repositories(ctx context.Context) ([]models.RepositoryRecord, error) {
	cfg := r.c.cfg
	if err := r.c.wait(ctx); err != nil {
		return nil, err
	}
	found, err := r.c.source.SearchRepositories(ctx, cfg.MinStars, cfg.TopRepositories)
	if err != nil {
		if fatal(err) {
			return nil, err
		}
		return nil, apperrors.NewEmptySnapshotError("repository search failed", err)
	}

	repos := make([]models.RepositoryRecord, 0, len(found))
	seen := make(map[int64]struct{}, len(found))
	for _, item := range found {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		owner, name, err := models.SplitFullName(item.FullName)
		if err != nil {
			r.skip(err, "repository", item.FullName)
			continue
		}
		if err := r.c.wait(ctx); err != nil {
			return nil, err
		}
		detail, err := r.c.source.GetRepository(ctx, owner, name)
		if err != nil {
			if fatal(err) {
				return nil, err
			}
			r.skip(err, "repository", item.FullName)
			continue
		}
		if detail == nil {
			r.skip(apperrors.NewNotFoundError("repository not found", nil), "repository", item.FullName)
			continue
		}
		seen[detail.ID] = struct{}{}
		repos = append(repos, *detail)
	}

	if len(repos) == 0 {
		return nil, apperrors.NewEmptySnapshotError("no repositories collected", nil)
	}
	return repos, nil
}

func (r *cycle) contributors(ctx context.Context, repo models.RepositoryRecord) ([]models.ContributorRecord, error) {
	owner, name, _ := models.SplitFullName(repo.FullName)
	if err := r.c.wait(ctx); err != nil {
		return nil, err
	}
	base, err := r.c.source.ListContributors(ctx, owner, name, r.c.cfg.MaxContributors)
	if err != nil {
		if fatal(err) {
			return nil, err
		}
		r.skip(err, "contributors", repo.FullName)
		return []models.ContributorRecord{}, nil
	}

	out := make([]models.ContributorRecord, 0, len(base))
	seen := make(map[string]struct{}, len(base))
	for _, contributor := range base {
		if _, dup := seen[contributor.Username]; dup {
			continue
		}
		if err := contributor.Validate(); err != nil {
			r.skip(err, "contributor", contributor.Username)
			continue
		}
		seen[contributor.Username] = struct{}{}

		profile, err := r.profile(ctx, contributor.Username)
		if err != nil {
			if fatal(err) {
				return nil, err
			}
			// keep the contributor without profile fields
			r.skip(err, "user", contributor.Username)
		}
		if profile != nil {
			enriched := *profile
			enriched.Username = contributor.Username
			enriched.Contributions = contributor.Contributions
			contributor = enriched
		}
		out = append(out, contributor)
	}
	return out, nil
}

// profile fetches a user once per cycle
func (r *cycle) profile(ctx context.Context, login string) (*models.ContributorRecord, error) {
	if p, ok := r.profiles[login]; ok {
		return p, nil
	}
	if err := r.c.wait(ctx); err != nil {
		return nil, err
	}
	p, err := r.c.source.GetUser(ctx, login)
	if err != nil {
		return nil, err
	}
	r.profiles[login] = p
	return p, nil
}

func (r *cycle) commits(ctx context.Context, repo models.RepositoryRecord, since time.Time) ([]time.Time, error) {
	owner, name, _ := models.SplitFullName(repo.FullName)
	if err := r.c.wait(ctx); err != nil {
		return nil, err
	}
	commits, err := r.c.source.ListCommitTimes(ctx, owner, name, since)
	if err != nil {
		if fatal(err) {
			return nil, err
		}
		r.skip(err, "commits", repo.FullName)
		return nil, nil
	}
	return commits, nil
}

func (r *cycle) orgEvents(ctx context.Context, org string) ([]models.OrgEvent, error) {
	if err := r.c.wait(ctx); err != nil {
		return nil, err
	}
	events, err := r.c.source.ListOrgEvents(ctx, org)
	if err != nil {
		if fatal(err) {
			return nil, err
		}
		r.skip(err, "organization", org)
		return nil, nil
	}
	if events == nil {
		// unknown organization
		return nil, nil
	}
	return events, nil
}

func (r *cycle) skip(err error, kind, item string) {
	r.skipped++
	r.logger.WithFields(logrus.Fields{
		"kind": kind,
		"item": item,
	}).WithError(apperrors.NewPartialCollectionError(fmt.Sprintf("%s %s", kind, item), err)).Warn("Skipping item")
}

func (c *Collector) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// nextTimestamp returns a timestamp strictly after the previous one
func (c *Collector) nextTimestamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now().UTC()
	if !ts.After(c.last) {
		ts = c.last.Add(time.Millisecond)
	}
	c.last = ts
	return ts
}

// fatal reports whether err must abort the whole cycle
func fatal(err error) bool {
	return apperrors.IsAuth(err) ||
		stderrors.Is(err, context.Canceled) ||
		stderrors.Is(err, context.DeadlineExceeded)
}

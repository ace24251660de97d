// Package refresh owns the cached snapshot and analysis and keeps them
// current: on demand through the cache, and in the background through a
// cron trigger drained by a single worker.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-ma-intel/internal/archive"
	"github.com/Kamar-Folarin/github-ma-intel/internal/cache"
	"github.com/Kamar-Folarin/github-ma-intel/internal/config"
	"github.com/Kamar-Folarin/github-ma-intel/internal/history"
	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

// Cache keys
const (
	KeySnapshot = "snapshot"
	KeyAnalysis = "analysis"
)

// Trigger reasons
const (
	ReasonStartup  = "startup"
	ReasonSchedule = "schedule"
	ReasonManual   = "manual"
)

// Collector produces snapshots
type Collector interface {
	Collect(ctx context.Context) (*models.Snapshot, error)
}

// Analyzer turns a snapshot into an analysis
type Analyzer interface {
	Analyze(ctx context.Context, snap *models.Snapshot) (*models.AnalysisResult, error)
}

// BaselineSeeder is implemented by analyzers that accept past feature vectors
type BaselineSeeder interface {
	SeedBaseline(vectors []models.FeatureVector) int
}

type request struct {
	id     string
	reason string
	queued time.Time
}

// Service is the refresh orchestrator
type Service struct {
	collector Collector
	analyzer  Analyzer
	history   history.Store
	archive   *archive.Archive
	cacheCfg  *config.CacheConfig
	schedCfg  *config.SchedulerConfig
	logger    *logrus.Logger
	seedRuns  int

	snapshots *cache.Cache[*models.Snapshot]
	analyses  *cache.Cache[*models.AnalysisResult]

	triggers chan request
	cron     *cron.Cron
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu     sync.RWMutex
	status Status
}

// Option configures a Service
type Option func(*Service)

// WithHistory records every new snapshot into store
func WithHistory(store history.Store) Option {
	return func(s *Service) {
		s.history = store
	}
}

// WithArchive writes every new snapshot and analysis into a
func WithArchive(a *archive.Archive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// WithSeedRuns sets how many archived analyses seed the baseline on Start
func WithSeedRuns(n int) Option {
	return func(s *Service) {
		s.seedRuns = n
	}
}

// WithCacheClock sets the clock of both caches
func WithCacheClock(now func() time.Time) Option {
	return func(s *Service) {
		s.snapshots = cache.New[*models.Snapshot](cache.WithClock(now))
		s.analyses = cache.New[*models.AnalysisResult](cache.WithClock(now))
	}
}

// New creates a Service. Start must be called for background refreshes.
func New(collector Collector, analyzer Analyzer, cacheCfg *config.CacheConfig, schedCfg *config.SchedulerConfig, logger *logrus.Logger, opts ...Option) *Service {
	if cacheCfg == nil {
		cacheCfg = config.DefaultCacheConfig()
	}
	if schedCfg == nil {
		schedCfg = config.DefaultSchedulerConfig()
	}
	queue := schedCfg.QueueSize
	if queue <= 0 {
		queue = 1
	}

	s := &Service{
		collector: collector,
		analyzer:  analyzer,
		cacheCfg:  cacheCfg,
		schedCfg:  schedCfg,
		logger:    logger,
		seedRuns:  config.DefaultAnalysisConfig().BaselineSeedRun,
		snapshots: cache.New[*models.Snapshot](),
		analyses:  cache.New[*models.AnalysisResult](),
		triggers:  make(chan request, queue),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// detach runs compute on a context that outlives the caller, bounded by the
// compute timeout.
func (s *Service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.cacheCfg.ComputeTimeout > 0 {
		return context.WithTimeout(detached, s.cacheCfg.ComputeTimeout)
	}
	return context.WithCancel(detached)
}

// Snapshot returns the fresh snapshot, collecting one when needed
func (s *Service) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	return s.snapshots.GetOrCompute(ctx, KeySnapshot, s.computeSnapshot, s.cacheCfg.SnapshotTTL)
}

// Analysis returns the fresh analysis, computing it (and the snapshot it
// depends on) when needed.
func (s *Service) Analysis(ctx context.Context) (*models.AnalysisResult, error) {
	return s.analyses.GetOrCompute(ctx, KeyAnalysis, s.computeAnalysis, s.cacheCfg.AnalysisTTL)
}

// CachedSnapshot returns the last snapshot without blocking, fresh or stale
func (s *Service) CachedSnapshot() (*models.Snapshot, bool) {
	return s.snapshots.Get(KeySnapshot)
}

// CachedAnalysis returns the last analysis without blocking, fresh or stale
func (s *Service) CachedAnalysis() (*models.AnalysisResult, bool) {
	return s.analyses.Get(KeyAnalysis)
}

// CacheInfo reports the state of both cache keys
func (s *Service) CacheInfo() []cache.EntryInfo {
	return []cache.EntryInfo{s.snapshots.Info(KeySnapshot), s.analyses.Info(KeyAnalysis)}
}

// ForceRefresh expires both keys and recomputes them. A compute already in
// flight is joined rather than duplicated.
func (s *Service) ForceRefresh(ctx context.Context) (*models.AnalysisResult, error) {
	s.snapshots.Invalidate(KeySnapshot)
	s.analyses.Invalidate(KeyAnalysis)
	return s.Analysis(ctx)
}

func (s *Service) computeSnapshot(ctx context.Context) (*models.Snapshot, error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()

	start := time.Now()
	snap, err := s.collector.Collect(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Snapshot collection failed")
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"timestamp":    snap.Timestamp,
		"repositories": snap.Metadata.TotalRepositories,
		"skipped":      snap.Metadata.SkippedItems,
		"duration":     time.Since(start).String(),
	})
	if s.history != nil {
		if err := s.history.Record(ctx, snap); err != nil {
			logger.WithError(err).Warn("Failed to record repository history")
		}
	}
	if s.archive != nil {
		if _, err := s.archive.WriteSnapshot(snap); err != nil {
			logger.WithError(err).Warn("Failed to archive snapshot")
		}
	}
	logger.Info("Snapshot collected")
	return snap, nil
}

func (s *Service) computeAnalysis(ctx context.Context) (*models.AnalysisResult, error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot for analysis: %w", err)
	}
	result, err := s.analyzer.Analyze(ctx, snap)
	if err != nil {
		s.logger.WithError(err).Error("Analysis failed")
		return nil, err
	}
	if s.archive != nil {
		if _, err := s.archive.WriteAnalysis(result); err != nil {
			s.logger.WithError(err).Warn("Failed to archive analysis")
		}
	}
	return result, nil
}

// Trigger queues a background refresh. It returns false when a refresh is
// already queued, in which case the request is coalesced into it.
func (s *Service) Trigger(reason string) bool {
	req := request{id: uuid.NewString(), reason: reason, queued: time.Now()}
	select {
	case s.triggers <- req:
		s.logger.WithFields(logrus.Fields{
			"request_id": req.id,
			"reason":     reason,
		}).Debug("Refresh queued")
		return true
	default:
		s.logger.WithField("reason", reason).Debug("Refresh already queued")
		return false
	}
}

// Start seeds the analyzer from the archive, starts the worker and the cron
// schedule, and queues a startup refresh when configured.
func (s *Service) Start(ctx context.Context) error {
	s.seedBaseline()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.cron = cron.New()
	schedule := fmt.Sprintf("@every %s", s.schedCfg.Interval)
	if _, err := s.cron.AddFunc(schedule, func() { s.Trigger(ReasonSchedule) }); err != nil {
		cancel()
		return fmt.Errorf("add refresh schedule: %w", err)
	}

	s.wg.Add(1)
	go s.worker(ctx)
	s.cron.Start()

	s.logger.WithField("interval", s.schedCfg.Interval.String()).Info("Refresh scheduler started")
	if s.schedCfg.RunOnStartup {
		s.Trigger(ReasonStartup)
	}
	return nil
}

// Stop halts the schedule and waits for the worker, which returns as soon as
// its context is cancelled. A compute already in flight keeps running on its
// detached context, bounded by the compute timeout, and still fills the cache.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.logger.Info("Refresh scheduler stopped")
	})
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.triggers:
			s.run(ctx, req)
		}
	}
}

func (s *Service) run(ctx context.Context, req request) {
	logger := s.logger.WithFields(logrus.Fields{
		"request_id": req.id,
		"reason":     req.reason,
	})
	logger.WithField("queued_for", time.Since(req.queued).String()).Info("Starting refresh")

	s.setRunning(req)
	start := time.Now()
	result, err := s.ForceRefresh(ctx)
	s.setDone(req, err)

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Info("Refresh abandoned on shutdown")
			return
		}
		logger.WithError(err).Error("Refresh failed")
		return
	}
	logger.WithFields(logrus.Fields{
		"duration":   time.Since(start).String(),
		"anomalies":  len(result.Anomalies),
		"risk_level": result.RiskAssessment.OverallRiskLevel,
	}).Info("Refresh completed")
}

// seedBaseline loads the feature vectors of the latest archived analyses
func (s *Service) seedBaseline() {
	seeder, ok := s.analyzer.(BaselineSeeder)
	if !ok || s.archive == nil {
		return
	}
	results, errs := s.archive.LatestAnalyses(s.seedRuns)
	for _, err := range errs {
		s.logger.WithError(err).Warn("Skipping unreadable archived analysis")
	}

	var vectors []models.FeatureVector
	// oldest first so the newest survive baseline trimming
	for i := len(results) - 1; i >= 0; i-- {
		vectors = append(vectors, results[i].Features...)
	}
	if len(vectors) == 0 {
		return
	}
	added := seeder.SeedBaseline(vectors)
	s.logger.WithFields(logrus.Fields{
		"analyses": len(results),
		"vectors":  added,
	}).Info("Seeded anomaly baseline from archive")
}

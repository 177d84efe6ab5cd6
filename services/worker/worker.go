package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/internal"
	"sjsage522/sailingworker/internal/crawler"
	"sjsage522/sailingworker/internal/identity"
	"sjsage522/sailingworker/internal/models"
	"sjsage522/sailingworker/internal/store"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/pkg/errors"
	"sjsage522/sailingworker/services/publisher"
)

// Options tunes a run
type Options struct {
	MaxConcurrency  int
	RunTimeout      time.Duration
	RunInterval     time.Duration
	RetentionWindow time.Duration
	DedupListings   bool
}

// Worker runs ingestion passes over every active scrape target
type Worker struct {
	store      store.Store
	registry   *crawler.Registry
	renderer   crawler.Renderer
	discoverer internal.Discoverer
	limiter    internal.Limiter
	publisher  publisher.Publisher
	logger     helpers.LoggerInterface
	opts       Options
	now        func() time.Time
	log        *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(deps internal.Dependencies, opts Options) *Worker {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	w := &Worker{
		store:      deps.Store,
		registry:   deps.Registry,
		renderer:   deps.Renderer,
		discoverer: deps.Discoverer,
		limiter:    deps.Limiter,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		opts:       opts,
		now:        time.Now,
		log:        logger.ForWorker(),
	}
	if w.registry == nil {
		w.registry = crawler.NewDefaultRegistry()
	}
	if w.publisher == nil {
		w.publisher = publisher.NopPublisher{}
	}
	if w.logger == nil {
		w.logger = helpers.NewLogger("")
	}
	return w
}

// Start runs passes every RunInterval until ctx is cancelled
func (w *Worker) Start(ctx context.Context) error {
	if w.opts.RunInterval <= 0 {
		return errors.NewConfiguration("run interval must be positive", nil)
	}
	for {
		start := time.Now()
		report, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.LogError("run", err)
		} else {
			w.logger.LogInfo("run finished in %s: %d/%d targets succeeded, %d trips upserted, %d pruned",
				time.Since(start).Round(time.Millisecond), report.TargetsSucceeded, report.TargetsProcessed,
				report.TripsUpserted, report.TripsPruned)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.opts.RunInterval):
		}
	}
}

// RunOnce processes every active target, then prunes expired trips and
// publishes the report. Target failures are recorded in the report; only a
// failure to list targets is returned as an error.
func (w *Worker) RunOnce(ctx context.Context) (*models.RunReport, error) {
	if w.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.RunTimeout)
		defer cancel()
	}

	report := &models.RunReport{StartedAt: w.now().UTC()}
	targets, err := w.store.ActiveTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}
	w.log.Info().Int("targets", len(targets)).Int("concurrency", w.opts.MaxConcurrency).Msg("run started")

	resolver := identity.NewResolver(w.store)
	outcomes := make([]models.TargetOutcome, len(targets))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(w.opts.MaxConcurrency)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			outcome, failures := w.runTarget(ctx, resolver, t)
			outcomes[i] = outcome

			mu.Lock()
			report.Failures = append(report.Failures, failures...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Outcomes = outcomes
	report.TargetsProcessed = len(outcomes)
	for _, o := range outcomes {
		if o.State == models.TargetSucceeded {
			report.TargetsSucceeded++
		}
		report.TripsUpserted += o.TripsUpserted
	}

	// cleanup runs once per pass regardless of target outcomes
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	cutoff := w.now().Add(-w.opts.RetentionWindow)
	pruned, err := w.store.PruneTrips(cleanupCtx, cutoff)
	if err != nil {
		w.logger.LogError("prune", err)
		report.Failures = append(report.Failures, failure("", "", err))
	}
	report.TripsPruned = pruned
	report.FinishedAt = w.now().UTC()

	if err := w.publisher.PublishReport(cleanupCtx, report); err != nil {
		w.logger.LogError("publish", err)
	}
	if err := w.publisher.TrimStreams(cleanupCtx); err != nil {
		w.logger.LogError("StreamTrimming", err)
	}
	return report, nil
}

// runTarget isolates one target: every error, panics included, ends up in
// the returned failures and the target's persisted status
func (w *Worker) runTarget(ctx context.Context, resolver *identity.Resolver, t models.ScrapeTarget) (outcome models.TargetOutcome, failures []models.Failure) {
	start := w.now()
	outcome = models.TargetOutcome{TargetID: t.ID, URL: t.URL, Platform: t.Platform, State: models.TargetRunning}
	label := t.URL
	log := logger.ForTarget(t.ID, t.URL)

	// status writes must land even when the run deadline has passed
	markCtx := context.WithoutCancel(ctx)
	if err := w.store.MarkTarget(markCtx, t.ID, models.TargetRunning, "", start); err != nil {
		w.logger.LogError(label, err)
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error().Bytes("stack", debug.Stack()).Msg("target panicked")
			failures = append(failures, failure(t.ID, t.URL, err))
			outcome.State = models.TargetFailed
		}

		status := fmt.Sprintf("%s: %d trips from %d listings", models.TargetSucceeded, outcome.TripsUpserted, outcome.Listings)
		if outcome.State != models.TargetSucceeded {
			outcome.State = models.TargetFailed
			status = string(models.TargetFailed)
			if len(failures) > 0 {
				last := failures[len(failures)-1]
				status = fmt.Sprintf("%s: %s: %s", models.TargetFailed, last.Type, last.Reason)
			}
		}
		outcome.Duration = w.now().Sub(start).Round(time.Millisecond).String()
		if err := w.store.MarkTarget(markCtx, t.ID, outcome.State, status, w.now()); err != nil {
			w.logger.LogError(label, err)
		}
	}()

	fail := func(err error) {
		w.logger.LogError(label, err)
		failures = append(failures, failure(t.ID, t.URL, err))
	}

	extractor, pageURL, err := w.plan(ctx, t)
	if err != nil {
		fail(err)
		return outcome, failures
	}
	outcome.Platform = extractor.Name()
	outcome.URL = pageURL

	listings, err := w.extract(ctx, extractor, pageURL)
	if err != nil {
		fail(err)
		return outcome, failures
	}
	if w.opts.DedupListings {
		listings = crawler.Dedup(listings)
	}
	outcome.Listings = len(listings)

	trips := make([]models.Trip, 0, len(listings))
	for _, l := range listings {
		trip, err := resolver.Resolve(ctx, t, l)
		if err != nil {
			fail(err)
			continue
		}
		trips = append(trips, *trip)
	}

	trips, collisions := identity.Collapse(pageURL, trips)
	for _, c := range collisions {
		fail(c)
	}

	for i := range trips {
		res, err := w.store.UpsertTrip(ctx, &trips[i])
		if err != nil {
			fail(err)
			continue
		}
		outcome.TripsUpserted++
		for _, childErr := range res.ChildErrors {
			fail(childErr)
		}
		if err := w.publisher.PublishTrip(ctx, &trips[i]); err != nil {
			log.Warn().Err(err).Str("trip", trips[i].Key()).Msg("trip not published")
		}
	}

	if len(trips) > 0 && outcome.TripsUpserted == 0 {
		return outcome, failures
	}
	outcome.State = models.TargetSucceeded
	log.Info().
		Str("platform", outcome.Platform).
		Int("listings", outcome.Listings).
		Int("upserted", outcome.TripsUpserted).
		Msg("target done")
	return outcome, failures
}

// plan picks the extractor and page for a target. A configured platform is
// trusted as is; otherwise the landing goes through discovery.
func (w *Worker) plan(ctx context.Context, t models.ScrapeTarget) (crawler.PlatformExtractor, string, error) {
	if t.Platform != "" {
		if e, ok := w.registry.ByName(t.Platform); ok {
			return e, t.URL, nil
		}
		w.log.Warn().Str("platform", t.Platform).Str("target", t.URL).Msg("unknown platform, detecting from url")
	}
	if e := w.registry.Select(t.URL); e != nil && e != w.registry.Fallback() {
		return e, t.URL, nil
	}
	if w.discoverer == nil {
		return nil, "", errors.NewDiscovery(t.URL, "no platform configured and discovery disabled")
	}

	name := t.URL
	if landing, err := w.store.Landing(ctx, t.LandingID); err == nil {
		name = landing.Name
	}
	res, err := w.discoverer.Discover(ctx, name, t.URL)
	if err != nil {
		return nil, "", err
	}
	w.log.Debug().Str("target", t.URL).Str("platform", res.Platform).Str("method", string(res.Method)).Msg("discovered")
	if e, ok := w.registry.ByName(res.Platform); ok {
		return e, res.URL, nil
	}
	return w.registry.Select(res.URL), res.URL, nil
}

// extract renders url and reads listings with e, then the generic fallback,
// then the pages e points at one hop away
func (w *Worker) extract(ctx context.Context, e crawler.PlatformExtractor, url string) ([]crawler.RawListing, error) {
	page, err := w.render(ctx, url)
	if err != nil {
		return nil, err
	}
	if listings := w.extractPage(e, page); len(listings) > 0 {
		return listings, nil
	}

	follower, ok := e.(crawler.LinkFollower)
	if !ok {
		return nil, nil
	}
	for _, link := range follower.FollowLinks(page) {
		linked, err := w.render(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			w.log.Debug().Err(err).Str("link", link).Msg("follow link failed")
			continue
		}
		if listings := w.extractPage(e, linked); len(listings) > 0 {
			return listings, nil
		}
	}
	return nil, nil
}

func (w *Worker) extractPage(e crawler.PlatformExtractor, page *crawler.Page) []crawler.RawListing {
	if listings := e.Extract(page); len(listings) > 0 {
		return listings
	}
	if fallback := w.registry.Fallback(); fallback != nil && fallback != e {
		return fallback.Extract(page)
	}
	return nil
}

func (w *Worker) render(ctx context.Context, url string) (*crawler.Page, error) {
	if err := crawler.WaitTurn(ctx, w.limiter, url); err != nil {
		return nil, err
	}
	return w.renderer.Render(ctx, url)
}

func failure(targetID, url string, err error) models.Failure {
	typ := string(errors.TypeOf(err))
	if typ == "" {
		typ = "error"
	}
	return models.Failure{TargetID: targetID, URL: url, Type: typ, Reason: err.Error()}
}

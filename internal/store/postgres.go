package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sjsage522/sailingworker/internal/heuristics"
	"sjsage522/sailingworker/internal/models"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/pkg/errors"
)

const defaultMaxConns = 4

// PostgresStore is the production store backed by a pgx pool
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresStore opens a pool against databaseURL and verifies it with a ping
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.NewConfiguration("invalid postgres url", err)
	}
	if cfg.MaxConns < defaultMaxConns {
		cfg.MaxConns = defaultMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool, log: logger.ForStore()}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ActiveTargets(ctx context.Context) ([]models.ScrapeTarget, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, landing_id, vessel_id, url, domain, parser, active,
		       last_run_at, last_success_at, COALESCE(last_status, '')
		FROM scrape_targets
		WHERE active
		ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var targets []models.ScrapeTarget
	for rows.Next() {
		var t models.ScrapeTarget
		if err := rows.Scan(&t.ID, &t.LandingID, &t.VesselID, &t.URL, &t.Domain, &t.Platform, &t.Active,
			&t.LastRunAt, &t.LastSuccessAt, &t.LastStatus); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func (s *PostgresStore) UpsertTarget(ctx context.Context, t *models.ScrapeTarget) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO scrape_targets (id, landing_id, vessel_id, url, domain, parser, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (landing_id, url) DO UPDATE SET
			vessel_id = COALESCE(EXCLUDED.vessel_id, scrape_targets.vessel_id),
			domain = EXCLUDED.domain,
			parser = EXCLUDED.parser,
			active = EXCLUDED.active
		RETURNING id`,
		t.ID, t.LandingID, t.VesselID, t.URL, t.Domain, t.Platform, t.Active).Scan(&t.ID)
	if err != nil {
		return errors.NewWrite(t.URL, "target upsert rejected", err)
	}
	return nil
}

func (s *PostgresStore) MarkTarget(ctx context.Context, targetID string, state models.TargetState, status string, at time.Time) error {
	status = statusFor(state, status)
	var err error
	switch state {
	case models.TargetRunning:
		_, err = s.pool.Exec(ctx, `UPDATE scrape_targets SET last_run_at = $2, last_status = $3 WHERE id = $1`,
			targetID, at.UTC(), status)
	case models.TargetSucceeded:
		_, err = s.pool.Exec(ctx, `UPDATE scrape_targets SET last_success_at = $2, last_status = $3 WHERE id = $1`,
			targetID, at.UTC(), status)
	default:
		_, err = s.pool.Exec(ctx, `UPDATE scrape_targets SET last_status = $2 WHERE id = $1`, targetID, status)
	}
	if err != nil {
		return errors.NewWrite(targetID, "target status update rejected", err)
	}
	return nil
}

func (s *PostgresStore) Landing(ctx context.Context, id string) (*models.Landing, error) {
	var l models.Landing
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, COALESCE(website, '') FROM landings WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Slug, &l.Website)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load landing %s: %w", id, err)
	}
	return &l, nil
}

func (s *PostgresStore) UpsertLanding(ctx context.Context, l *models.Landing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO landings (id, name, slug, website) VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			website = COALESCE(EXCLUDED.website, landings.website)
		RETURNING id`,
		l.ID, l.Name, l.Slug, nullString(l.Website)).Scan(&l.ID)
	if err != nil {
		return errors.NewWrite(l.Slug, "landing upsert rejected", err)
	}
	return nil
}

func (s *PostgresStore) UpsertVessel(ctx context.Context, v *models.Vessel, landingID string) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO vessels (id, name, slug, primary_website) VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			primary_website = COALESCE(EXCLUDED.primary_website, vessels.primary_website)
		RETURNING id`,
		v.ID, v.Name, v.Slug, nullString(v.PrimaryWebsite)).Scan(&v.ID)
	if err != nil {
		return errors.NewWrite(v.Slug, "vessel upsert rejected", err)
	}
	if landingID != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO vessel_landings (vessel_id, landing_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, v.ID, landingID); err != nil {
			return errors.NewWrite(v.Slug, "vessel landing link rejected", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) VesselsForLanding(ctx context.Context, landingID string) ([]models.Vessel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT v.id, v.name, v.slug, COALESCE(v.primary_website, '')
		FROM vessels v
		JOIN vessel_landings vl ON vl.vessel_id = v.id
		WHERE vl.landing_id = $1 AND v.id <> $2
		ORDER BY v.name`, landingID, placeholderID(landingID))
	if err != nil {
		return nil, fmt.Errorf("failed to query vessels: %w", err)
	}
	defer rows.Close()

	var vessels []models.Vessel
	for rows.Next() {
		var v models.Vessel
		if err := rows.Scan(&v.ID, &v.Name, &v.Slug, &v.PrimaryWebsite); err != nil {
			return nil, fmt.Errorf("failed to scan vessel: %w", err)
		}
		vessels = append(vessels, v)
	}
	return vessels, rows.Err()
}

func (s *PostgresStore) EnsurePlaceholderVessel(ctx context.Context, landingID string) (*models.Vessel, error) {
	v := &models.Vessel{
		ID:   placeholderID(landingID),
		Name: PlaceholderName,
		Slug: "virt-" + landingID,
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO vessels (id, name, slug) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`, v.ID, v.Name, v.Slug); err != nil {
		return nil, errors.NewWrite(landingID, "placeholder vessel rejected", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO vessel_landings (vessel_id, landing_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, v.ID, landingID); err != nil {
		return nil, errors.NewWrite(landingID, "placeholder vessel link rejected", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit placeholder vessel: %w", err)
	}
	return v, nil
}

const pgUpsertTrip = `
	INSERT INTO trips (
		id, source, source_trip_id, source_url, landing_id, vessel_id, title, notes,
		passport_req, meals_incl, permits_incl, depart_local, return_local, timezone,
		load, spots, status, price_includes_fees, service_fee_pct,
		last_scraped_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $20, $20)
	ON CONFLICT (source, source_trip_id) DO UPDATE SET
		source_url = EXCLUDED.source_url,
		landing_id = EXCLUDED.landing_id,
		vessel_id = COALESCE(EXCLUDED.vessel_id, trips.vessel_id),
		title = EXCLUDED.title,
		notes = COALESCE(EXCLUDED.notes, trips.notes),
		passport_req = EXCLUDED.passport_req,
		meals_incl = EXCLUDED.meals_incl,
		permits_incl = EXCLUDED.permits_incl,
		depart_local = EXCLUDED.depart_local,
		return_local = COALESCE(EXCLUDED.return_local, trips.return_local),
		timezone = EXCLUDED.timezone,
		load = COALESCE(EXCLUDED.load, trips.load),
		spots = COALESCE(EXCLUDED.spots, trips.spots),
		status = EXCLUDED.status,
		price_includes_fees = EXCLUDED.price_includes_fees,
		service_fee_pct = COALESCE(EXCLUDED.service_fee_pct, trips.service_fee_pct),
		last_scraped_at = EXCLUDED.last_scraped_at,
		updated_at = EXCLUDED.updated_at
	RETURNING id`

func (s *PostgresStore) UpsertTrip(ctx context.Context, trip *models.Trip) (UpsertResult, error) {
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	now := trip.LastScrapedAt
	if now.IsZero() {
		now = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return UpsertResult{}, errors.NewWrite(trip.SourceURL, "cannot begin trip transaction", err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, pgUpsertTrip,
		trip.ID, string(trip.Source), trip.SourceTripID, trip.SourceURL, trip.LandingID, trip.VesselID,
		trip.Title, nullString(trip.Notes), trip.PassportReq, trip.MealsIncl, trip.PermitsIncl,
		trip.DepartLocal, trip.ReturnLocal, trip.Timezone, trip.Load, trip.Spots, trip.Status,
		trip.PriceIncludesFees, trip.ServiceFeePct, now.UTC()).Scan(&id)
	if err != nil {
		return UpsertResult{}, errors.NewWrite(trip.SourceURL, "trip upsert rejected", err)
	}

	result := UpsertResult{TripID: id, Inserted: id == trip.ID}
	trip.ID = id

	if err := pgSavepoint(ctx, tx, func(sp pgx.Tx) error { return pgReplaceTiers(ctx, sp, trip) }); err != nil {
		s.log.Warn().Err(err).Str("trip", trip.Key()).Msg("fare tiers not replaced")
		result.ChildErrors = append(result.ChildErrors, errors.NewWrite(trip.SourceURL, "fare tiers not replaced", err))
	}
	if len(trip.Promotions) > 0 {
		if err := pgSavepoint(ctx, tx, func(sp pgx.Tx) error { return pgAddPromotions(ctx, sp, trip) }); err != nil {
			s.log.Warn().Err(err).Str("trip", trip.Key()).Msg("promotion not recorded")
			result.ChildErrors = append(result.ChildErrors, errors.NewWrite(trip.SourceURL, "promotion not recorded", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, errors.NewWrite(trip.SourceURL, "trip commit failed", err)
	}
	return result, nil
}

// pgSavepoint runs fn inside a nested transaction so its failure only
// discards its own statements
func pgSavepoint(ctx context.Context, tx pgx.Tx, fn func(pgx.Tx) error) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func pgReplaceTiers(ctx context.Context, tx pgx.Tx, trip *models.Trip) error {
	if _, err := tx.Exec(ctx, `DELETE FROM fare_tiers WHERE trip_id = $1`, trip.ID); err != nil {
		return err
	}
	for i, tier := range trip.FareTiers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO fare_tiers (id, trip_id, position, type, label, price_cents, currency, min_age, max_age, conditions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.NewString(), trip.ID, i, string(tier.Type), tier.Label, tier.PriceCents, tier.Currency,
			tier.MinAge, tier.MaxAge, nullString(tier.Conditions)); err != nil {
			return err
		}
	}
	return nil
}

func pgAddPromotions(ctx context.Context, tx pgx.Tx, trip *models.Trip) error {
	for _, p := range trip.Promotions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO trip_promotions (id, trip_id, slug, summary, details, applies_when)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (trip_id, slug) DO NOTHING`,
			uuid.NewString(), trip.ID, p.Slug, p.Summary, nullString(p.Details), nullString(p.AppliesWhen)); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Trip(ctx context.Context, source models.Source, sourceTripID string) (*models.Trip, error) {
	var t models.Trip
	var src string
	var notes *string
	var returnLocal *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT id, source, source_trip_id, source_url, landing_id, vessel_id, title, notes,
		       passport_req, meals_incl, permits_incl, depart_local, return_local, timezone,
		       load, spots, status, price_includes_fees, service_fee_pct,
		       last_scraped_at, created_at, updated_at
		FROM trips WHERE source = $1 AND source_trip_id = $2`, string(source), sourceTripID).
		Scan(&t.ID, &src, &t.SourceTripID, &t.SourceURL, &t.LandingID, &t.VesselID, &t.Title, &notes,
			&t.PassportReq, &t.MealsIncl, &t.PermitsIncl, &t.DepartLocal, &returnLocal, &t.Timezone,
			&t.Load, &t.Spots, &t.Status, &t.PriceIncludesFees, &t.ServiceFeePct,
			&t.LastScrapedAt, &t.CreatedAt, &t.UpdatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}
	t.Source = models.Source(src)
	if notes != nil {
		t.Notes = *notes
	}
	t.DepartLocal = t.DepartLocal.In(heuristics.Location)
	if returnLocal != nil {
		r := returnLocal.In(heuristics.Location)
		t.ReturnLocal = &r
	}

	rows, err := s.pool.Query(ctx, `
		SELECT type, label, price_cents, currency, min_age, max_age, COALESCE(conditions, '')
		FROM fare_tiers WHERE trip_id = $1 ORDER BY position`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fare tiers: %w", err)
	}
	for rows.Next() {
		var tier models.FareTier
		var typ string
		if err := rows.Scan(&typ, &tier.Label, &tier.PriceCents, &tier.Currency, &tier.MinAge, &tier.MaxAge, &tier.Conditions); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan fare tier: %w", err)
		}
		tier.Type = models.FareType(typ)
		t.FareTiers = append(t.FareTiers, tier)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT slug, summary, COALESCE(details, ''), COALESCE(applies_when, '')
		FROM trip_promotions WHERE trip_id = $1 ORDER BY slug`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load promotions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.TripPromotion
		if err := rows.Scan(&p.Slug, &p.Summary, &p.Details, &p.AppliesWhen); err != nil {
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		t.Promotions = append(t.Promotions, p)
	}
	return &t, rows.Err()
}

func (s *PostgresStore) CountTrips(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) PruneTrips(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM trips WHERE COALESCE(return_local, depart_local) < $1`, cutoff.UTC())
	if err != nil {
		return 0, errors.NewWrite("trips", "prune rejected", err)
	}
	return tag.RowsAffected(), nil
}

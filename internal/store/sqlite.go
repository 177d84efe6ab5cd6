package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sjsage522/sailingworker/internal/heuristics"
	"sjsage522/sailingworker/internal/models"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/pkg/errors"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLiteStore is the embedded store used for local runs and tests. It holds a
// single connection, so ":memory:" databases survive across calls.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSQLiteStore opens path with the modernc driver and enables foreign keys
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure sqlite: %w", err)
		}
	}
	return &SQLiteStore{db: db, log: logger.ForStore()}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func sqliteTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := sqliteTime(*t)
	return &s
}

func parseSQLiteTime(s string) time.Time {
	t, err := time.ParseInLocation(sqliteTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseSQLiteNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseSQLiteTime(ns.String)
	return &t
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func (s *SQLiteStore) ActiveTargets(ctx context.Context) ([]models.ScrapeTarget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, landing_id, vessel_id, url, domain, parser, active,
		       last_run_at, last_success_at, COALESCE(last_status, '')
		FROM scrape_targets
		WHERE active = 1
		ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var targets []models.ScrapeTarget
	for rows.Next() {
		var t models.ScrapeTarget
		var vesselID, lastRun, lastSuccess sql.NullString
		if err := rows.Scan(&t.ID, &t.LandingID, &vesselID, &t.URL, &t.Domain, &t.Platform, &t.Active,
			&lastRun, &lastSuccess, &t.LastStatus); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		t.VesselID = stringPtr(vesselID)
		t.LastRunAt = parseSQLiteNullTime(lastRun)
		t.LastSuccessAt = parseSQLiteNullTime(lastSuccess)
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func (s *SQLiteStore) UpsertTarget(ctx context.Context, t *models.ScrapeTarget) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scrape_targets (id, landing_id, vessel_id, url, domain, parser, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (landing_id, url) DO UPDATE SET
			vessel_id = COALESCE(excluded.vessel_id, scrape_targets.vessel_id),
			domain = excluded.domain,
			parser = excluded.parser,
			active = excluded.active
		RETURNING id`,
		t.ID, t.LandingID, t.VesselID, t.URL, t.Domain, t.Platform, t.Active).Scan(&t.ID)
	if err != nil {
		return errors.NewWrite(t.URL, "target upsert rejected", err)
	}
	return nil
}

func (s *SQLiteStore) MarkTarget(ctx context.Context, targetID string, state models.TargetState, status string, at time.Time) error {
	status = statusFor(state, status)
	var err error
	switch state {
	case models.TargetRunning:
		_, err = s.db.ExecContext(ctx, `UPDATE scrape_targets SET last_run_at = ?, last_status = ? WHERE id = ?`,
			sqliteTime(at), status, targetID)
	case models.TargetSucceeded:
		_, err = s.db.ExecContext(ctx, `UPDATE scrape_targets SET last_success_at = ?, last_status = ? WHERE id = ?`,
			sqliteTime(at), status, targetID)
	default:
		_, err = s.db.ExecContext(ctx, `UPDATE scrape_targets SET last_status = ? WHERE id = ?`, status, targetID)
	}
	if err != nil {
		return errors.NewWrite(targetID, "target status update rejected", err)
	}
	return nil
}

func (s *SQLiteStore) Landing(ctx context.Context, id string) (*models.Landing, error) {
	var l models.Landing
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, COALESCE(website, '') FROM landings WHERE id = ?`, id).
		Scan(&l.ID, &l.Name, &l.Slug, &l.Website)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load landing %s: %w", id, err)
	}
	return &l, nil
}

func (s *SQLiteStore) UpsertLanding(ctx context.Context, l *models.Landing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO landings (id, name, slug, website) VALUES (?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			website = COALESCE(excluded.website, landings.website)
		RETURNING id`,
		l.ID, l.Name, l.Slug, nullString(l.Website)).Scan(&l.ID)
	if err != nil {
		return errors.NewWrite(l.Slug, "landing upsert rejected", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertVessel(ctx context.Context, v *models.Vessel, landingID string) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO vessels (id, name, slug, primary_website) VALUES (?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			primary_website = COALESCE(excluded.primary_website, vessels.primary_website)
		RETURNING id`,
		v.ID, v.Name, v.Slug, nullString(v.PrimaryWebsite)).Scan(&v.ID)
	if err != nil {
		return errors.NewWrite(v.Slug, "vessel upsert rejected", err)
	}
	if landingID != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO vessel_landings (vessel_id, landing_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING`, v.ID, landingID); err != nil {
			return errors.NewWrite(v.Slug, "vessel landing link rejected", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) VesselsForLanding(ctx context.Context, landingID string) ([]models.Vessel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.name, v.slug, COALESCE(v.primary_website, '')
		FROM vessels v
		JOIN vessel_landings vl ON vl.vessel_id = v.id
		WHERE vl.landing_id = ? AND v.id <> ?
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

func (s *SQLiteStore) EnsurePlaceholderVessel(ctx context.Context, landingID string) (*models.Vessel, error) {
	v := &models.Vessel{
		ID:   placeholderID(landingID),
		Name: PlaceholderName,
		Slug: "virt-" + landingID,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO vessels (id, name, slug) VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING`, v.ID, v.Name, v.Slug); err != nil {
		return nil, errors.NewWrite(landingID, "placeholder vessel rejected", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO vessel_landings (vessel_id, landing_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`, v.ID, landingID); err != nil {
		return nil, errors.NewWrite(landingID, "placeholder vessel link rejected", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit placeholder vessel: %w", err)
	}
	return v, nil
}

const sqliteUpsertTrip = `
	INSERT INTO trips (
		id, source, source_trip_id, source_url, landing_id, vessel_id, title, notes,
		passport_req, meals_incl, permits_incl, depart_local, return_local, timezone,
		load, spots, status, price_includes_fees, service_fee_pct,
		last_scraped_at, created_at, updated_at)
	VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14, ?15, ?16, ?17, ?18, ?19, ?20, ?20, ?20)
	ON CONFLICT (source, source_trip_id) DO UPDATE SET
		source_url = excluded.source_url,
		landing_id = excluded.landing_id,
		vessel_id = COALESCE(excluded.vessel_id, trips.vessel_id),
		title = excluded.title,
		notes = COALESCE(excluded.notes, trips.notes),
		passport_req = excluded.passport_req,
		meals_incl = excluded.meals_incl,
		permits_incl = excluded.permits_incl,
		depart_local = excluded.depart_local,
		return_local = COALESCE(excluded.return_local, trips.return_local),
		timezone = excluded.timezone,
		load = COALESCE(excluded.load, trips.load),
		spots = COALESCE(excluded.spots, trips.spots),
		status = excluded.status,
		price_includes_fees = excluded.price_includes_fees,
		service_fee_pct = COALESCE(excluded.service_fee_pct, trips.service_fee_pct),
		last_scraped_at = excluded.last_scraped_at,
		updated_at = excluded.updated_at
	RETURNING id`

func (s *SQLiteStore) UpsertTrip(ctx context.Context, trip *models.Trip) (UpsertResult, error) {
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	now := trip.LastScrapedAt
	if now.IsZero() {
		now = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, errors.NewWrite(trip.SourceURL, "cannot begin trip transaction", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, sqliteUpsertTrip,
		trip.ID, string(trip.Source), trip.SourceTripID, trip.SourceURL, trip.LandingID, trip.VesselID,
		trip.Title, nullString(trip.Notes), trip.PassportReq, trip.MealsIncl, trip.PermitsIncl,
		sqliteTime(trip.DepartLocal), sqliteTimePtr(trip.ReturnLocal), trip.Timezone, trip.Load, trip.Spots,
		trip.Status, trip.PriceIncludesFees, trip.ServiceFeePct, sqliteTime(now)).Scan(&id)
	if err != nil {
		return UpsertResult{}, errors.NewWrite(trip.SourceURL, "trip upsert rejected", err)
	}

	result := UpsertResult{TripID: id, Inserted: id == trip.ID}
	trip.ID = id

	if err := sqliteSavepoint(ctx, tx, "fare_tiers", func() error { return sqliteReplaceTiers(ctx, tx, trip) }); err != nil {
		s.log.Warn().Err(err).Str("trip", trip.Key()).Msg("fare tiers not replaced")
		result.ChildErrors = append(result.ChildErrors, errors.NewWrite(trip.SourceURL, "fare tiers not replaced", err))
	}
	if len(trip.Promotions) > 0 {
		if err := sqliteSavepoint(ctx, tx, "promotions", func() error { return sqliteAddPromotions(ctx, tx, trip) }); err != nil {
			s.log.Warn().Err(err).Str("trip", trip.Key()).Msg("promotion not recorded")
			result.ChildErrors = append(result.ChildErrors, errors.NewWrite(trip.SourceURL, "promotion not recorded", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, errors.NewWrite(trip.SourceURL, "trip commit failed", err)
	}
	return result, nil
}

func sqliteSavepoint(ctx context.Context, tx *sql.Tx, name string, fn func() error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}
	if err := fn(); err != nil {
		_, _ = tx.ExecContext(ctx, "ROLLBACK TO "+name)
		_, _ = tx.ExecContext(ctx, "RELEASE "+name)
		return err
	}
	_, err := tx.ExecContext(ctx, "RELEASE "+name)
	return err
}

func sqliteReplaceTiers(ctx context.Context, tx *sql.Tx, trip *models.Trip) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM fare_tiers WHERE trip_id = ?`, trip.ID); err != nil {
		return err
	}
	for i, tier := range trip.FareTiers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fare_tiers (id, trip_id, position, type, label, price_cents, currency, min_age, max_age, conditions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), trip.ID, i, string(tier.Type), tier.Label, tier.PriceCents, tier.Currency,
			tier.MinAge, tier.MaxAge, nullString(tier.Conditions)); err != nil {
			return err
		}
	}
	return nil
}

func sqliteAddPromotions(ctx context.Context, tx *sql.Tx, trip *models.Trip) error {
	for _, p := range trip.Promotions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trip_promotions (id, trip_id, slug, summary, details, applies_when)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (trip_id, slug) DO NOTHING`,
			uuid.NewString(), trip.ID, p.Slug, p.Summary, nullString(p.Details), nullString(p.AppliesWhen)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Trip(ctx context.Context, source models.Source, sourceTripID string) (*models.Trip, error) {
	var t models.Trip
	var src, depart, lastScraped, created, updated string
	var vesselID, notes, returnLocal sql.NullString
	var load, spots sql.NullInt64
	var fee sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, source_trip_id, source_url, landing_id, vessel_id, title, notes,
		       passport_req, meals_incl, permits_incl, depart_local, return_local, timezone,
		       load, spots, status, price_includes_fees, service_fee_pct,
		       last_scraped_at, created_at, updated_at
		FROM trips WHERE source = ? AND source_trip_id = ?`, string(source), sourceTripID).
		Scan(&t.ID, &src, &t.SourceTripID, &t.SourceURL, &t.LandingID, &vesselID, &t.Title, &notes,
			&t.PassportReq, &t.MealsIncl, &t.PermitsIncl, &depart, &returnLocal, &t.Timezone,
			&load, &spots, &t.Status, &t.PriceIncludesFees, &fee,
			&lastScraped, &created, &updated)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}

	t.Source = models.Source(src)
	t.VesselID = stringPtr(vesselID)
	t.Notes = notes.String
	t.DepartLocal = parseSQLiteTime(depart).In(heuristics.Location)
	if r := parseSQLiteNullTime(returnLocal); r != nil {
		local := r.In(heuristics.Location)
		t.ReturnLocal = &local
	}
	t.Load = intPtr(load)
	t.Spots = intPtr(spots)
	if fee.Valid {
		t.ServiceFeePct = &fee.Float64
	}
	t.LastScrapedAt = parseSQLiteTime(lastScraped)
	t.CreatedAt = parseSQLiteTime(created)
	t.UpdatedAt = parseSQLiteTime(updated)

	if t.FareTiers, err = s.tiers(ctx, t.ID); err != nil {
		return nil, err
	}
	if t.Promotions, err = s.promotions(ctx, t.ID); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) tiers(ctx context.Context, tripID string) ([]models.FareTier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, label, price_cents, currency, min_age, max_age, COALESCE(conditions, '')
		FROM fare_tiers WHERE trip_id = ? ORDER BY position`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fare tiers: %w", err)
	}
	defer rows.Close()

	var tiers []models.FareTier
	for rows.Next() {
		var tier models.FareTier
		var typ string
		var minAge, maxAge sql.NullInt64
		if err := rows.Scan(&typ, &tier.Label, &tier.PriceCents, &tier.Currency, &minAge, &maxAge, &tier.Conditions); err != nil {
			return nil, fmt.Errorf("failed to scan fare tier: %w", err)
		}
		tier.Type = models.FareType(typ)
		tier.MinAge = intPtr(minAge)
		tier.MaxAge = intPtr(maxAge)
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}

func (s *SQLiteStore) promotions(ctx context.Context, tripID string) ([]models.TripPromotion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, summary, COALESCE(details, ''), COALESCE(applies_when, '')
		FROM trip_promotions WHERE trip_id = ? ORDER BY slug`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load promotions: %w", err)
	}
	defer rows.Close()

	var promos []models.TripPromotion
	for rows.Next() {
		var p models.TripPromotion
		if err := rows.Scan(&p.Slug, &p.Summary, &p.Details, &p.AppliesWhen); err != nil {
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

func (s *SQLiteStore) CountTrips(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) PruneTrips(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM trips WHERE COALESCE(return_local, depart_local) < ?`, sqliteTime(cutoff))
	if err != nil {
		return 0, errors.NewWrite("trips", "prune rejected", err)
	}
	return res.RowsAffected()
}

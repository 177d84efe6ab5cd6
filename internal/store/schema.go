package store

// postgresSchema is applied statement by statement by Migrate
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS landings (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		slug    TEXT NOT NULL UNIQUE,
		website TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS vessels (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		slug            TEXT NOT NULL UNIQUE,
		primary_website TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS vessel_landings (
		vessel_id       TEXT NOT NULL REFERENCES vessels(id) ON DELETE CASCADE,
		landing_id      TEXT NOT NULL REFERENCES landings(id) ON DELETE CASCADE,
		vessel_page_url TEXT,
		PRIMARY KEY (vessel_id, landing_id)
	)`,
	`CREATE TABLE IF NOT EXISTS scrape_targets (
		id              TEXT PRIMARY KEY,
		landing_id      TEXT NOT NULL REFERENCES landings(id),
		vessel_id       TEXT REFERENCES vessels(id),
		url             TEXT NOT NULL,
		domain          TEXT NOT NULL DEFAULT '',
		parser          TEXT NOT NULL DEFAULT '',
		active          BOOLEAN NOT NULL DEFAULT TRUE,
		last_run_at     TIMESTAMPTZ,
		last_success_at TIMESTAMPTZ,
		last_status     TEXT,
		UNIQUE (landing_id, url)
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id                  TEXT PRIMARY KEY,
		source              TEXT NOT NULL,
		source_trip_id      TEXT NOT NULL,
		source_url          TEXT NOT NULL,
		landing_id          TEXT NOT NULL REFERENCES landings(id),
		vessel_id           TEXT REFERENCES vessels(id),
		title               TEXT NOT NULL,
		notes               TEXT,
		passport_req        BOOLEAN NOT NULL DEFAULT FALSE,
		meals_incl          BOOLEAN NOT NULL DEFAULT FALSE,
		permits_incl        BOOLEAN NOT NULL DEFAULT FALSE,
		depart_local        TIMESTAMPTZ NOT NULL,
		return_local        TIMESTAMPTZ,
		timezone            TEXT NOT NULL,
		load                INTEGER,
		spots               INTEGER,
		status              TEXT NOT NULL,
		price_includes_fees BOOLEAN NOT NULL DEFAULT FALSE,
		service_fee_pct     DOUBLE PRECISION,
		last_scraped_at     TIMESTAMPTZ NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL,
		UNIQUE (source, source_trip_id)
	)`,
	`CREATE INDEX IF NOT EXISTS trips_depart_local_idx ON trips (depart_local)`,
	`CREATE TABLE IF NOT EXISTS fare_tiers (
		id          TEXT PRIMARY KEY,
		trip_id     TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		type        TEXT NOT NULL,
		label       TEXT NOT NULL,
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		currency    TEXT NOT NULL,
		min_age     INTEGER,
		max_age     INTEGER,
		conditions  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS fare_tiers_trip_idx ON fare_tiers (trip_id)`,
	`CREATE TABLE IF NOT EXISTS trip_promotions (
		id           TEXT PRIMARY KEY,
		trip_id      TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		slug         TEXT NOT NULL,
		summary      TEXT NOT NULL,
		details      TEXT,
		applies_when TEXT,
		UNIQUE (trip_id, slug)
	)`,
}

// sqliteSchema mirrors postgresSchema. Times are UTC text in sqliteTimeLayout,
// which sorts lexically in time order.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS landings (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		slug    TEXT NOT NULL UNIQUE,
		website TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS vessels (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		slug            TEXT NOT NULL UNIQUE,
		primary_website TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS vessel_landings (
		vessel_id       TEXT NOT NULL REFERENCES vessels(id) ON DELETE CASCADE,
		landing_id      TEXT NOT NULL REFERENCES landings(id) ON DELETE CASCADE,
		vessel_page_url TEXT,
		PRIMARY KEY (vessel_id, landing_id)
	)`,
	`CREATE TABLE IF NOT EXISTS scrape_targets (
		id              TEXT PRIMARY KEY,
		landing_id      TEXT NOT NULL REFERENCES landings(id),
		vessel_id       TEXT REFERENCES vessels(id),
		url             TEXT NOT NULL,
		domain          TEXT NOT NULL DEFAULT '',
		parser          TEXT NOT NULL DEFAULT '',
		active          INTEGER NOT NULL DEFAULT 1,
		last_run_at     TEXT,
		last_success_at TEXT,
		last_status     TEXT,
		UNIQUE (landing_id, url)
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id                  TEXT PRIMARY KEY,
		source              TEXT NOT NULL,
		source_trip_id      TEXT NOT NULL,
		source_url          TEXT NOT NULL,
		landing_id          TEXT NOT NULL REFERENCES landings(id),
		vessel_id           TEXT REFERENCES vessels(id),
		title               TEXT NOT NULL,
		notes               TEXT,
		passport_req        INTEGER NOT NULL DEFAULT 0,
		meals_incl          INTEGER NOT NULL DEFAULT 0,
		permits_incl        INTEGER NOT NULL DEFAULT 0,
		depart_local        TEXT NOT NULL,
		return_local        TEXT,
		timezone            TEXT NOT NULL,
		load                INTEGER,
		spots               INTEGER,
		status              TEXT NOT NULL,
		price_includes_fees INTEGER NOT NULL DEFAULT 0,
		service_fee_pct     REAL,
		last_scraped_at     TEXT NOT NULL,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL,
		UNIQUE (source, source_trip_id)
	)`,
	`CREATE INDEX IF NOT EXISTS trips_depart_local_idx ON trips (depart_local)`,
	`CREATE TABLE IF NOT EXISTS fare_tiers (
		id          TEXT PRIMARY KEY,
		trip_id     TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		type        TEXT NOT NULL,
		label       TEXT NOT NULL,
		price_cents INTEGER NOT NULL CHECK (price_cents >= 0),
		currency    TEXT NOT NULL,
		min_age     INTEGER,
		max_age     INTEGER,
		conditions  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS fare_tiers_trip_idx ON fare_tiers (trip_id)`,
	`CREATE TABLE IF NOT EXISTS trip_promotions (
		id           TEXT PRIMARY KEY,
		trip_id      TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		slug         TEXT NOT NULL,
		summary      TEXT NOT NULL,
		details      TEXT,
		applies_when TEXT,
		UNIQUE (trip_id, slug)
	)`,
}

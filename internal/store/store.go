package store

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"sjsage522/sailingworker/internal/models"
	"sjsage522/sailingworker/pkg/errors"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = stderrors.New("not found")

// Placeholder vessel naming for landings whose listings carry no vessel
const (
	PlaceholderPrefix = "virt_"
	PlaceholderName   = "Landing Schedule"
)

// UpsertResult describes one applied trip. ChildErrors holds fare tier or
// promotion failures; the trip header was still committed.
type UpsertResult struct {
	TripID      string
	Inserted    bool
	ChildErrors []error
}

// Store is the write contract of the ingestion core plus the reference data
// reads identity resolution needs
type Store interface {
	// Migrate creates the schema if it does not exist
	Migrate(ctx context.Context) error

	ActiveTargets(ctx context.Context) ([]models.ScrapeTarget, error)
	UpsertTarget(ctx context.Context, t *models.ScrapeTarget) error
	// MarkTarget records a state transition. RUNNING stamps last_run_at,
	// SUCCEEDED stamps last_success_at; every state sets last_status.
	MarkTarget(ctx context.Context, targetID string, state models.TargetState, status string, at time.Time) error

	Landing(ctx context.Context, id string) (*models.Landing, error)
	UpsertLanding(ctx context.Context, l *models.Landing) error
	UpsertVessel(ctx context.Context, v *models.Vessel, landingID string) error
	VesselsForLanding(ctx context.Context, landingID string) ([]models.Vessel, error)
	EnsurePlaceholderVessel(ctx context.Context, landingID string) (*models.Vessel, error)

	// UpsertTrip inserts or updates the trip keyed by (source, source_trip_id),
	// replaces its fare tiers and adds missing promotions in one transaction.
	// Load, spots, return time, vessel and fee keep their stored values when
	// the new observation lacks them.
	UpsertTrip(ctx context.Context, trip *models.Trip) (UpsertResult, error)
	Trip(ctx context.Context, source models.Source, sourceTripID string) (*models.Trip, error)
	CountTrips(ctx context.Context) (int64, error)
	// PruneTrips deletes trips whose return (or depart, when unknown) is before cutoff
	PruneTrips(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// Open picks the backend from the URL scheme: postgres:// and postgresql://
// use pgx, sqlite: and file: use the embedded driver
func Open(ctx context.Context, databaseURL string) (Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPostgresStore(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(databaseURL, "sqlite:"), "//")
		return NewSQLiteStore(ctx, path)
	case strings.HasPrefix(databaseURL, "file:"), databaseURL == ":memory:":
		return NewSQLiteStore(ctx, databaseURL)
	default:
		return nil, errors.NewConfiguration("unsupported DATABASE_URL scheme: "+databaseURL, nil)
	}
}

func placeholderID(landingID string) string {
	return PlaceholderPrefix + landingID
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func statusFor(state models.TargetState, status string) string {
	if status != "" {
		return status
	}
	return string(state)
}

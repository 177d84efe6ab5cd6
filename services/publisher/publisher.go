package publisher

import (
	"context"

	"sjsage522/sailingworker/internal/models"
)

// Publisher announces ingestion results to downstream consumers
type Publisher interface {
	// PublishTrip announces one upserted trip
	PublishTrip(ctx context.Context, trip *models.Trip) error

	// PublishReport announces the summary of a finished run
	PublishReport(ctx context.Context, report *models.RunReport) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}

// NopPublisher drops everything; used when publishing is disabled
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) PublishTrip(context.Context, *models.Trip) error        { return nil }
func (NopPublisher) PublishReport(context.Context, *models.RunReport) error { return nil }
func (NopPublisher) TrimStreams(context.Context) error                      { return nil }
func (NopPublisher) Close() error                                           { return nil }

package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/sailingworker/internal/models"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	prefix := "test_sailings_" + time.Now().Format("150405.000000")
	publisher := NewRedisPublisher("localhost:6379", 0, prefix, 2)
	defer publisher.Close()

	if err := publisher.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 0})
	defer client.Close()
	defer client.Del(ctx, publisher.Stream(TripsStream), publisher.Stream(RunsStream))

	for i := 0; i < 3; i++ {
		trip := &models.Trip{Source: models.SourceFRN, SourceTripID: "frn:1001", Title: "Full Day"}
		require.NoError(t, publisher.PublishTrip(ctx, trip))
	}
	require.NoError(t, publisher.PublishReport(ctx, &models.RunReport{TargetsProcessed: 4, TripsUpserted: 3}))

	msgs, err := client.XRange(ctx, publisher.Stream(TripsStream), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "FRN|frn:1001", msgs[0].Values["key"])

	raw, err := base64.StdEncoding.DecodeString(msgs[0].Values[TripField].(string))
	require.NoError(t, err)
	var got models.Trip
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Full Day", got.Title)

	require.NoError(t, publisher.TrimStreams(ctx))
	n, err := client.XLen(ctx, publisher.Stream(TripsStream)).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	runs, err := client.XRange(ctx, publisher.Stream(RunsStream), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Values, ReportField)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishTrip(context.Background(), &models.Trip{}))
	assert.NoError(t, p.PublishReport(context.Background(), &models.RunReport{}))
	assert.NoError(t, p.TrimStreams(context.Background()))
	assert.NoError(t, p.Close())
}

package location

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_New(t *testing.T) {
	f := NewFactory(nil, nil)

	src, err := f.New(SourcePush, "", true)
	require.NoError(t, err)
	assert.IsType(t, &PushSource{}, src)

	_, err = f.New(SourceRedis, "dev-1", true)
	assert.ErrorIs(t, err, ErrUnsupportedSource)

	_, err = f.New(SourceFirebase, "dev-1", true)
	assert.ErrorIs(t, err, ErrUnsupportedSource)

	_, err = f.New("carrier-pigeon", "dev-1", true)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestPushSource_PermissionDenied(t *testing.T) {
	src := NewPushSource(false)
	_, err := src.Start(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, src.Push(Sample{}), ErrNotStarted)

	src.SetPermission(true)
	_, err = src.Start(context.Background(), Options{})
	assert.NoError(t, err)
}

func TestPushSource_DeliversAndStops(t *testing.T) {
	src := NewPushSource(true)
	stream, err := src.Start(context.Background(), Options{})
	require.NoError(t, err)

	require.NoError(t, src.Push(Sample{Lat: 1, Lng: 2, TimestampMs: 10}))
	got := <-stream.Samples
	assert.Equal(t, Sample{Lat: 1, Lng: 2, TimestampMs: 10}, got)

	src.Fail(fmt.Errorf("gps lost"))
	assert.ErrorIs(t, <-stream.Errors, ErrPositionUnavailable)

	require.NoError(t, src.Stop())
	require.NoError(t, src.Stop())
	_, ok := <-stream.Samples
	assert.False(t, ok, "samples channel should be closed")
	assert.ErrorIs(t, src.Push(Sample{}), ErrNotStarted)
}

func TestPushSource_AppliesMinInterval(t *testing.T) {
	src := NewPushSource(true)
	stream, err := src.Start(context.Background(), Options{MinInterval: time.Second})
	require.NoError(t, err)

	require.NoError(t, src.Push(Sample{Lat: 0, Lng: 0, TimestampMs: 1000}))
	require.NoError(t, src.Push(Sample{Lat: 0.001, Lng: 0, TimestampMs: 1500}))
	require.NoError(t, src.Push(Sample{Lat: 0.002, Lng: 0, TimestampMs: 2000}))
	require.NoError(t, src.Stop())

	var got []int64
	for s := range stream.Samples {
		got = append(got, s.TimestampMs)
	}
	assert.Equal(t, []int64{1000, 2000}, got)
}

func TestPushSource_AppliesMinDistance(t *testing.T) {
	src := NewPushSource(true)
	stream, err := src.Start(context.Background(), Options{MinDistanceM: 50})
	require.NoError(t, err)

	require.NoError(t, src.Push(Sample{Lat: 0, Lng: 0, TimestampMs: 1}))
	require.NoError(t, src.Push(Sample{Lat: 0.0001, Lng: 0, TimestampMs: 2}))
	require.NoError(t, src.Push(Sample{Lat: 0.001, Lng: 0, TimestampMs: 3}))
	require.NoError(t, src.Stop())

	var got []int64
	for s := range stream.Samples {
		got = append(got, s.TimestampMs)
	}
	assert.Equal(t, []int64{1, 3}, got)
}

func TestPushSource_Backpressure(t *testing.T) {
	src := NewPushSource(true)
	_, err := src.Start(context.Background(), Options{})
	require.NoError(t, err)
	for i := 0; i < pushSampleBuffer; i++ {
		require.NoError(t, src.Push(Sample{TimestampMs: int64(i)}))
	}
	assert.ErrorIs(t, src.Push(Sample{TimestampMs: 999}), ErrBackpressure)
}

func TestRedisSource_Integration(t *testing.T) {
	redisAddr := os.Getenv("METER_TEST_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("METER_TEST_REDIS_ADDR not set; skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	ctx := context.Background()
	deviceID := fmt.Sprintf("device_test_%d", time.Now().UnixNano())
	defer rdb.Del(ctx, permissionKey(deviceID))

	src := NewRedisSource(rdb, deviceID)
	_, err := src.Start(ctx, Options{})
	require.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, GrantPermission(ctx, rdb, deviceID, true))
	stream, err := src.Start(ctx, Options{})
	require.NoError(t, err)
	defer src.Stop()

	want := Sample{Lat: 12.97, Lng: 77.59, TimestampMs: time.Now().UnixMilli()}
	require.NoError(t, PublishSample(ctx, rdb, deviceID, want))

	select {
	case got := <-stream.Samples:
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for published sample")
	}

	require.NoError(t, src.Stop())
	require.NoError(t, src.Stop())
}

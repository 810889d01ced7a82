package versioncache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/cache/redis"
)

// --- Mocks ---

type fakeStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.data[key]
	if !ok {
		return nil, redis.ErrKeyNotFound
	}
	return data, nil
}

func (f *fakeStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.lastTTL = ttl
	return nil
}

type fakeSource struct {
	version string
	err     error
	calls   int
}

func (f *fakeSource) LatestVersion(context.Context) (string, error) {
	f.calls++
	return f.version, f.err
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_version_cache_total"}, []string{"result"})
}

// --- Tests ---

func TestLatestVersion_MissThenHit(t *testing.T) {
	source := &fakeSource{version: "5.4.0"}
	store := newFakeStore()
	counter := newCounter()
	c := New(source, store, time.Hour, counter, zap.NewNop())

	got, err := c.LatestVersion(context.Background())
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if got != "5.4.0" {
		t.Errorf("LatestVersion() = %q, want 5.4.0", got)
	}
	if source.calls != 1 {
		t.Fatalf("inner called %d times, want 1", source.calls)
	}
	if store.lastTTL != time.Hour {
		t.Errorf("stored with ttl %v, want 1h", store.lastTTL)
	}

	got, err = c.LatestVersion(context.Background())
	if err != nil {
		t.Fatalf("second LatestVersion() error = %v", err)
	}
	if got != "5.4.0" {
		t.Errorf("second LatestVersion() = %q, want 5.4.0", got)
	}
	if source.calls != 1 {
		t.Errorf("inner called %d times after a warm cache, want 1", source.calls)
	}

	if hits := testutil.ToFloat64(counter.WithLabelValues("hit")); hits != 1 {
		t.Errorf("hit counter = %f, want 1", hits)
	}
	if misses := testutil.ToFloat64(counter.WithLabelValues("miss")); misses != 1 {
		t.Errorf("miss counter = %f, want 1", misses)
	}
}

func TestLatestVersion_CacheReadFailureDegrades(t *testing.T) {
	source := &fakeSource{version: "5.4.0"}
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	c := New(source, store, time.Hour, nil, zap.NewNop())

	got, err := c.LatestVersion(context.Background())
	if err != nil {
		t.Fatalf("LatestVersion() error = %v, want degraded success", err)
	}
	if got != "5.4.0" || source.calls != 1 {
		t.Errorf("LatestVersion() = (%q, %d calls), want 5.4.0 from inner", got, source.calls)
	}
}

func TestLatestVersion_CacheWriteFailureAbsorbed(t *testing.T) {
	source := &fakeSource{version: "5.4.0"}
	store := newFakeStore()
	store.setErr = errors.New("read only replica")
	c := New(source, store, time.Hour, nil, zap.NewNop())

	got, err := c.LatestVersion(context.Background())
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if got != "5.4.0" {
		t.Errorf("LatestVersion() = %q, want 5.4.0", got)
	}
}

func TestLatestVersion_InnerFailurePropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("rate limited")}
	store := newFakeStore()
	c := New(source, store, time.Hour, nil, zap.NewNop())

	if _, err := c.LatestVersion(context.Background()); err == nil {
		t.Fatal("LatestVersion() error = nil, want inner failure")
	}
	if len(store.data) != 0 {
		t.Error("a failed lookup was cached")
	}
}

func TestLatestVersion_EmptyCachedValueTreatedAsMiss(t *testing.T) {
	source := &fakeSource{version: "5.4.0"}
	store := newFakeStore()
	store.data[cacheKey] = nil
	c := New(source, store, time.Hour, nil, zap.NewNop())

	got, err := c.LatestVersion(context.Background())
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if got != "5.4.0" || source.calls != 1 {
		t.Errorf("empty cached value did not fall through to inner: (%q, %d calls)", got, source.calls)
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcabral19/json-placeholder-elt/internal/config"
	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"github.com/vcabral19/json-placeholder-elt/internal/metrics"
	"github.com/vcabral19/json-placeholder-elt/internal/rawstore"
	"github.com/vcabral19/json-placeholder-elt/internal/repository"
)

const validRecord = `{
  "id": 1, "name": "Leanne Graham", "username": "Bret", "email": "Sincere@april.biz",
  "address": {"street": "Kulas Light", "suite": "Apt. 556", "city": "Gwenborough", "zipcode": "92998-3874",
              "geo": {"lat": "-37.3159", "lng": "81.1496"}},
  "phone": "1-770-736-8031 x56442", "website": "hildegard.org",
  "company": {"name": "Romaguera-Crona", "catchPhrase": "Multi-layered client-server neural-net", "bs": "harness real-time e-markets"}
}`

type stubSource struct {
	records []json.RawMessage
	err     error
}

func (s *stubSource) GetSourceID() string { return "stub" }

func (s *stubSource) Fetch(context.Context) ([]json.RawMessage, error) {
	return s.records, s.err
}

type harness struct {
	svc     *IngestService
	rawDir  string
	reg     *prometheus.Registry
	users   *repository.UserRepository
	runs    *repository.IngestRunRepository
	fetcher *stubSource
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "etl.db"),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	h := &harness{
		rawDir:  t.TempDir(),
		reg:     prometheus.NewRegistry(),
		users:   repository.NewUserRepository(db),
		runs:    repository.NewIngestRunRepository(db),
		fetcher: &stubSource{},
	}
	h.svc = NewIngestService(h.fetcher, rawstore.New(h.rawDir), h.users, h.runs,
		metrics.NewCollector(h.reg), &IngestConfig{Interval: 10 * time.Millisecond})
	h.svc.now = func() time.Time { return time.Unix(1234567890, 0) }
	return h
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestRunOnce_ArchivesAndStores(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []json.RawMessage{
		json.RawMessage(validRecord),
		json.RawMessage(`{"id": "broken"}`),
	}

	stats, err := h.svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890), stats.ExtractionTS)
	assert.Equal(t, rawstore.BatchPath(h.rawDir, 1234567890), stats.RawPath)
	assert.Equal(t, 2, stats.TotalRecords)
	assert.Equal(t, 1, stats.ValidRecords)
	assert.Equal(t, 1, stats.InvalidRecords)
	assert.Equal(t, 1, stats.InsertedRecords)

	batch, err := rawstore.Load(stats.RawPath)
	require.NoError(t, err)
	assert.Len(t, batch.Records, 2, "raw archive keeps invalid records")

	stored, err := h.users.ListByExtraction(context.Background(), 1234567890)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Bret", stored[0].Username)

	run, err := h.runs.GetByID(context.Background(), stats.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.InsertedRecords)

	assert.Equal(t, 1.0, counterValue(t, h.reg, "api_requests_success_total"))
	assert.Equal(t, 1.0, counterValue(t, h.reg, "datalake_writes_total"))
	assert.Equal(t, 1.0, counterValue(t, h.reg, "db_insert_success_total"))
	assert.Equal(t, 1.0, counterValue(t, h.reg, "db_insert_failure_total"))
}

func TestRunOnce_RepeatedExtractionIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []json.RawMessage{json.RawMessage(validRecord)}

	_, err := h.svc.RunOnce(context.Background())
	require.NoError(t, err)
	stats, err := h.svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.InsertedRecords)

	stored, err := h.users.ListByExtraction(context.Background(), 1234567890)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRunOnce_FetchFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errors.New("connection refused")

	_, err := h.svc.RunOnce(context.Background())
	assert.Error(t, err)
	assert.NoFileExists(t, rawstore.BatchPath(h.rawDir, 1234567890))
	assert.Equal(t, 1.0, counterValue(t, h.reg, "api_requests_failure_total"))
}

func TestRunOnce_EmptyCollectionIsArchived(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []json.RawMessage{}

	stats, err := h.svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, stats.RawPath)
	assert.Equal(t, 0, stats.TotalRecords)
}

func TestRunOnce_WithoutRepositories(t *testing.T) {
	h := newHarness(t)
	h.svc.userRepo = nil
	h.svc.runRepo = nil
	h.fetcher.records = []json.RawMessage{json.RawMessage(validRecord)}

	stats, err := h.svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ValidRecords)
	assert.Equal(t, 0, stats.InsertedRecords)
	assert.FileExists(t, stats.RawPath)
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errors.New("down")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return counterValue(t, h.reg, "api_requests_failure_total") >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

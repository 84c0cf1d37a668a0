package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcabral19/json-placeholder-elt/internal/config"
)

// fakeS3 answers path-style PutObject and HeadObject requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[r.URL.Path]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStorage(t *testing.T) (*S3Storage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewStorage(context.Background(), config.ArchiveConfig{
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "etl-raw",
	})
	require.NoError(t, err)
	return store, fake
}

func TestS3Storage_UploadAndExists(t *testing.T) {
	store, fake := newTestStorage(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "raw/2009-02-13/23/raw_data_1234567890.json")
	require.NoError(t, err)
	assert.False(t, ok)

	body := `[{"id": 1}]`
	err = store.Upload(ctx, "raw/2009-02-13/23/raw_data_1234567890.json",
		strings.NewReader(body), int64(len(body)), "application/json")
	require.NoError(t, err)

	fake.mu.Lock()
	got := fake.objects["/etl-raw/raw/2009-02-13/23/raw_data_1234567890.json"]
	fake.mu.Unlock()
	assert.Equal(t, body, string(got))

	ok, err = store.Exists(ctx, "raw/2009-02-13/23/raw_data_1234567890.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestS3Storage_EnsureBucketCreatesMissingBucket(t *testing.T) {
	store, fake := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureBucket(ctx))
	fake.mu.Lock()
	_, created := fake.objects["/etl-raw"]
	fake.mu.Unlock()
	assert.True(t, created)

	require.NoError(t, store.EnsureBucket(ctx))
}

func TestNewStorage_RequiresBucket(t *testing.T) {
	_, err := NewStorage(context.Background(), config.ArchiveConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestDetectProvider(t *testing.T) {
	assert.Equal(t, ProviderR2, detectProvider("https://abc.r2.cloudflarestorage.com"))
	assert.Equal(t, ProviderS3, detectProvider("s3.us-east-1.amazonaws.com"))
	assert.Equal(t, ProviderS3, detectProvider(""))
	assert.Equal(t, ProviderS3Compatible, detectProvider("http://localhost:9000"))
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000", endpointURL("localhost:9000", false))
	assert.Equal(t, "https://localhost:9000", endpointURL("localhost:9000", true))
	assert.Equal(t, "http://localhost:9000", endpointURL("http://localhost:9000/", true))
	assert.Equal(t, "https://s3.example.com", endpointURL("https://s3.example.com/bucket/path", false))
	assert.Equal(t, "", endpointURL("", true))
}

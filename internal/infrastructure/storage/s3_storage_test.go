package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/biblioteca/backend/internal/application/document"
	"github.com/biblioteca/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeS3 answers the handful of path-style calls the store makes
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
	failGet bool
}

func newFakeS3(t *testing.T, buckets ...string) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{
		buckets: map[string]bool{},
		objects: map[string][]byte{},
		types:   map[string]string{},
	}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")

	if key == "" {
		switch r.Method {
		case http.MethodHead:
			if !f.buckets[bucket] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			f.buckets[bucket] = true
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
		f.types[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if f.failGet {
			writeS3Error(w, http.StatusForbidden, "AccessDenied")
			return
		}
		data, ok := f.objects[path]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", f.types[path])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>`+code+`</Message></Error>`)
}

func s3Config(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Driver:       DriverS3,
		Bucket:       "documents",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Region:       "us-east-1",
		Endpoint:     endpoint,
		UsePathStyle: true,
	}
}

func TestNewS3DocumentStore_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3DocumentStore(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := NewS3DocumentStore(ctx, &config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key", func(t *testing.T) {
		_, err := NewS3DocumentStore(ctx, &config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key", func(t *testing.T) {
		_, err := NewS3DocumentStore(ctx, &config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config", func(t *testing.T) {
		store, err := NewS3DocumentStore(ctx, s3Config("localhost:9000"))
		require.NoError(t, err)
		assert.Equal(t, "documents", store.Bucket())
	})
}

func TestS3DocumentStore_RoundTrip(t *testing.T) {
	fake, srv := newFakeS3(t, "documents")
	ctx := context.Background()
	store, err := NewS3DocumentStore(ctx, s3Config(srv.URL), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	key := document.Key("sale-1", document.KindInvoice)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, document.ErrObjectMissing)

	require.NoError(t, store.Put(ctx, key, []byte("%PDF-1.7 invoice"), document.ContentType))
	assert.Equal(t, document.ContentType, fake.types["documents/"+key])

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	body, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 invoice", string(data))
}

func TestS3DocumentStore_OpenPropagatesOtherErrors(t *testing.T) {
	fake, srv := newFakeS3(t, "documents")
	fake.failGet = true
	store, err := NewS3DocumentStore(context.Background(), s3Config(srv.URL))
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "sales/x/invoice.pdf")
	require.Error(t, err)
	assert.NotErrorIs(t, err, document.ErrObjectMissing)
}

func TestS3DocumentStore_EmptyKey(t *testing.T) {
	_, srv := newFakeS3(t, "documents")
	store, err := NewS3DocumentStore(context.Background(), s3Config(srv.URL))
	require.NoError(t, err)

	assert.Error(t, store.Put(context.Background(), "", nil, document.ContentType))
	_, err = store.Open(context.Background(), "")
	assert.Error(t, err)
	_, err = store.Exists(context.Background(), "")
	assert.Error(t, err)
}

func TestS3DocumentStore_EnsureBucket(t *testing.T) {
	t.Run("creates a missing bucket", func(t *testing.T) {
		fake, srv := newFakeS3(t)
		store, err := NewS3DocumentStore(context.Background(), s3Config(srv.URL))
		require.NoError(t, err)

		require.NoError(t, store.EnsureBucket(context.Background()))
		assert.True(t, fake.buckets["documents"])
	})

	t.Run("leaves an existing bucket alone", func(t *testing.T) {
		_, srv := newFakeS3(t, "documents")
		store, err := NewS3DocumentStore(context.Background(), s3Config(srv.URL))
		require.NoError(t, err)
		assert.NoError(t, store.EnsureBucket(context.Background()))
	})
}

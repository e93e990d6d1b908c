package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testBucket = "bookeval-uploads"

type recordedPut struct {
	path    string
	headers http.Header
	body    string
}

type fakeS3 struct {
	mu            sync.Mutex
	bucketExists  bool
	bucketCreated bool
	puts          []recordedPut
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucketPath := "/" + testBucket + "/"
	switch {
	case r.Method == http.MethodHead && (r.URL.Path == bucketPath || r.URL.Path == "/"+testBucket):
		if !f.bucketExists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && (r.URL.Path == bucketPath || r.URL.Path == "/"+testBucket):
		f.bucketExists = true
		f.bucketCreated = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, bucketPath):
		body, _ := io.ReadAll(r.Body)
		f.puts = append(f.puts, recordedPut{
			path:    strings.TrimPrefix(r.URL.Path, bucketPath),
			headers: r.Header.Clone(),
			body:    string(body),
		})
		w.Header().Set("ETag", `"9b2cf535f27731c974343645a3985328"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestMinioStore(t *testing.T, fake *fakeS3) *MinioStore {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewMinioStore(context.Background(), MinioConfig{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    testBucket,
		Region:    "us-east-1",
	}, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestMinioStorePutWritesObjectWithMetadata(t *testing.T) {
	fake := &fakeS3{bucketExists: true}
	store := newTestMinioStore(t, fake)

	key, err := store.Put(context.Background(), []byte("chapter one"), Metadata{
		Filename:    "chapter.pdf",
		ContentType: "application/pdf",
		UserID:      "user-1",
		UploadedAt:  time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "uploads/user-1/2025/03/14/"), key)
	require.True(t, strings.HasSuffix(key, "-chapter.pdf"), key)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.False(t, fake.bucketCreated)
	require.Len(t, fake.puts, 1)

	put := fake.puts[0]
	require.Equal(t, key, put.path)
	require.Equal(t, "application/pdf", put.headers.Get("Content-Type"))
	require.Equal(t, "chapter.pdf", put.headers.Get("X-Amz-Meta-Filename"))
	require.Equal(t, "user-1", put.headers.Get("X-Amz-Meta-User-Id"))
	require.Equal(t, "2025-03-14T09:26:53Z", put.headers.Get("X-Amz-Meta-Uploaded-At"))
	require.Contains(t, put.body, "chapter one")
}

func TestNewMinioStoreCreatesMissingBucket(t *testing.T) {
	fake := &fakeS3{}
	newTestMinioStore(t, fake)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.True(t, fake.bucketCreated)
}

func TestNewMinioStoreRequiresBucket(t *testing.T) {
	_, err := NewMinioStore(context.Background(), MinioConfig{Endpoint: "localhost:9000"}, zerolog.Nop())
	require.Error(t, err)
}

package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.Silence(io.Discard)
	os.Exit(m.Run())
}

type recordedPut struct {
	method string
	path   string
	body   string
}

func newFakeS3(t *testing.T, status int) (*httptest.Server, *[]recordedPut) {
	t.Helper()
	var mu sync.Mutex
	var puts []recordedPut

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()

		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, &puts
}

func newTestService(t *testing.T, endpoint string) StorageService {
	t.Helper()
	svc, err := NewStorageService(ServiceConfig{
		S3BucketName:      "archives",
		S3Endpoint:        endpoint,
		S3AccessKeyID:     "test-key",
		S3SecretAccessKey: "test-secret",
	})
	require.NoError(t, err)
	return svc
}

func TestPresignDownload(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:9000")

	raw, err := svc.PresignDownload(context.Background(), "rooms/r1/transcript-1.json", 10*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/archives/rooms/r1/transcript-1.json", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestTranscriptArchiverUploadsThenPresigns(t *testing.T) {
	srv, puts := newFakeS3(t, http.StatusOK)
	archiver := NewTranscriptArchiver(newTestService(t, srv.URL), 0)

	link, err := archiver.PutTranscript(context.Background(), "rooms/r1/t.json", []byte(`{"messages":[]}`))
	require.NoError(t, err)
	assert.Contains(t, link, "/archives/rooms/r1/t.json")
	assert.Contains(t, link, "X-Amz-Expires=3600")

	require.Len(t, *puts, 1)
	put := (*puts)[0]
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/archives/rooms/r1/t.json", put.path)
	assert.Contains(t, put.body, `{"messages":[]}`)
}

func TestTranscriptArchiverUploadFailure(t *testing.T) {
	srv, _ := newFakeS3(t, http.StatusForbidden)
	archiver := NewTranscriptArchiver(newTestService(t, srv.URL), time.Minute)

	_, err := archiver.PutTranscript(context.Background(), "rooms/r1/t.json", []byte(`{}`))
	assert.Error(t, err)
}

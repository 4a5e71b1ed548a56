package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/database"
	"github.com/spicierbot/spicier/pkg/s3client"
)

const TestBucket = "test-bucket"

// FakeS3 is an in-memory S3-compatible server for testing. Objects are keyed
// by request path, so a key k lives at "/test-bucket/k".
type FakeS3 struct {
	Mu      sync.Mutex
	Objects map[string][]byte
	Gets    int
}

func NewFakeS3() *FakeS3 {
	return &FakeS3{Objects: make(map[string][]byte)}
}

func (f *FakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.Mu.Lock()
	defer f.Mu.Unlock()

	key := r.URL.Path

	switch r.Method {
	case http.MethodGet:
		f.Gets++
		data, ok := f.Objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>Not found</Message></Error>`)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(data)

	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.Objects[key] = data
		w.WriteHeader(http.StatusOK)

	case http.MethodDelete:
		delete(f.Objects, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Object returns the stored bytes for an object key.
func (f *FakeS3) Object(key string) ([]byte, bool) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	data, ok := f.Objects["/"+TestBucket+"/"+key]
	return data, ok
}

// Put seeds an object key.
func (f *FakeS3) Put(key string, data []byte) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	f.Objects["/"+TestBucket+"/"+key] = data
}

func (f *FakeS3) GetCount() int {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	return f.Gets
}

// NewS3 starts a FakeS3 server and returns it with a client pointed at it.
func NewS3(t *testing.T) (*FakeS3, *s3client.Client) {
	t.Helper()
	fake := NewFakeS3()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return fake, NewTestS3Client(t, server)
}

func NewTestS3Client(t *testing.T, server *httptest.Server) *s3client.Client {
	t.Helper()
	endpoint := server.URL

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: &endpoint,
		Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
		UsePathStyle: true,
	})

	c, err := s3client.NewDirect(client, TestBucket, DiscardLogger())
	if err != nil {
		t.Fatalf("creating s3 client: %v", err)
	}
	return c
}

// NewDB opens a migrated in-memory sqlite database.
func NewDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Type:   config.DatabaseTypeSQLite,
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	}, DiscardLogger())
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Migrate(true); err != nil {
		t.Fatalf("migrating database: %v", err)
	}
	return db
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package s3client_test

import (
	"context"
	"testing"

	"emperror.dev/errors"

	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/s3client"
	"github.com/spicierbot/spicier/pkg/testutil"
)

func TestGuildKey(t *testing.T) {
	if got := s3client.GuildKey("twitch", "123"); got != "twitch/123.json" {
		t.Errorf("GuildKey = %q", got)
	}
}

func TestFetchNotFound(t *testing.T) {
	_, c := testutil.NewS3(t)
	_, err := c.FetchGuildJSON(context.Background(), "twitch", "1")
	if !errors.Is(err, s3client.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveAndFetch(t *testing.T) {
	fake, c := testutil.NewS3(t)
	ctx := context.Background()

	if err := c.SaveGuildJSON(ctx, "twitch", "1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("SaveGuildJSON: %v", err)
	}
	if data, ok := fake.Object("twitch/1.json"); !ok || string(data) != `{"a":1}` {
		t.Fatalf("stored object = %q, %t", data, ok)
	}

	got, err := c.FetchGuildJSON(ctx, "twitch", "1")
	if err != nil {
		t.Fatalf("FetchGuildJSON: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("FetchGuildJSON = %q", got)
	}
	if n := fake.GetCount(); n != 0 {
		t.Errorf("fetch after save hit the server %d times", n)
	}
}

func TestFetchCachesAndReturnsCopy(t *testing.T) {
	fake, c := testutil.NewS3(t)
	ctx := context.Background()
	fake.Put("messagecache/logbot.json", []byte("[1,2]"))

	first, err := c.Fetch(ctx, "messagecache/logbot.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	first[0] = 'x'

	second, err := c.Fetch(ctx, "messagecache/logbot.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(second) != "[1,2]" {
		t.Errorf("cached value was mutated: %q", second)
	}
	if n := fake.GetCount(); n != 1 {
		t.Errorf("server gets = %d, want 1", n)
	}
}

func TestDelete(t *testing.T) {
	fake, c := testutil.NewS3(t)
	ctx := context.Background()
	if err := c.SaveGuildJSON(ctx, "twitch", "2", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteGuildJSON(ctx, "twitch", "2"); err != nil {
		t.Fatalf("DeleteGuildJSON: %v", err)
	}
	if _, ok := fake.Object("twitch/2.json"); ok {
		t.Error("object still stored")
	}
	if _, err := c.FetchGuildJSON(ctx, "twitch", "2"); !errors.Is(err, s3client.ErrNotFound) {
		t.Errorf("fetch after delete err = %v", err)
	}
	if err := c.DeleteGuildJSON(ctx, "twitch", "missing"); err != nil {
		t.Errorf("deleting a missing object: %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := s3client.New(config.S3Config{Bucket: "b"}, testutil.DiscardLogger())
	if !errors.Is(err, config.ErrBadConfig) {
		t.Errorf("err = %v, want ErrBadConfig", err)
	}
	if c, err := s3client.New(config.S3Config{
		Key:      "k",
		Secret:   "s",
		Endpoint: "http://localhost:9000",
		Bucket:   "spicier",
		Region:   "us-east-1",
	}, testutil.DiscardLogger()); err != nil || c.Bucket() != "spicier" {
		t.Errorf("New = %v, %v", c, err)
	}
}

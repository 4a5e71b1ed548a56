package s3client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/spicierbot/spicier/pkg/config"
)

const (
	cacheSize      = 500
	maxObjectSize  = 100 * 1024 * 1024 // 100 MB
	defaultRetries = 5
)

var ErrNotFound = errors.New("object not found")

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk) || strings.Contains(err.Error(), "NoSuchKey")
}

// Client stores JSON blobs in a single bucket. Reads are served from an LRU
// cache that every write refreshes.
type Client struct {
	s3     *s3.Client
	bucket string
	cache  *lru.Cache[string, []byte]
	log    *slog.Logger
}

// New builds a client from the s3 config section.
func New(cfg config.S3Config, log *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	client := s3.New(s3.Options{
		Region:           cfg.Region,
		BaseEndpoint:     &endpoint,
		Credentials:      credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, ""),
		UsePathStyle:     true,
		RetryMaxAttempts: defaultRetries,
	})
	return NewDirect(client, cfg.Bucket, log)
}

// NewDirect wraps an already configured S3 client.
func NewDirect(s3Client *s3.Client, bucket string, log *slog.Logger) (*Client, error) {
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, errors.WrapIf(err, "creating LRU cache")
	}
	return &Client{
		s3:     s3Client,
		bucket: bucket,
		cache:  cache,
		log:    log.With("component", "s3"),
	}, nil
}

// Bucket returns the configured S3 bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// GuildKey is the object key of a guild's document under prefix.
func GuildKey(prefix, guildID string) string {
	return fmt.Sprintf("%s/%s.json", prefix, guildID)
}

// Fetch returns the object at key, or ErrNotFound.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.cache.Get(key); ok {
		return bytes.Clone(data), nil
	}

	start := time.Now()
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.WrapIfWithDetails(err, "fetching object", "key", key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize))
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "reading object", "key", key)
	}
	c.log.Debug("Fetched object", "key", key, "bytes", len(data), "ms", time.Since(start).Milliseconds())

	c.cache.Add(key, bytes.Clone(data))
	return data, nil
}

// Save writes data to key.
func (c *Client) Save(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		c.cache.Remove(key)
		return errors.WrapIfWithDetails(err, "saving object", "key", key)
	}
	c.log.Debug("Saved object", "key", key, "bytes", len(data), "ms", time.Since(start).Milliseconds())

	c.cache.Add(key, bytes.Clone(data))
	return nil
}

// Delete removes key. Deleting a missing object is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	c.cache.Remove(key)
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil && !isNotFound(err) {
		return errors.WrapIfWithDetails(err, "deleting object", "key", key)
	}
	return nil
}

// FetchGuildJSON fetches {prefix}/{guildID}.json.
func (c *Client) FetchGuildJSON(ctx context.Context, prefix, guildID string) ([]byte, error) {
	return c.Fetch(ctx, GuildKey(prefix, guildID))
}

// SaveGuildJSON saves data to {prefix}/{guildID}.json.
func (c *Client) SaveGuildJSON(ctx context.Context, prefix, guildID string, data []byte) error {
	return c.Save(ctx, GuildKey(prefix, guildID), data)
}

func (c *Client) DeleteGuildJSON(ctx context.Context, prefix, guildID string) error {
	return c.Delete(ctx, GuildKey(prefix, guildID))
}

package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"minischeduler/internal/logger"
	"minischeduler/internal/models"
)

type Config struct {
	Enabled         bool
	Addr            string
	Password        string
	UsersHashKey    string
	SummaryCacheTTL time.Duration
}

// ValkeyClient caches credentials and organizer summaries. Cache errors are
// logged and treated as misses.
type ValkeyClient struct {
	client       *redis.Client
	usersHashKey string
	summaryTTL   time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return newValkeyClient(rdb, cfg), nil
}

func newValkeyClient(rdb *redis.Client, cfg Config) *ValkeyClient {
	usersHashKey := cfg.UsersHashKey
	if usersHashKey == "" {
		usersHashKey = "users:auth"
	}
	ttl := cfg.SummaryCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ValkeyClient{client: rdb, usersHashKey: usersHashKey, summaryTTL: ttl}
}

// authField is the hash field for an email.
func authField(email string) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.ToLower(email)))
}

func summaryKey(organizerID int64) string {
	return fmt.Sprintf("summary:organizer:%d", organizerID)
}

func (v *ValkeyClient) GetAuth(ctx context.Context, email string) (models.AuthEntry, bool) {
	raw, err := v.client.HGet(ctx, v.usersHashKey, authField(email)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithContext(ctx).Warn("Auth cache lookup failed", "error", err)
		}
		return models.AuthEntry{}, false
	}

	var entry models.AuthEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logger.WithContext(ctx).Warn("Invalid auth cache entry", "error", err)
		return models.AuthEntry{}, false
	}
	return entry, true
}

func (v *ValkeyClient) SetAuth(ctx context.Context, email string, entry models.AuthEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := v.client.HSet(ctx, v.usersHashKey, authField(email), payload).Err(); err != nil {
		logger.WithContext(ctx).Warn("Auth cache write failed", "error", err)
	}
}

func (v *ValkeyClient) GetSummary(ctx context.Context, organizerID int64) (models.ProgressSummary, bool) {
	raw, err := v.client.Get(ctx, summaryKey(organizerID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithContext(ctx).Warn("Summary cache lookup failed", "error", err, "organizer_id", organizerID)
		}
		return models.ProgressSummary{}, false
	}

	var summary models.ProgressSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return models.ProgressSummary{}, false
	}
	return summary, true
}

func (v *ValkeyClient) SetSummary(ctx context.Context, summary models.ProgressSummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := v.client.Set(ctx, summaryKey(summary.OrganizerID), payload, v.summaryTTL).Err(); err != nil {
		logger.WithContext(ctx).Warn("Summary cache write failed", "error", err, "organizer_id", summary.OrganizerID)
	}
}

func (v *ValkeyClient) InvalidateSummary(ctx context.Context, organizerID int64) {
	if err := v.client.Del(ctx, summaryKey(organizerID)).Err(); err != nil {
		logger.WithContext(ctx).Warn("Summary cache invalidation failed", "error", err, "organizer_id", organizerID)
	}
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}

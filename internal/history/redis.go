// Package history persists join-mode run reports to Redis, keyed by run
// ID, so operators can later diff which hosts moved between result
// groups across runs. This is an optional feature gated by
// --history-redis: the core join algorithm never depends on it.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	runKeyPrefix = "sshp:run:"
	runIndexKey  = "sshp:runs"
	runTTL       = 30 * 24 * time.Hour
)

// Group is one equivalence class of a join-mode run, serialized for
// storage.
type Group struct {
	Hosts  []string `json:"hosts"`
	Output string   `json:"output"`
}

// Report is the full join-mode result for one run.
type Report struct {
	RunID     string    `json:"run_id"`
	Command   string    `json:"command"`
	HostCount int       `json:"host_count"`
	Groups    []Group   `json:"groups"`
	Finished  time.Time `json:"finished"`
}

// Store writes join reports to Redis and recalls them by run ID.
type Store struct {
	client *redis.Client
	log    *zap.Logger
}

// NewStore connects to addr, matching the connection and timeout
// conventions the teacher's Redis client uses.
func NewStore(addr string, log *zap.Logger) *Store {
	log = log.Named("history")

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     5,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis connection failed", zap.String("addr", addr), zap.Error(err))
	} else {
		log.Info("redis connection established", zap.String("addr", addr))
	}

	return &Store{client: client, log: log}
}

// Save persists report under its run ID and adds it to the run index,
// a recent-first list of run IDs capped at 100 entries.
func (s *Store) Save(ctx context.Context, report Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	key := runKeyPrefix + report.RunID

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, payload, runTTL)
	pipe.LPush(ctx, runIndexKey, report.RunID)
	pipe.LTrim(ctx, runIndexKey, 0, 99)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// Get fetches a previously saved report by run ID.
func (s *Store) Get(ctx context.Context, runID string) (*Report, error) {
	value, err := s.client.Get(ctx, runKeyPrefix+runID).Bytes()
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	var report Report
	if err := json.Unmarshal(value, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

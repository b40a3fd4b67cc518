package services

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/trystantbm/portfolio-contact/internal/models"
)

// RateLimitStore decides whether one more submission from key is allowed at now
type RateLimitStore interface {
	Hit(ctx context.Context, key string, now time.Time) (models.RateLimitDecision, error)
}

// RateLimitPolicy holds the fixed-window policy
type RateLimitPolicy struct {
	MaxRequests   int
	Window        time.Duration
	CleanupSample float64 // probability of an opportunistic sweep per hit
}

// DefaultRateLimitPolicy returns 3 submissions per hour with a 1% sweep sample
func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{
		MaxRequests:   3,
		Window:        time.Hour,
		CleanupSample: 0.01,
	}
}

const rateLimitShards = 32

type rateLimitShard struct {
	mu      sync.Mutex
	records map[string]*models.RateLimitRecord
}

// MemoryRateLimitStore keeps fixed-window counters in process memory.
// Keys are spread over independently locked shards so unrelated clients
// never contend on the same mutex. Counters are lost on restart.
type MemoryRateLimitStore struct {
	policy RateLimitPolicy
	shards [rateLimitShards]rateLimitShard
	random func() float64
}

// MemoryStoreOption configures a MemoryRateLimitStore
type MemoryStoreOption func(*MemoryRateLimitStore)

// WithRandomSource replaces the sampling source used for opportunistic sweeps
func WithRandomSource(random func() float64) MemoryStoreOption {
	return func(s *MemoryRateLimitStore) { s.random = random }
}

// NewMemoryRateLimitStore creates an in-memory store for the policy
func NewMemoryRateLimitStore(policy RateLimitPolicy, opts ...MemoryStoreOption) *MemoryRateLimitStore {
	s := &MemoryRateLimitStore{
		policy: policy,
		random: rand.Float64,
	}
	for i := range s.shards {
		s.shards[i].records = make(map[string]*models.RateLimitRecord)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryRateLimitStore) shardFor(key string) *rateLimitShard {
	return &s.shards[xxhash.Sum64String(key)%rateLimitShards]
}

// Hit records one request for key. The read-check-increment runs under the
// key's shard lock.
func (s *MemoryRateLimitStore) Hit(_ context.Context, key string, now time.Time) (models.RateLimitDecision, error) {
	if s.policy.CleanupSample > 0 && s.random() < s.policy.CleanupSample {
		s.Sweep(now)
	}

	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	record, ok := shard.records[key]
	if !ok || record.Expired(now) {
		shard.records[key] = &models.RateLimitRecord{
			Count:     1,
			ResetTime: now.Add(s.policy.Window),
		}
		return models.RateLimitDecision{Allowed: true}, nil
	}

	if record.Count >= s.policy.MaxRequests {
		return models.RateLimitDecision{Allowed: false, ResetTime: record.ResetTime}, nil
	}

	record.Count++
	return models.RateLimitDecision{Allowed: true}, nil
}

// Sweep evicts every record whose window has expired and returns how many were removed.
// Shards are locked one at a time.
func (s *MemoryRateLimitStore) Sweep(now time.Time) int {
	evicted := 0
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		for key, record := range shard.records {
			if record.Expired(now) {
				delete(shard.records, key)
				evicted++
			}
		}
		shard.mu.Unlock()
	}
	return evicted
}

// Len returns the number of tracked keys
func (s *MemoryRateLimitStore) Len() int {
	total := 0
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		total += len(shard.records)
		shard.mu.Unlock()
	}
	return total
}

// Record returns a copy of the record for key, if any
func (s *MemoryRateLimitStore) Record(key string) (models.RateLimitRecord, bool) {
	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	record, ok := shard.records[key]
	if !ok {
		return models.RateLimitRecord{}, false
	}
	return *record, true
}

// RateLimitService applies the contact submission rate limit
type RateLimitService struct {
	store  RateLimitStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(store RateLimitStore, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CheckRateLimit records a submission attempt for clientKey and reports whether it may proceed
func (s *RateLimitService) CheckRateLimit(ctx context.Context, clientKey string) models.RateLimitDecision {
	decision, err := s.store.Hit(ctx, clientKey, s.now())
	if err != nil {
		// Fail open for availability - store errors shouldn't block legitimate visitors
		s.logger.Error("failed to check contact rate limit",
			slog.String("client_key", clientKey),
			slog.Any("error", err))
		return models.RateLimitDecision{Allowed: true}
	}

	if !decision.Allowed {
		s.logger.Warn("contact submission rate limited",
			slog.String("client_key", clientKey),
			slog.Time("reset_time", decision.ResetTime))
	}

	return decision
}

package records

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"attesta/internal/compliance"
	id "attesta/pkg/domain"
	"attesta/pkg/platform/circuit"
)

// cacheProbeInterval is how often an open circuit lets a lookup through to
// Redis so the breaker can observe recovery and close again.
const cacheProbeInterval = 16

// CachedPolicyStore is a read-through Redis cache over a PolicyStore. Policies
// change rarely and are read on every audit, so a short TTL removes most
// lookups from the hot path. The cache fails open: any Redis error falls
// through to the inner store, and a circuit breaker stops cache traffic
// entirely while Redis is down.
type CachedPolicyStore struct {
	inner   PolicyStore
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	breaker *circuit.Breaker
	probes  atomic.Uint64
}

func NewCachedPolicyStore(inner PolicyStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedPolicyStore {
	return &CachedPolicyStore{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		breaker: circuit.New("policy-cache"),
	}
}

func policyCacheKey(policyID id.PolicyID) string {
	return "attesta:policy:" + policyID.String()
}

func (s *CachedPolicyStore) GetPolicy(ctx context.Context, policyID id.PolicyID) (*compliance.CompliancePolicy, error) {
	key := policyCacheKey(policyID)
	cacheUsable := !s.breaker.IsOpen()
	if !cacheUsable && s.probes.Add(1)%cacheProbeInterval == 0 {
		// Probe an open circuit so RecordSuccess can close it once Redis
		// is reachable again.
		cacheUsable = true
	}

	if cacheUsable {
		raw, err := s.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			s.recordSuccess(ctx)
			var policy compliance.CompliancePolicy
			if jsonErr := json.Unmarshal(raw, &policy); jsonErr == nil {
				return &policy, nil
			}
			// Corrupt entry: drop it and fall through.
			s.client.Del(ctx, key)
		case errors.Is(err, redis.Nil):
			s.recordSuccess(ctx)
		default:
			cacheUsable = s.recordFailure(ctx, err)
		}
	}

	policy, err := s.inner.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	if cacheUsable {
		if raw, jsonErr := json.Marshal(policy); jsonErr == nil {
			if setErr := s.client.Set(ctx, key, raw, s.ttl).Err(); setErr != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "policy cache write failed",
					"policy_id", policyID,
					"error", setErr,
				)
			}
		}
	}
	return policy, nil
}

func (s *CachedPolicyStore) recordSuccess(ctx context.Context) {
	if _, change := s.breaker.RecordSuccess(); change.Closed && s.logger != nil {
		s.logger.InfoContext(ctx, "policy cache circuit closed, resuming cache reads")
	}
}

// recordFailure returns false once the breaker decides the cache should be
// skipped.
func (s *CachedPolicyStore) recordFailure(ctx context.Context, err error) bool {
	useFallback, change := s.breaker.RecordFailure()
	if s.logger != nil {
		if change.Opened {
			s.logger.WarnContext(ctx, "policy cache circuit opened, bypassing cache", "error", err)
		} else {
			s.logger.WarnContext(ctx, "policy cache read failed, falling through", "error", err)
		}
	}
	return !useFallback
}

func (s *CachedPolicyStore) ListPolicies(ctx context.Context) ([]*compliance.CompliancePolicy, error) {
	// Listing is a configuration surface, not a hot path; always hit the
	// inner store so it reflects the full current set.
	return s.inner.ListPolicies(ctx)
}

// PutPolicy writes through to the inner store and invalidates the cache entry.
func (s *CachedPolicyStore) PutPolicy(ctx context.Context, policy *compliance.CompliancePolicy) error {
	if err := s.inner.PutPolicy(ctx, policy); err != nil {
		return err
	}
	if policy != nil {
		if err := s.client.Del(ctx, policyCacheKey(policy.PolicyID)).Err(); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "policy cache invalidation failed",
				"policy_id", policy.PolicyID,
				"error", err,
			)
		}
	}
	return nil
}

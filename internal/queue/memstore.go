package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemStore is an in-process Store for tests and single-node/local-dev use
// (spec §4.1's "any such store suffices" — gothub's own tests never stood
// up a real Postgres either, see database_test.go's sqlite fallback). One
// mutex serializes every queue, claim, result, stats and lease operation,
// which is enough atomicity for everything Resolve/CompareAndUpdateClaim
// need and far simpler than reproducing Redis's Lua-script semantics for a
// backend nothing but tests exercises concurrently at scale. Pub/sub
// subscriber lists are guarded by a second mutex, subsMu.
type MemStore struct {
	mu sync.Mutex

	queues  map[string]map[JobID]float64
	descs   map[string]map[JobID][]byte
	claims  map[string]map[JobID][]byte
	results map[string]map[JobID][]byte
	stats   map[string]*QueueStats
	leases  map[string]time.Time

	subsMu sync.Mutex
	subs   map[string][]*memSubscription
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		queues:  make(map[string]map[JobID]float64),
		descs:   make(map[string]map[JobID][]byte),
		claims:  make(map[string]map[JobID][]byte),
		results: make(map[string]map[JobID][]byte),
		stats:   make(map[string]*QueueStats),
		leases:  make(map[string]time.Time),
		subs:    make(map[string][]*memSubscription),
	}
}

type memSubscription struct {
	ch     chan string
	closed bool
}

func (s *memSubscription) C() <-chan string { return s.ch }

func (s *memSubscription) Close() error {
	close(s.ch)
	s.closed = true
	return nil
}

func (m *MemStore) queueSet(name string) map[JobID]float64 {
	s, ok := m.queues[name]
	if !ok {
		s = make(map[JobID]float64)
		m.queues[name] = s
	}
	return s
}

func (m *MemStore) descSet(name string) map[JobID][]byte {
	s, ok := m.descs[name]
	if !ok {
		s = make(map[JobID][]byte)
		m.descs[name] = s
	}
	return s
}

func (m *MemStore) claimSet(name string) map[JobID][]byte {
	s, ok := m.claims[name]
	if !ok {
		s = make(map[JobID][]byte)
		m.claims[name] = s
	}
	return s
}

func (m *MemStore) resultSet(name string) map[JobID][]byte {
	s, ok := m.results[name]
	if !ok {
		s = make(map[JobID][]byte)
		m.results[name] = s
	}
	return s
}

func (m *MemStore) statsFor(name string) *QueueStats {
	s, ok := m.stats[name]
	if !ok {
		s = &QueueStats{}
		m.stats[name] = s
	}
	return s
}

func (m *MemStore) channelName(queueName string) string {
	return "wq:" + queueName + ":wake"
}

func (m *MemStore) Enqueue(ctx context.Context, queueName string, jobID JobID, descriptor []byte, priority float64) error {
	m.mu.Lock()
	m.descSet(queueName)[jobID] = descriptor
	m.queueSet(queueName)[jobID] = priority
	m.statsFor(queueName).Scheduled++
	m.mu.Unlock()
	return m.Publish(ctx, m.channelName(queueName), string(jobID))
}

func (m *MemStore) PopMin(ctx context.Context, queueName string) (JobID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.queueSet(queueName)
	var best JobID
	var bestScore float64
	found := false
	for id, score := range set {
		if !found || score < bestScore || (score == bestScore && id < best) {
			best, bestScore, found = id, score, true
		}
	}
	if !found {
		return "", false, nil
	}
	delete(set, best)
	return best, true, nil
}

func (m *MemStore) GetDescriptor(ctx context.Context, queueName string, jobID JobID) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.descSet(queueName)[jobID]
	return d, ok, nil
}

func (m *MemStore) DeleteDescriptor(ctx context.Context, queueName string, jobID JobID) error {
	m.mu.Lock()
	delete(m.descSet(queueName), jobID)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Requeue(ctx context.Context, queueName string, jobID JobID, priority float64) error {
	m.mu.Lock()
	m.queueSet(queueName)[jobID] = priority
	m.mu.Unlock()
	return m.Publish(ctx, m.channelName(queueName), string(jobID))
}

func (m *MemStore) RemoveFromQueue(ctx context.Context, queueName string, jobID JobID) error {
	m.mu.Lock()
	delete(m.queueSet(queueName), jobID)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) SetClaim(ctx context.Context, queueName string, jobID JobID, claim []byte) error {
	m.mu.Lock()
	m.claimSet(queueName)[jobID] = claim
	m.statsFor(queueName).Claimed++
	m.mu.Unlock()
	return nil
}

func (m *MemStore) GetClaim(ctx context.Context, queueName string, jobID JobID) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claimSet(queueName)[jobID]
	return c, ok, nil
}

func (m *MemStore) CompareAndUpdateClaim(ctx context.Context, queueName string, jobID JobID, expectedWorkerID string, newClaim []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claims := m.claimSet(queueName)
	cur, ok := claims[jobID]
	if !ok || !claimOwnedBy(cur, expectedWorkerID) {
		return false, nil
	}
	claims[jobID] = newClaim
	return true, nil
}

func (m *MemStore) DeleteClaim(ctx context.Context, queueName string, jobID JobID) error {
	m.mu.Lock()
	delete(m.claimSet(queueName), jobID)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) AllClaims(ctx context.Context, queueName string) (map[JobID][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[JobID][]byte, len(m.claimSet(queueName)))
	for k, v := range m.claimSet(queueName) {
		out[k] = v
	}
	return out, nil
}

func (m *MemStore) Resolve(ctx context.Context, queueName string, jobID JobID, expectedWorkerID string, result []byte, statName string) (bool, error) {
	m.mu.Lock()
	claims := m.claimSet(queueName)
	cur, ok := claims[jobID]
	if !ok || !claimOwnedBy(cur, expectedWorkerID) {
		m.mu.Unlock()
		return false, nil
	}
	delete(m.descSet(queueName), jobID)
	delete(claims, jobID)
	m.resultSet(queueName)[jobID] = result
	bumpStat(m.statsFor(queueName), statName)
	m.mu.Unlock()
	return true, m.Publish(ctx, m.channelName(queueName), string(jobID))
}

func (m *MemStore) GetResult(ctx context.Context, queueName string, jobID JobID) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resultSet(queueName)[jobID]
	return r, ok, nil
}

func (m *MemStore) DeleteResult(ctx context.Context, queueName string, jobID JobID) error {
	m.mu.Lock()
	delete(m.resultSet(queueName), jobID)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) AllResultJobIDs(ctx context.Context, queueName string) ([]JobID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]JobID, 0, len(m.resultSet(queueName)))
	for id := range m.resultSet(queueName) {
		out = append(out, id)
	}
	return out, nil
}

func (m *MemStore) Stats(ctx context.Context, queueName string) (QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.statsFor(queueName), nil
}

func (m *MemStore) Publish(ctx context.Context, channel string, payload string) error {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, sub := range m.subs[channel] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
		}
	}
	return nil
}

func (m *MemStore) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &memSubscription{ch: make(chan string, 16)}
	m.subsMu.Lock()
	m.subs[channel] = append(m.subs[channel], sub)
	m.subsMu.Unlock()
	return sub, nil
}

func (m *MemStore) TryAcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if expiry, ok := m.leases[key]; ok && now.Before(expiry) {
		return false, nil
	}
	m.leases[key] = now.Add(ttl)
	return true, nil
}

// claimOwnedBy reports whether the JSON-encoded claim's worker_id field
// equals workerID.
func claimOwnedBy(claimJSON []byte, workerID string) bool {
	var c Claim
	if err := json.Unmarshal(claimJSON, &c); err != nil {
		return false
	}
	return c.WorkerID == workerID
}

func bumpStat(s *QueueStats, statName string) {
	switch statName {
	case "succeeded":
		s.Succeeded++
	case "failed":
		s.Failed++
	case "errored":
		s.Errored++
	}
}

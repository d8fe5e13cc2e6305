package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production Store, backed by go-redis. Each method that
// spec §4.1 requires to be atomic is implemented with a Lua script, since
// EVAL executes as a single Redis command and Redis never interleaves
// another client's commands inside it — the same guarantee gothub's
// database.go leans on Postgres row locks for, just expressed in Redis's
// idiom instead.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func queueKey(name string) string    { return "wq:" + name + ":queue" }
func claimsKey(name string) string   { return "wq:" + name + ":claims" }
func statsKey(name string) string    { return "wq:" + name + ":stats" }
func descKey(name, job string) string { return "wq:" + name + ":job:" + job }
func resultKey(name, job string) string {
	return "wq:" + name + ":result:" + job
}
func wakeChannel(name string) string { return "wq:" + name + ":wake" }

var enqueueScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[3])
redis.call('HINCRBY', KEYS[3], 'scheduled', 1)
redis.call('PUBLISH', KEYS[4], ARGV[3])
return 1
`)

func (s *RedisStore) Enqueue(ctx context.Context, queueName string, jobID JobID, descriptor []byte, priority float64) error {
	_, err := enqueueScript.Run(ctx, s.rdb,
		[]string{descKey(queueName, string(jobID)), queueKey(queueName), statsKey(queueName), wakeChannel(queueName)},
		priority, descriptor, string(jobID),
	).Result()
	return err
}

func (s *RedisStore) PopMin(ctx context.Context, queueName string) (JobID, bool, error) {
	res, err := s.rdb.ZPopMin(ctx, queueKey(queueName), 1).Result()
	if err != nil {
		return "", false, err
	}
	if len(res) == 0 {
		return "", false, nil
	}
	member, _ := res[0].Member.(string)
	return JobID(member), true, nil
}

func (s *RedisStore) GetDescriptor(ctx context.Context, queueName string, jobID JobID) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, descKey(queueName, string(jobID))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) DeleteDescriptor(ctx context.Context, queueName string, jobID JobID) error {
	return s.rdb.Del(ctx, descKey(queueName, string(jobID))).Err()
}

func (s *RedisStore) Requeue(ctx context.Context, queueName string, jobID JobID, priority float64) error {
	if err := s.rdb.ZAdd(ctx, queueKey(queueName), redis.Z{Score: priority, Member: string(jobID)}).Err(); err != nil {
		return err
	}
	return s.Publish(ctx, wakeChannel(queueName), string(jobID))
}

func (s *RedisStore) RemoveFromQueue(ctx context.Context, queueName string, jobID JobID) error {
	return s.rdb.ZRem(ctx, queueKey(queueName), string(jobID)).Err()
}

func (s *RedisStore) SetClaim(ctx context.Context, queueName string, jobID JobID, claim []byte) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, claimsKey(queueName), string(jobID), claim)
	pipe.HIncrBy(ctx, statsKey(queueName), "claimed", 1)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetClaim(ctx context.Context, queueName string, jobID JobID) ([]byte, bool, error) {
	b, err := s.rdb.HGet(ctx, claimsKey(queueName), string(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

var compareAndUpdateClaimScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if not cur then return 0 end
local worker = cjson.decode(cur)['worker_id']
if worker ~= ARGV[2] then return 0 end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
return 1
`)

func (s *RedisStore) CompareAndUpdateClaim(ctx context.Context, queueName string, jobID JobID, expectedWorkerID string, newClaim []byte) (bool, error) {
	res, err := compareAndUpdateClaimScript.Run(ctx, s.rdb,
		[]string{claimsKey(queueName)},
		string(jobID), expectedWorkerID, newClaim,
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) DeleteClaim(ctx context.Context, queueName string, jobID JobID) error {
	return s.rdb.HDel(ctx, claimsKey(queueName), string(jobID)).Err()
}

func (s *RedisStore) AllClaims(ctx context.Context, queueName string) (map[JobID][]byte, error) {
	raw, err := s.rdb.HGetAll(ctx, claimsKey(queueName)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[JobID][]byte, len(raw))
	for k, v := range raw {
		out[JobID(k)] = []byte(v)
	}
	return out, nil
}

var resolveScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if not cur then return 0 end
local worker = cjson.decode(cur)['worker_id']
if worker ~= ARGV[2] then return 0 end
redis.call('DEL', KEYS[2])
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('SET', KEYS[3], ARGV[3])
if ARGV[4] ~= '' then
  redis.call('HINCRBY', KEYS[4], ARGV[4], 1)
end
redis.call('PUBLISH', KEYS[5], ARGV[1])
return 1
`)

// Resolve stores the job's terminal result and wakes any WaitForJob
// callers blocked on the queue's wake channel, all inside the same
// EVAL so a resolving worker's publish can never be observed before
// the result it announces is actually readable (spec §4.1, §9).
func (s *RedisStore) Resolve(ctx context.Context, queueName string, jobID JobID, expectedWorkerID string, result []byte, statName string) (bool, error) {
	res, err := resolveScript.Run(ctx, s.rdb,
		[]string{claimsKey(queueName), descKey(queueName, string(jobID)), resultKey(queueName, string(jobID)), statsKey(queueName), wakeChannel(queueName)},
		string(jobID), expectedWorkerID, result, statName,
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) GetResult(ctx context.Context, queueName string, jobID JobID) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, resultKey(queueName, string(jobID))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) DeleteResult(ctx context.Context, queueName string, jobID JobID) error {
	return s.rdb.Del(ctx, resultKey(queueName, string(jobID))).Err()
}

func (s *RedisStore) AllResultJobIDs(ctx context.Context, queueName string) ([]JobID, error) {
	var out []JobID
	iter := s.rdb.Scan(ctx, 0, "wq:"+queueName+":result:*", 0).Iterator()
	prefix := len("wq:" + queueName + ":result:")
	for iter.Next(ctx) {
		key := iter.Val()
		if len(key) > prefix {
			out = append(out, JobID(key[prefix:]))
		}
	}
	return out, iter.Err()
}

func (s *RedisStore) Stats(ctx context.Context, queueName string) (QueueStats, error) {
	raw, err := s.rdb.HGetAll(ctx, statsKey(queueName)).Result()
	if err != nil {
		return QueueStats{}, err
	}
	return QueueStats{
		Succeeded: statInt(raw["succeeded"]),
		Failed:    statInt(raw["failed"]),
		Errored:   statInt(raw["errored"]),
		Scheduled: statInt(raw["scheduled"]),
		Claimed:   statInt(raw["claimed"]),
	}, nil
}

func statInt(s string) int64 {
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int64(r-'0')
	}
	return n
}

func (s *RedisStore) Publish(ctx context.Context, channel string, payload string) error {
	return s.rdb.Publish(ctx, channel, payload).Err()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan string
	cancel context.CancelFunc
}

func (r *redisSubscription) C() <-chan string { return r.ch }

func (r *redisSubscription) Close() error {
	r.cancel()
	return r.pubsub.Close()
}

func (s *RedisStore) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	subCtx, cancel := context.WithCancel(ctx)
	out := &redisSubscription{pubsub: pubsub, ch: make(chan string, 16), cancel: cancel}
	go func() {
		defer close(out.ch)
		src := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				select {
				case out.ch <- msg.Payload:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) TryAcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, "1", ttl).Result()
}

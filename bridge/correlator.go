package bridge

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	bolt "go.etcd.io/bbolt"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/metrics"
)

var correlatorBucket = []byte("correlator_uids")

// Correlator maps a SAPIENT detection's (node_id, object_id,
// detection_id) triple into a stable cot.Uid per Config.UidPolicy. Its
// cache is an expirable LRU keyed by composite key; on eviction, the
// next observation for that key allocates a fresh Uid (eviction drops
// the record, never the key-holding consumer, per spec.md §9's
// cyclic-entity-graph note).
type Correlator struct {
	mu       sync.Mutex
	policy   UidPolicy
	custom   CustomUidFunc
	cache    *lru.LRU[string, string]
	db       *bolt.DB
	metrics  *metrics.Set
	logger   *slog.Logger
	sequence uint64
}

// NewCorrelator builds a Correlator whose cache entries expire after
// ttl. If persistPath is non-empty, the UID map is durably backed by a
// bbolt database at that path, so UIDs survive a process restart
// (determinism otherwise holds only within one session, per spec.md §4.7.1).
func NewCorrelator(policy UidPolicy, custom CustomUidFunc, ttl time.Duration, persistPath string, m *metrics.Set, logger *slog.Logger) (*Correlator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Correlator{policy: policy, custom: custom, metrics: m, logger: logger}
	c.cache = lru.NewLRU[string, string](0, c.onEvict, ttl)

	if persistPath != "" {
		db, err := bolt.Open(persistPath, 0o600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, errs.Wrap(errs.KindPersistenceFailed, "opening correlator persistence store failed", err)
		}
		if err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(correlatorBucket)
			return err
		}); err != nil {
			_ = db.Close()
			return nil, errs.Wrap(errs.KindPersistenceFailed, "creating correlator bucket failed", err)
		}
		c.db = db
	}
	return c, nil
}

func (c *Correlator) onEvict(key string, _ string) {
	if c.metrics != nil {
		c.metrics.BridgeCorrelatorEvictions.Inc()
	}
}

// compositeKey builds the cache key per Config.UidPolicy.
func (c *Correlator) compositeKey(nodeID, objectID, detectionID string) string {
	if c.policy == UidStablePerDetection {
		return nodeID + "\x00" + objectID + "\x00" + detectionID
	}
	return nodeID + "\x00" + objectID
}

// Resolve returns the stable Uid for a detection's correlation fields,
// allocating a new one on first observation (or after cache eviction).
func (c *Correlator) Resolve(nodeID, objectID, detectionID string) (cot.Uid, error) {
	if c.policy == UidCustom {
		return cot.Uid(c.custom(nodeID, objectID, detectionID)), nil
	}

	key := c.compositeKey(nodeID, objectID, detectionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if uid, ok := c.cache.Get(key); ok {
		return cot.Uid(uid), nil
	}

	if c.db != nil {
		var stored string
		err := c.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket(correlatorBucket)
			if v := b.Get([]byte(key)); v != nil {
				stored = string(v)
			}
			return nil
		})
		if err != nil {
			return "", errs.Wrap(errs.KindPersistenceFailed, "reading correlator persistence store failed", err)
		}
		if stored != "" {
			c.cache.Add(key, stored)
			return cot.Uid(stored), nil
		}
	}

	uid := c.allocateUid(key)
	c.cache.Add(key, uid)
	if c.db != nil {
		if err := c.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(correlatorBucket).Put([]byte(key), []byte(uid))
		}); err != nil {
			return "", errs.Wrap(errs.KindPersistenceFailed, "writing correlator persistence store failed", err)
		}
	}
	return cot.Uid(uid), nil
}

// allocateUid derives a deterministic-within-session Uid from the
// composite key and an internal monotonic sequence number, avoiding
// any dependency on wall-clock or random sources so replay stays
// byte-identical.
func (c *Correlator) allocateUid(key string) string {
	c.sequence++
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], c.sequence)
	return fmt.Sprintf("bridge-%x-%s", seqBuf, hashKey(key))
}

func hashKey(key string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return fmt.Sprintf("%08x", h)
}

// Close releases the persistence store, if any.
func (c *Correlator) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

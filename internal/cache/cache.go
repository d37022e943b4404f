package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/recommend"
	"github.com/devfeed/backend/pkg/logger"
	"github.com/devfeed/backend/pkg/utils"
)

// ErrNotFound is returned by Distributed implementations on a clean miss,
// as opposed to a transport failure.
var ErrNotFound = errors.New("cache: key not found")

// Distributed is the external cache tier. It may be unreachable at any
// point; the Layer absorbs every error it returns.
type Distributed interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type memoryEntry struct {
	results   []recommend.Result
	expiresAt time.Time
}

// Layer is the two-tier result cache: an in-process map with a short TTL
// checked first, then the distributed tier with a longer TTL. Distributed
// hits are promoted into memory; misses fall through to recomputation.
// Cache trouble never fails a request, it only slows one down.
type Layer struct {
	dist    Distributed
	memTTL  time.Duration
	distTTL time.Duration

	mu       sync.RWMutex
	entries  map[string]memoryEntry
	userKeys map[string]map[string]struct{}

	now func() time.Time
}

func NewLayer(dist Distributed, memTTL, distTTL time.Duration) *Layer {
	return &Layer{
		dist:     dist,
		memTTL:   memTTL,
		distTTL:  distTTL,
		entries:  make(map[string]memoryEntry),
		userKeys: make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

func (l *Layer) Get(ctx context.Context, req recommend.Request) ([]recommend.Result, bool) {
	key := Fingerprint(req)

	l.mu.RLock()
	entry, ok := l.entries[key]
	l.mu.RUnlock()
	if ok && entry.expiresAt.After(l.now()) {
		return entry.results, true
	}

	if l.dist == nil {
		return nil, false
	}

	data, err := l.dist.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("Distributed cache get failed", zap.Error(err))
		}
		return nil, false
	}

	var results []recommend.Result
	if err := json.Unmarshal(data, &results); err != nil {
		logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	l.storeMemory(req.UserID, key, results)
	return results, true
}

func (l *Layer) Put(ctx context.Context, req recommend.Request, results []recommend.Result) {
	key := Fingerprint(req)
	l.storeMemory(req.UserID, key, results)

	if l.dist == nil {
		return
	}

	data, err := json.Marshal(results)
	if err != nil {
		logger.Warn("Failed to encode results for cache", zap.Error(err))
		return
	}
	if err := l.dist.Set(ctx, key, data, l.distTTL); err != nil {
		logger.Warn("Distributed cache set failed", zap.Error(err))
	}
}

// Invalidate removes every entry derived from this user from both tiers.
// Keys are looked up in the per-user index rather than scanned by pattern.
func (l *Layer) Invalidate(ctx context.Context, userID string) {
	l.mu.Lock()
	keys := make([]string, 0, len(l.userKeys[userID]))
	for key := range l.userKeys[userID] {
		keys = append(keys, key)
		delete(l.entries, key)
	}
	delete(l.userKeys, userID)
	l.mu.Unlock()

	if len(keys) == 0 || l.dist == nil {
		return
	}
	if err := l.dist.Delete(ctx, keys...); err != nil {
		logger.Warn("Distributed cache invalidation failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	logger.Info("User cache invalidated",
		zap.String("user_id", userID),
		zap.Int("keys", len(keys)),
	)
}

func (l *Layer) storeMemory(userID, key string, results []recommend.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[key] = memoryEntry{
		results:   results,
		expiresAt: l.now().Add(l.memTTL),
	}
	if l.userKeys[userID] == nil {
		l.userKeys[userID] = make(map[string]struct{})
	}
	l.userKeys[userID][key] = struct{}{}
}

// Fingerprint derives the deterministic cache key for a request. Fields are
// normalized first, so reordered or re-cased technology lists and sloppy
// title whitespace address the same entry.
func Fingerprint(req recommend.Request) string {
	techs := req.NormalizedTechnologies()
	sort.Strings(techs)

	parts := []string{
		req.UserID,
		strings.Join(strings.Fields(req.Title), " "),
		strings.Join(techs, ","),
		strconv.Itoa(req.MaxRecommendations),
		string(req.Preference),
		strconv.FormatFloat(req.QualityThreshold, 'f', -1, 64),
	}
	return "rec:" + utils.HashString(strings.Join(parts, "|"))
}

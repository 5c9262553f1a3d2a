package storeclient

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AvivSela/product-watch-il/internal/domain/model"
)

// IDCache — LRU-кэш ID магазинов по естественному ключу с TTL.
// Кэш локален для экземпляра сервиса. nil *IDCache — кэш отключён.
type IDCache struct {
	cache  *expirable.LRU[model.StoreKey, uuid.UUID]
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewIDCache создаёт кэш на maxSize записей с временем жизни ttl.
// maxSize <= 0 отключает кэш (возвращается nil).
func NewIDCache(maxSize int, ttl time.Duration, reg prometheus.Registerer) *IDCache {
	if maxSize <= 0 {
		return nil
	}
	f := promauto.With(reg)
	return &IDCache{
		cache: expirable.NewLRU[model.StoreKey, uuid.UUID](maxSize, nil, ttl),
		hits: f.NewCounter(prometheus.CounterOpts{
			Name: "store_client_cache_hits_total",
			Help: "Количество попаданий в кэш ID магазинов.",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Name: "store_client_cache_misses_total",
			Help: "Количество промахов кэша ID магазинов.",
		}),
	}
}

// Get возвращает ID магазина из кэша.
func (c *IDCache) Get(key model.StoreKey) (uuid.UUID, bool) {
	if c == nil {
		return uuid.Nil, false
	}
	id, ok := c.cache.Get(key)
	if ok {
		c.hits.Inc()
		return id, true
	}
	c.misses.Inc()
	return uuid.Nil, false
}

// Set сохраняет ID магазина.
func (c *IDCache) Set(key model.StoreKey, id uuid.UUID) {
	if c == nil {
		return
	}
	c.cache.Add(key, id)
}

// Len возвращает количество записей в кэше.
func (c *IDCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"siemadmin/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 缓存命中统计
type Metrics struct {
	Hits   prometheus.Counter
	Misses prometheus.Counter
	Errors *prometheus.CounterVec
}

// NewMetrics 创建并注册缓存指标，registry 为 nil 时只创建不注册
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "siemadmin_navigation_cache_hits_total",
			Help: "Navigation cache hits",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "siemadmin_navigation_cache_misses_total",
			Help: "Navigation cache misses",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siemadmin_navigation_cache_errors_total",
			Help: "Navigation cache backend failures, by operation",
		}, []string{"op"}),
	}
	if registry != nil {
		registry.MustRegister(m.Hits, m.Misses, m.Errors)
	}
	return m
}

// NavigationCache 带命名空间的 getOrCompute 缓存
// 命名空间内任何写操作都通过 InvalidateAll 整体失效
type NavigationCache struct {
	store   Store
	prefix  string
	ttl     time.Duration
	metrics *Metrics
}

// NewNavigationCache store 为 nil 时每次直接回源
func NewNavigationCache(store Store, prefix string, ttl time.Duration, metrics *Metrics) *NavigationCache {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if rs, ok := store.(*RedisStore); ok && rs == nil {
		store = nil
	}
	return &NavigationCache{store: store, prefix: prefix, ttl: ttl, metrics: metrics}
}

// Key 命名空间内的完整键
func (c *NavigationCache) Key(parts ...string) string {
	key := c.prefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// GetOrCompute 命中时原样返回缓存字节；未命中时计算、序列化并写回
// 缓存读写失败只记日志，结果始终来自 compute 或缓存之一
func (c *NavigationCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (interface{}, error)) (json.RawMessage, error) {
	if c.enabled() {
		data, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			c.metrics.Hits.Inc()
			return json.RawMessage(data), nil
		case errors.Is(err, ErrMiss):
			c.metrics.Misses.Inc()
		default:
			c.degraded("get", key, err)
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	if c.enabled() {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			c.degraded("set", key, err)
		}
	}
	return json.RawMessage(data), nil
}

// InvalidateAll 删除命名空间下全部键
func (c *NavigationCache) InvalidateAll(ctx context.Context) {
	if !c.enabled() {
		return
	}
	pattern := c.prefix + "*"
	if err := c.store.DeletePattern(ctx, pattern); err != nil {
		c.degraded("invalidate", pattern, err)
	}
}

// Ping 健康检查，缓存未启用时返回 nil
func (c *NavigationCache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.store.Ping(ctx)
}

// Enabled 是否配置了缓存后端
func (c *NavigationCache) Enabled() bool {
	return c.enabled()
}

func (c *NavigationCache) enabled() bool {
	return c != nil && c.store != nil
}

func (c *NavigationCache) degraded(op, key string, err error) {
	c.metrics.Errors.WithLabelValues(op).Inc()
	logger.LogCacheDegraded(op, key, err)
}

package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/skalibog/mtfscan/pkg/models"
)

// TTLClass класс данных, определяющий срок жизни записи
type TTLClass int

const (
	// ClassListing список инструментов биржи
	ClassListing TTLClass = iota
	// ClassFast свечи младших таймфреймов, устаревают быстро
	ClassFast
	// ClassSlow свечи старших таймфреймов
	ClassSlow
	// ClassDefault промежуточные таймфреймы
	ClassDefault
)

// Policy сроки жизни записей по классам
type Policy struct {
	Listing time.Duration
	Fast    time.Duration
	Slow    time.Duration
	Default time.Duration
}

// TTL возвращает срок жизни для класса данных
func (p Policy) TTL(class TTLClass) time.Duration {
	switch class {
	case ClassListing:
		return p.Listing
	case ClassFast:
		return p.Fast
	case ClassSlow:
		return p.Slow
	default:
		return p.Default
	}
}

// ClassForTimeframe классифицирует таймфрейм: до 30 минут включительно —
// быстрый, от 4 часов — медленный, остальные — обычный.
func ClassForTimeframe(timeframe string) TTLClass {
	d, err := models.IntervalDuration(timeframe)
	if err != nil {
		return ClassDefault
	}
	switch {
	case d <= 30*time.Minute:
		return ClassFast
	case d >= 4*time.Hour:
		return ClassSlow
	default:
		return ClassDefault
	}
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
	ttl       time.Duration
}

func (e entry[V]) valid(now time.Time) bool {
	return now.Sub(e.fetchedAt) < e.ttl
}

// Cache потокобезопасный кэш с ленивым вытеснением по TTL.
// Конкурентные запросы одного ключа приводят максимум к одному вызову fetch:
// дедупликацию выполняет singleflight, остальные вызывающие получают общий
// результат или общую ошибку. Ошибочный результат не сохраняется, следующий
// вызов повторяет fetch заново.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	policy  Policy
	group   singleflight.Group
	now     func() time.Time
}

// New создает кэш с заданной TTL-политикой
func New[V any](policy Policy) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		policy:  policy,
		now:     time.Now,
	}
}

// GetOrFetch возвращает живое значение из кэша либо вызывает fetch и
// сохраняет результат. Просроченная запись никогда не возвращается.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, class TTLClass, fetch func(ctx context.Context) (V, error)) (V, error) {
	if value, ok := c.lookup(key); ok {
		return value, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Повторная проверка: запись могла появиться, пока мы ждали очередь
		if value, ok := c.lookup(key); ok {
			return value, nil
		}

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry[V]{
			value:     value,
			fetchedAt: c.now(),
			ttl:       c.policy.TTL(class),
		}
		c.mu.Unlock()

		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	return result.(V), nil
}

// lookup возвращает живую запись, просроченная удаляется
func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	if ok && e.valid(now) {
		return e.value, true
	}
	if ok {
		c.mu.Lock()
		if stale, still := c.entries[key]; still && !stale.valid(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	var zero V
	return zero, false
}

// Clear удаляет все записи
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// Len возвращает количество записей, включая просроченные
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

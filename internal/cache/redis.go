// Package cache реализует персистентное key/value хранилище на redis
// с меткой времени записи и контролем срока жизни на чтении.
//
// Каждое значение заворачивается в конверт с полем cached_at. Запись,
// возраст которой превысил TTL своего слота, на чтении считается
// отсутствующей. Повреждённая (неразбираемая) запись тоже считается
// отсутствующей и сразу удаляется — кеш самовосстанавливается.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/entitlement-service/internal/config"
)

// Cache обёртка над клиентом redis.
type Cache struct {
	Db  *redis.Client
	now func() time.Time
}

// envelope конверт, в котором значение лежит в redis.
type envelope struct {
	Payload  json.RawMessage `json:"payload"`
	CachedAt time.Time       `json:"cached_at"`
}

// InitServer создает подключение к redis и проверяет его ping-ом.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, now: time.Now}, nil
}

// Put сериализует значение вместе с меткой времени и сохраняет его.
// Срок жизни ключа в redis ставится с запасом: истечение по возрасту
// контролируется на чтении, чтобы два источника времени не спорили.
func (c *Cache) Put(key string, value any, ttl time.Duration) error {
	const op = "cache.Put"
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	env := envelope{Payload: payload, CachedAt: c.now()}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.Db.Set(context.Background(), key, data, ttl+ttlSlack).Err()
}

// Get возвращает значение, только если запись есть, разобралась и не
// старше ttl. Повреждённая запись удаляется, результат — как при промахе.
// Ошибки десериализации наружу не отдаются: для вызывающего это промах.
func (c *Cache) Get(key string, ttl time.Duration, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(val), &env); err != nil {
		c.purge(key)
		return false, nil
	}
	if env.CachedAt.IsZero() || len(env.Payload) == 0 {
		c.purge(key)
		return false, nil
	}
	if c.now().Sub(env.CachedAt) > ttl {
		return false, nil
	}
	if err := json.Unmarshal(env.Payload, result); err != nil {
		c.purge(key)
		return false, nil
	}
	return true, nil
}

// Invalidate немедленно удаляет запись по ключу.
// Операция затрагивает только собственный слот ключа.
func (c *Cache) Invalidate(key string) error {
	return c.Db.Del(context.Background(), key).Err()
}

// purge удаляет повреждённую запись, ошибки удаления некритичны.
func (c *Cache) purge(key string) {
	_ = c.Db.Del(context.Background(), key).Err()
}

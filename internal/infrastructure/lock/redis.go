// Package lock implementa el candado de corridas por cliente: Redis (redislock) cuando hay
// varias instancias y un candado en memoria para el CLI o una sola instancia.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/pkg/config"
	"github.com/jhoicas/onboarding-contable/pkg/logger"
)

var _ onboarding.RunLocker = (*RedisLocker)(nil)

// DefaultTTL vida del candado si la configuración no la fija. Se renueva mientras la corrida siga.
const DefaultTTL = 2 * time.Minute

// RedisLocker candado distribuido sobre Redis.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisClient conecta a Redis y verifica con PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// NewRedisLocker construye el candado sobre un cliente ya conectado.
func NewRedisLocker(rdb redislock.RedisClient, ttl time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, log: log.Component("lock")}
}

// Acquire toma el candado sin esperar. Mientras no se libere se renueva cada ttl/2.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	lk, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunLocked, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: obtener candado %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(l.ttl / 2)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if err := lk.Refresh(context.Background(), l.ttl, nil); err != nil {
					l.log.Warn().Err(err).Str("key", key).Msg("no se pudo renovar el candado")
					return
				}
			}
		}
	}()

	var once sync.Once
	release := func(ctx context.Context) error {
		var err error
		once.Do(func() {
			close(stop)
			<-done
			if rerr := lk.Release(ctx); rerr != nil && !errors.Is(rerr, redislock.ErrLockNotHeld) {
				err = fmt.Errorf("redis: liberar candado %s: %w", key, rerr)
			}
		})
		return err
	}
	return release, nil
}

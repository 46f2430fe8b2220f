package cache

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// LayeredStore reads through a hot tier into the durable store, backfilling
// the hot tier on durable hits. Hot tier failures degrade to absence and
// never surface to callers.
type LayeredStore struct {
	Hot     Store
	Durable Store
}

func (l *LayeredStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := l.Hot.Exists(ctx, key)
	if err == nil && ok {
		return true, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("hot tier existence check failed")
	}
	return l.Durable.Exists(ctx, key)
}

func (l *LayeredStore) Get(ctx context.Context, key string) (Object, error) {
	obj, err := l.Hot.Get(ctx, key)
	if err == nil {
		return obj, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Warn().Err(err).Str("key", key).Msg("hot tier read failed")
	}

	obj, err = l.Durable.Get(ctx, key)
	if err != nil {
		return Object{}, err
	}
	if err := l.Hot.Put(ctx, key, obj); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("hot tier backfill failed")
	}
	return obj, nil
}

func (l *LayeredStore) Put(ctx context.Context, key string, obj Object) error {
	if err := l.Durable.Put(ctx, key, obj); err != nil {
		return err
	}
	if err := l.Hot.Put(ctx, key, obj); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("hot tier write failed")
	}
	return nil
}

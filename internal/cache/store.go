package cache

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cache object not found")

type Object struct {
	Body        []byte
	ContentType string
}

type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (Object, error)
	Put(ctx context.Context, key string, obj Object) error
}

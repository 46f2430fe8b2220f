package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tilemirror/tilemirror/internal/cache"
	"github.com/tilemirror/tilemirror/internal/imgfmt"
	"github.com/tilemirror/tilemirror/internal/persist"
	"github.com/tilemirror/tilemirror/internal/provider"
	"github.com/tilemirror/tilemirror/internal/upstream"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrUpstream   = errors.New("upstream fetch failed")
)

const (
	CacheHit  = "HIT"
	CacheMiss = "MISS"
)

// probeExtension is the extension the cache lookup always uses, regardless of
// the format a tile was actually stored with. Writes use the classified
// extension, so sources serving JPEG never match this probe. Kept for
// compatibility with the existing keyspace.
const probeExtension = "png"

var (
	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tilemirror_cache_hits_total",
		Help: "Tile requests served from the cache, partitioned by source",
	}, []string{"source"})
	cacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tilemirror_cache_misses_total",
		Help: "Tile requests that required an upstream fetch, partitioned by source",
	}, []string{"source"})
	upstreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tilemirror_upstream_errors_total",
		Help: "Failed upstream tile fetches, partitioned by source",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, upstreamErrors)
}

// Request carries the raw tile request tokens. Z, X and Y stay strings until
// parsed so their original formatting can be reused in the upstream URL.
type Request struct {
	Source string
	Z      string
	X      string
	Y      string
}

type Result struct {
	Body        []byte
	Format      imgfmt.Format
	CacheStatus string
}

// Resolver runs the cache-aside pipeline: validate, look up the provider,
// probe the cache, and on a miss fetch upstream, classify and persist.
type Resolver struct {
	registry *provider.Registry
	store    cache.Store
	upstream *upstream.Client
	queue    *persist.Queue
}

func New(registry *provider.Registry, store cache.Store, client *upstream.Client, queue *persist.Queue) *Resolver {
	return &Resolver{
		registry: registry,
		store:    store,
		upstream: client,
		queue:    queue,
	}
}

func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	if req.Source == "" || req.Z == "" || req.X == "" || req.Y == "" {
		return Result{}, fmt.Errorf("%w: missing parameters", ErrBadRequest)
	}

	z, errZ := strconv.Atoi(req.Z)
	x, errX := strconv.Atoi(req.X)
	y, errY := strconv.Atoi(req.Y)
	if errZ != nil || errX != nil || errY != nil {
		return Result{}, fmt.Errorf("%w: invalid coordinate format", ErrBadRequest)
	}

	p, ok := r.registry.Get(req.Source)
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown provider %q", ErrNotFound, req.Source)
	}

	if z < 0 || z > p.MaxZoom {
		return Result{}, fmt.Errorf("%w: zoom out of range (max %d for %s)", ErrBadRequest, p.MaxZoom, p.ID)
	}

	probeKey := cache.TileKey(p.Namespace(), req.Z, req.X, req.Y, probeExtension)
	if obj, hit := r.lookup(ctx, probeKey); hit {
		cacheHits.WithLabelValues(p.ID).Inc()
		// The stored bytes decide the content type, not the probe key's
		// nominal extension.
		return Result{
			Body:        obj.Body,
			Format:      imgfmt.Classify(obj.Body, ""),
			CacheStatus: CacheHit,
		}, nil
	}

	url := upstream.TileURL(p, req.Z, req.X, req.Y, z, x, y)
	body, contentType, err := r.upstream.Fetch(ctx, url, p.ExtraHeaders)
	if err != nil {
		upstreamErrors.WithLabelValues(p.ID).Inc()
		var se *upstream.StatusError
		if errors.As(err, &se) {
			log.Warn().Str("source", p.ID).Str("url", url).Int("status", se.Code).
				Msg("upstream returned non-success status")
			return Result{}, fmt.Errorf("%w: %s", ErrUpstream, se.Status)
		}
		// Transport detail stays in the log; the client gets a generic body.
		log.Error().Err(err).Str("source", p.ID).Str("url", url).Msg("upstream fetch failed")
		return Result{}, fmt.Errorf("%w: internal server error", ErrUpstream)
	}

	format := imgfmt.Classify(body, contentType)
	cacheMisses.WithLabelValues(p.ID).Inc()

	r.queue.Enqueue(persist.Task{
		Key:    cache.TileKey(p.Namespace(), req.Z, req.X, req.Y, format.Extension()),
		Object: cache.Object{Body: body, ContentType: format.ContentType()},
	})

	return Result{Body: body, Format: format, CacheStatus: CacheMiss}, nil
}

// lookup probes the cache. Storage errors degrade to a miss: a storage
// hiccup must not fail the request.
func (r *Resolver) lookup(ctx context.Context, key string) (cache.Object, bool) {
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache existence check failed, treating as miss")
		return cache.Object{}, false
	}
	if !ok {
		return cache.Object{}, false
	}

	obj, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		return cache.Object{}, false
	}
	return obj, true
}

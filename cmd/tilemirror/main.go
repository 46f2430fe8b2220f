package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alecthomas/kong"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/tilemirror/tilemirror/internal/cache"
	"github.com/tilemirror/tilemirror/internal/config"
	"github.com/tilemirror/tilemirror/internal/logging"
	"github.com/tilemirror/tilemirror/internal/persist"
	"github.com/tilemirror/tilemirror/internal/resolver"
	"github.com/tilemirror/tilemirror/internal/upstream"
	"github.com/tilemirror/tilemirror/internal/web"
)

var cli config.CLI

func main() {
	kong.Parse(&cli)
	logging.Setup(cli.LogLevel)

	registry, err := config.LoadProviders(cli.ProvidersFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cli.ProvidersFile).Msg("Failed to load provider catalogue")
	}

	store, err := buildStore(&cli)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initiate tile storage")
	}

	queue := persist.NewQueue(store, cli.PersistQueueSize, cli.PersistWorkers, nil)
	defer queue.Close()

	client := upstream.NewClient(cli.UpstreamTimeout, cli.UserAgent)
	res := resolver.New(registry, store, client, queue)

	handlers := &web.Handlers{Registry: registry, Resolver: res}
	router := web.NewRouter(handlers, cli.Metrics, cli.MetricsListenAddress)

	server := &http.Server{
		Addr:         cli.ListenAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", cli.ListenAddress).Strs("sources", registry.IDs()).Msg("Listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server exited")
	}
}

func buildStore(cli *config.CLI) (cache.Store, error) {
	var store cache.Store
	if cli.StorageMemory {
		log.Warn().Msg("Using in-memory tile storage, tiles will not survive a restart")
		store = cache.NewMemoryStore()
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cli.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cli.S3AccessKey, cli.S3SecretKey, "")),
		)
		if err != nil {
			return nil, err
		}
		s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
			if cli.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(cli.S3Endpoint)
			}
		})
		store = cache.NewS3Store(cli.S3Bucket, s3Client)
	}

	if cli.RedisAddr != "" {
		hot := cache.NewRedisStore(cache.NewRedisClient(cli.RedisAddr, cli.RedisPassword, cli.RedisDB), cli.HotTTL)
		store = &cache.LayeredStore{Hot: hot, Durable: store}
	}
	return store, nil
}

package application

import (
	"net/http"

	"mediagrab-be-server/src/application/api"
	"mediagrab-be-server/src/application/archive"
	archivestore "mediagrab-be-server/src/application/archive/store"
	"mediagrab-be-server/src/application/auth"
	"mediagrab-be-server/src/application/batch"
	"mediagrab-be-server/src/application/config"
	"mediagrab-be-server/src/application/events"
	"mediagrab-be-server/src/application/executor"
	"mediagrab-be-server/src/application/fetch"
	"mediagrab-be-server/src/application/infocache"
	"mediagrab-be-server/src/application/platform"
	recordstore "mediagrab-be-server/src/application/records/store"
	"mediagrab-be-server/src/application/sweep"
	"mediagrab-be-server/src/application/video"
	"mediagrab-be-server/src/lib/env"
	"mediagrab-be-server/src/lib/working_dir"

	"github.com/apex/log"
	"github.com/streadway/amqp"
)

func ensureOk(err error) {
	if err != nil {
		panic(err)
	}
}

type App struct {
	server      *http.Server
	sweeper     sweep.Sweeper
	stopSweeper chan struct{}
}

func NewApp() App {
	cfg := config.Load()

	handler := api.NewHandler(
		newOrchestrator(cfg),
		newFetcher(cfg),
		newExtractor(cfg),
		platform.NewClassifier(),
		recordstore.NewDynamoDBRecordStore(env.Get()),
		newInfoCache(cfg),
		cfg,
		env.Get(),
	)

	verifier, err := auth.NewStaticVerifier(cfg.APITokens)
	ensureOk(err)

	router := api.NewRouter(handler, verifier, cfg.RateLimitPerSec, cfg.RateLimitBurst)

	return App{
		server: &http.Server{
			Addr:    cfg.Port,
			Handler: router,
		},
		sweeper:     newSweeper(cfg),
		stopSweeper: make(chan struct{}),
	}
}

// Start blocks serving HTTP until the listener fails. The sweeper runs
// alongside for the lifetime of the process.
func (a *App) Start() error {
	a.sweeper.Start(a.stopSweeper)

	log.WithField("addr", a.server.Addr).Info("Starting server")
	return a.server.ListenAndServe()
}

func newOrchestrator(cfg *config.Config) batch.Orchestrator {
	orchestrator := batch.NewOrchestrator(
		recordstore.NewDynamoDBRecordStore(env.Get()),
		newPublisher(cfg),
	)

	if cfg.GoogleCloudKey != "" && cfg.ArchiveBucket != "" {
		fileStore, err := archivestore.NewGoogleFileStore(cfg.GoogleCloudKey)
		ensureOk(err)
		orchestrator = orchestrator.WithArchiver(archive.NewArchiver(fileStore, cfg.ArchiveBucket))
	}

	return orchestrator
}

func newPublisher(cfg *config.Config) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.NoopPublisher{}
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	ensureOk(err)

	publisher, err := events.NewRabbitMQPublisher(conn, cfg.EventQueueName)
	ensureOk(err)
	return publisher
}

func newFetcher(cfg *config.Config) fetch.Fetcher {
	fetcher, err := fetch.NewFetcher(cfg.WorkingDir, cfg.MaxFileBytes(), cfg.DownloadTimeout)
	ensureOk(err)
	return fetcher
}

func newExtractor(cfg *config.Config) video.Extractor {
	native, err := video.NewYouTubeNativeStrategy(cfg.WorkingDir)
	ensureOk(err)

	general, err := video.NewYTDLPStrategy(cfg.YTDLPBinPath, cfg.WorkingDir, executor.BinaryFileExecutor{})
	ensureOk(err)

	transcoder, err := video.NewFFmpegTranscoder(cfg.FFmpegBinPath, cfg.WorkingDir, executor.BinaryFileExecutor{})
	ensureOk(err)

	picker := video.NewPlatformStrategyPicker(platform.NewClassifier(), native, general)
	return video.NewExtractor(picker, transcoder)
}

func newInfoCache(cfg *config.Config) infocache.InfoCache {
	if cfg.RedisAddr == "" {
		return infocache.NoopCache{}
	}

	return infocache.NewRedisCache(cfg.RedisAddr, cfg.InfoCacheTTL)
}

func newSweeper(cfg *config.Config) sweep.Sweeper {
	workingDir, err := working_dir.NewWorkingDir(cfg.WorkingDir)
	ensureOk(err)

	return sweep.NewSweeper(workingDir.TempDir(), cfg.TempRetention, cfg.SweepInterval)
}

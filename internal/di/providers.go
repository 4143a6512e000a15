package di

import (
	"context"
	"fmt"
	"time"

	"StockTracker/internal/domain/repository"
	domsvc "StockTracker/internal/domain/service"
	"StockTracker/internal/handler/api"
	mid "StockTracker/internal/middleware"
	"StockTracker/internal/render"
	internalrepo "StockTracker/internal/repository"
	"StockTracker/internal/service/alphavantage"
	icache "StockTracker/internal/service/cache"
	"StockTracker/internal/service/forecast"
	"StockTracker/internal/service/ratelimit"
	"StockTracker/internal/service/yahoo"
	"StockTracker/internal/usecase"
	pkgcache "StockTracker/pkg/cache"
	pkgch "StockTracker/pkg/clickhouse"
	"StockTracker/pkg/config"
	xhttp "StockTracker/pkg/http"
	pkgkafka "StockTracker/pkg/kafka"
	applogger "StockTracker/pkg/logger"
	"StockTracker/pkg/metrics"
	"StockTracker/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder, or a no-op one when metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(nil)
}

// ProvideCache creates the memo store: in-process LRU, fronting Redis when enabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (pkgcache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	}

	rc := cfg.Cache.Redis
	redis, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(rc.Host),
		pkgcache.WithRedisPort(rc.Port),
		pkgcache.WithRedisPassword(rc.Password),
		pkgcache.WithRedisDB(rc.DB),
		pkgcache.WithRedisPrefix(rc.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("host", rc.Host), applogger.Int("port", rc.Port))
	return pkgcache.NewLayeredCache(redis, pkgcache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize)), nil
}

// ProvideMemoizer memoizes provider fetches over the cache.
func ProvideMemoizer(store pkgcache.Service, cfg *config.Config, l *applogger.Logger) *icache.Memoizer {
	return icache.NewMemoizer(store, cfg.Cache.TTL, l)
}

// ProvideIntradaySource creates the Alpha Vantage client. A missing API key is not a startup error.
func ProvideIntradaySource(cfg *config.Config, l *applogger.Logger) repository.IntradaySource {
	av := cfg.AlphaVantage
	if av.APIKey == "" {
		l.Warn("ALPHA_VANTAGE_API_KEY is not set; intraday data will be unavailable")
	}
	return alphavantage.NewClient(av.APIKey,
		alphavantage.WithBaseURL(av.BaseURL),
		alphavantage.WithTimeout(av.Timeout),
		alphavantage.WithInterval(av.Interval),
		alphavantage.WithOutputSize(av.OutputSize),
		alphavantage.WithLogger(l),
	)
}

// ProvideHistoricalSource creates the daily-bar source selected by historical.source.
func ProvideHistoricalSource(cfg *config.Config, l *applogger.Logger) (repository.HistoricalSource, error) {
	switch cfg.Historical.Source {
	case "clickhouse":
		ch, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, err
		}
		src, err := internalrepo.NewCHDailyBars(ch, cfg.Historical.Table, l)
		if err != nil {
			_ = ch.Close()
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ch.InitSchema(ctx, src.Schema()); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		l.Info("historical source ready", applogger.String("source", src.Name()), applogger.String("table", cfg.Historical.Table))
		return src, nil
	default:
		y := cfg.Yahoo
		return yahoo.NewClient(
			yahoo.WithBaseURL(y.BaseURL),
			yahoo.WithUserAgent(y.UserAgent),
			yahoo.WithTimeout(y.Timeout),
			yahoo.WithLogger(l),
		), nil
	}
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	c := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(c.Host),
		pkgch.WithPort(c.Port),
		pkgch.WithDatabase(c.Database),
		pkgch.WithCredentials(c.User, c.Password),
		pkgch.WithHTTP(c.UseHTTP),
		pkgch.WithTimeouts(c.DialTimeout, c.ReadTimeout, c.WriteTimeout),
		pkgch.WithMaxExecutionTime(c.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideForecaster creates the forecasting backend selected by forecast.backend.
func ProvideForecaster(cfg *config.Config, l *applogger.Logger) domsvc.Forecaster {
	f := cfg.Forecast
	if f.Backend == "remote" {
		return forecast.NewRemote(f.RemoteURL,
			forecast.WithRemoteTimeout(f.Timeout),
			forecast.WithRemoteIntervalWidth(f.IntervalWidth),
			forecast.WithRemoteLogger(l),
		)
	}
	return forecast.NewEngine(
		forecast.WithIntervalWidth(f.IntervalWidth),
		forecast.WithLogger(l),
	)
}

// ProvideAlertPublisher creates the alert sink selected by alerts.sink. A Kafka sink sits behind
// the throttling/redelivery pipeline.
func ProvideAlertPublisher(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (repository.AlertPublisher, error) {
	if cfg.Alerts.Sink != "kafka" {
		return internalrepo.NewNopAlertPublisher(), nil
	}

	k := cfg.Alerts.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithMaxAttempts(k.MaxAttempts),
		pkgkafka.WithBatchSize(1),
		pkgkafka.WithTimeouts(k.WriteTimeout, k.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.Info("alert sink ready", applogger.Strings("brokers", k.Brokers), applogger.String("topic", k.Topic))

	pipe := mid.NewAlertPipeline(internalrepo.NewKafkaAlertPublisher(producer, k.Topic), m,
		mid.WithMinInterval(cfg.Alerts.MinInterval),
		mid.WithBufferSize(cfg.Alerts.BufferSize),
		mid.WithPipelineLogger(l),
	)
	pipe.Start(context.Background())
	return pipe, nil
}

// ProvideDashboard creates the dashboard use case.
func ProvideDashboard(
	intraday repository.IntradaySource,
	historical repository.HistoricalSource,
	forecaster domsvc.Forecaster,
	memo *icache.Memoizer,
	publisher repository.AlertPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Dashboard {
	return usecase.NewDashboard(intraday, historical, forecaster, memo, publisher, m, l)
}

// ProvideRenderer creates the HTML renderer.
func ProvideRenderer(cfg *config.Config, l *applogger.Logger) (*render.Renderer, error) {
	return render.New(
		render.WithPreviewRows(cfg.Dashboard.PreviewRows),
		render.WithLogger(l),
	)
}

// ProvideHTTPHandler creates the dashboard routes.
func ProvideHTTPHandler(cfg *config.Config, l *applogger.Logger, dash *usecase.Dashboard) xhttp.Handler {
	rl := cfg.Server.RateLimit
	return api.NewDashboardEchoHandler(l, dash,
		api.WithDefaults(cfg.Dashboard.DefaultSymbol, cfg.Dashboard.DefaultThreshold),
		api.WithForecastDefaults(cfg.Historical.DefaultPeriod, cfg.Forecast.HorizonDays),
		api.WithRateLimiter(ratelimit.NewPolicy(ratelimit.New(), rl.Burst, rl.PerSecond)),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	renderer *render.Renderer,
	store pkgcache.Service,
	historical repository.HistoricalSource,
	publisher repository.AlertPublisher,
) *server.App {
	return server.New(cfg, l, handler, renderer, store, historical, publisher)
}

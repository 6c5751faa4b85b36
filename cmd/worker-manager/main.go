// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mentormatch-workers/internal/common/aws"
	"mentormatch-workers/internal/common/camunda"
	"mentormatch-workers/internal/common/config"
	"mentormatch-workers/internal/common/database"
	"mentormatch-workers/internal/common/gemini"
	"mentormatch-workers/internal/common/logger"
	"mentormatch-workers/internal/common/metrics"
	"mentormatch-workers/internal/common/observability"

	dp "mentormatch-workers/internal/workers/mentorship/derive-preferences"
	fc "mentormatch-workers/internal/workers/mentorship/find-candidates"
	nm "mentormatch-workers/internal/workers/mentorship/notify-matches"
	rm "mentormatch-workers/internal/workers/mentorship/rank-mentors"
	sc "mentormatch-workers/internal/workers/mentorship/score-candidates"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func workerTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if wc, ok := cfg.Workers[taskType]; ok && wc.Timeout > 0 {
		return time.Duration(wc.Timeout) * time.Millisecond
	}
	return fallback
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         30 * time.Second,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional skill pre-filter) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	} else {
		zapLog.Info("Elasticsearch disabled, retrieval uses PostgreSQL only")
	}

	// --- Init Gemini oracle (optional) ---
	var oracle *gemini.Generator
	if cfg.APIs.Gemini.APIKey != "" {
		oracle, err = gemini.NewGenerator(ctx, cfg.APIs.Gemini.APIKey, cfg.APIs.Gemini.Model)
		if err != nil {
			zapLog.Warn("gemini client unavailable, falling back to defaults and deterministic scores", zap.Error(err))
			oracle = nil
		} else {
			zapLog.Info("Gemini client initialized", zap.String("model", oracle.Model()))
		}
	} else {
		zapLog.Info("Gemini API key not set, oracle disabled")
	}

	// --- Init AWS notification clients (optional) ---
	var sesClient *aws.SESClient
	var snsClient *aws.SNSClient
	if cfg.Notifications.Email.Enabled {
		sesClient, err = aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err = aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
	}

	// --- Register Mentorship Workers (5) ---
	var workers []*camunda.CamundaWorker

	oracleTimeout := time.Duration(cfg.APIs.Gemini.Timeout) * time.Millisecond

	if config.IsWorkerEnabled(cfg, dp.TaskType) {
		handler := dp.NewHandler(
			&dp.Config{
				OracleTimeout: oracleTimeout,
				Timeout:       workerTimeout(cfg, dp.TaskType, 30*time.Second),
			},
			oracleOrNil(oracle),
			log,
		)
		workers = append(workers, startWorker(zeebeClient, cfg, obs, dp.TaskType, handler.Handle, zapLog))
	}

	if config.IsWorkerEnabled(cfg, fc.TaskType) {
		fcConfig := &fc.Config{
			CacheTTL:      time.Duration(cfg.Matching.MenteeCacheTTL) * time.Millisecond,
			QueryTimeout:  time.Duration(cfg.Matching.QueryTimeout) * time.Millisecond,
			Timeout:       workerTimeout(cfg, fc.TaskType, 30*time.Second),
			MaxCandidates: cfg.Matching.MaxCandidates,
			SearchIndex:   cfg.Database.Elasticsearch.Index,
		}
		handler := fc.NewHandler(fcConfig, pg.DB, redis.Client, esRawClient(esClient), log)
		workers = append(workers, startWorker(zeebeClient, cfg, obs, fc.TaskType, handler.Handle, zapLog))
	}

	if config.IsWorkerEnabled(cfg, sc.TaskType) {
		handler := sc.NewHandler(
			&sc.Config{
				OracleTimeout:       oracleTimeout,
				Timeout:             workerTimeout(cfg, sc.TaskType, 60*time.Second),
				MaxConcurrentScores: cfg.Matching.MaxConcurrentScores,
			},
			oracleOrNil(oracle),
			log,
		)
		workers = append(workers, startWorker(zeebeClient, cfg, obs, sc.TaskType, handler.Handle, zapLog))
	}

	if config.IsWorkerEnabled(cfg, rm.TaskType) {
		handler := rm.NewHandler(
			&rm.Config{
				MaxResults: cfg.Matching.MaxResults,
				Timeout:    workerTimeout(cfg, rm.TaskType, 30*time.Second),
			},
			log,
		)
		workers = append(workers, startWorker(zeebeClient, cfg, obs, rm.TaskType, handler.Handle, zapLog))
	}

	if config.IsWorkerEnabled(cfg, nm.TaskType) {
		nmConfig := &nm.Config{
			EmailEnabled: cfg.Notifications.Email.Enabled,
			SMSEnabled:   cfg.Notifications.SMS.Enabled,
			FromEmail:    cfg.Notifications.Email.FromEmail,
			SMSSenderID:  cfg.Notifications.SMS.SenderID,
			QueryTimeout: time.Duration(cfg.Matching.QueryTimeout) * time.Millisecond,
			Timeout:      workerTimeout(cfg, nm.TaskType, 30*time.Second),
		}
		handler := nm.NewHandler(nmConfig, pg.DB, emailOrNil(sesClient), smsOrNil(snsClient), log)
		workers = append(workers, startWorker(zeebeClient, cfg, obs, nm.TaskType, handler.Handle, zapLog))
	}

	zapLog.Info("All workers registered", zap.Int("count", len(workers)))

	// --- Health/Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "reason": "postgres"})
				return
			}
			if err := zeebeClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "reason": "zeebe"})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}

func startWorker(client *camunda.Client, cfg *config.Config, obs *observability.Observability, taskType string, handler camunda.HandlerFunc, log *zap.Logger) *camunda.CamundaWorker {
	wc := config.GetWorkerConfig(cfg, taskType)
	return camunda.NewWorker(
		client.GetClient(),
		taskType,
		wc.MaxJobsActive,
		time.Duration(wc.Timeout)*time.Millisecond,
		instrumented(obs, taskType, handler),
		log,
	)
}

// instrumented wraps a handler so every job records duration, active-job
// gauge, and the OTel bridge counters.
func instrumented(obs *observability.Observability, taskType string, handler camunda.HandlerFunc) camunda.HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		start := time.Now()
		handler(client, job)
		elapsed := time.Since(start)
		metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		obs.RecordJobProcessed(context.Background(), "processed")
		obs.RecordJobDuration(context.Background(), elapsed, "processed")
	}
}

// oracleOrNil keeps a nil *gemini.Generator from becoming a non-nil
// interface value in the handlers.
func oracleOrNil(g *gemini.Generator) interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
} {
	if g == nil {
		return nil
	}
	return g
}

func emailOrNil(c *aws.SESClient) nm.EmailSender {
	if c == nil {
		return nil
	}
	return c
}

func smsOrNil(c *aws.SNSClient) nm.SMSSender {
	if c == nil {
		return nil
	}
	return c
}

func esRawClient(c *database.ElasticsearchClient) *elasticsearch.Client {
	if c == nil {
		return nil
	}
	return c.Client
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	admin_api "github.com/Jackson16868/mcshop-bot/internal/admin/api"
	catalogdb "github.com/Jackson16868/mcshop-bot/internal/catalog/db"
	"github.com/Jackson16868/mcshop-bot/internal/config"
	"github.com/Jackson16868/mcshop-bot/internal/conversation"
	convdb "github.com/Jackson16868/mcshop-bot/internal/conversation/db"
	customerdb "github.com/Jackson16868/mcshop-bot/internal/customer/db"
	"github.com/Jackson16868/mcshop-bot/internal/database"
	"github.com/Jackson16868/mcshop-bot/internal/kafka"
	"github.com/Jackson16868/mcshop-bot/internal/logger"
	"github.com/Jackson16868/mcshop-bot/internal/messaging"
	"github.com/Jackson16868/mcshop-bot/internal/order"
	orderdb "github.com/Jackson16868/mcshop-bot/internal/order/db"
	orderkafka "github.com/Jackson16868/mcshop-bot/internal/order/kafka"
	"github.com/Jackson16868/mcshop-bot/internal/schedule"
	scheduledb "github.com/Jackson16868/mcshop-bot/internal/schedule/db"
	schedulelock "github.com/Jackson16868/mcshop-bot/internal/schedule/redis"
	"github.com/Jackson16868/mcshop-bot/internal/sse"
	"github.com/Jackson16868/mcshop-bot/internal/webhook"
)

func prepareDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	if cfg.Database.AutoSchema {
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to create schema: %v", err))
		}
		log.LogDatabase("CREATE", "schema", "tables and indexes ensured")
	}
	if cfg.Database.Seed {
		services, slots, err := database.Seed(ctx, bunDB)
		if err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to seed: %v", err))
		}
		log.LogDatabase("SEED", "services", fmt.Sprintf("%d inserted", services))
		log.LogDatabase("SEED", "shop_slots", fmt.Sprintf("%d inserted", slots))
	}
	return bunDB
}

// connectRedis returns nil when the bucket lock is disabled or Redis is unreachable.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		log.Info("REDIS", "Bucket lock disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis at %s unreachable, running without bucket lock: %v", cfg.Addr, err))
		client.Close()
		return nil
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, client.Options().DB))
	return client
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(".env file not found, using environment variables")
	}
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir, logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting booking bot")
	ctx := context.Background()
	loc := cfg.Shop.Location()
	log.Info("CONFIG", fmt.Sprintf("Shop time zone %s, horizon %d days", loc, cfg.Shop.HorizonDays))

	bunDB := prepareDatabase(ctx, cfg, log)
	defer bunDB.Close()

	checker := schedule.NewChecker(scheduledb.New(bunDB), loc)
	finder := schedule.NewFinder(checker, cfg.Shop.MaxSlotsTotal)

	var bucketLock order.BucketLock
	if redisClient := connectRedis(ctx, cfg.Redis, log); redisClient != nil {
		defer redisClient.Close()
		bucketLock = schedulelock.NewBucketLock(redisClient, cfg.Redis.LockTTL, log)
	}

	emitter := sse.NewBookingEventEmitter()
	publishers := order.MultiPublisher{emitter}
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		publishers = append(publishers, orderkafka.NewPublisher(producer, cfg.Kafka.Topics))
		log.Info("KAFKA", "Booking events will be published to Kafka")
	}

	orderService := order.NewOrderService(orderdb.New(bunDB), checker, bucketLock, publishers, log)

	var gateway messaging.Gateway = messaging.LogGateway{Logger: log}
	if cfg.Messaging.PushURL != "" {
		gateway = messaging.NewHTTPGateway(cfg.Messaging.PushURL, cfg.Messaging.AccessToken, cfg.Messaging.Timeout, log)
		log.Info("TRANSPORT", "Replies are pushed to "+cfg.Messaging.PushURL)
	} else {
		log.Warn("TRANSPORT", "MESSAGING_PUSH_URL not set, replies are only logged")
	}

	dispatcher := conversation.NewDispatcher(conversation.Deps{
		Customers:     customerdb.New(bunDB),
		Catalog:       catalogdb.New(bunDB),
		Conversations: convdb.New(bunDB),
		Orders:        orderService,
		Checker:       checker,
		Finder:        finder,
		Gateway:       gateway,
		Logger:        log,
	}, conversation.Options{
		Location:       loc,
		HorizonDays:    cfg.Shop.HorizonDays,
		MaxSlotsPerDay: cfg.Shop.MaxSlotsPerDay,
		UpcomingLimit:  cfg.Shop.UpcomingLimit,
	})

	adminHandler := admin_api.NewHandler(orderService, finder, emitter, admin_api.Options{
		Location:       loc,
		HorizonDays:    cfg.Shop.HorizonDays,
		MaxSlotsPerDay: cfg.Shop.MaxSlotsPerDay,
	}, log)
	if cfg.Admin.JWTSecret == "" {
		log.Warn("AUTH", "ADMIN_JWT_SECRET not set, admin API is disabled")
	}

	r := chi.NewRouter()
	r.Use(requestLogger(log))
	webhook.NewHandler(dispatcher, bunDB, log).RegisterRoutes(r)
	log.Info("ROUTER", "Webhook routes registered at /callback and /healthz")
	adminHandler.RegisterRoutes(r, cfg.Admin.JWTSecret)
	log.Info("ROUTER", "Admin routes registered under /api/admin")

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		// no WriteTimeout: the admin stream is long-lived
	}

	go func() {
		log.Info("HTTP", "🚀 Booking bot running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Booking bot shutdown complete")
	}
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.LogAPI(r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

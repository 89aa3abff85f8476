package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fulfillment-service/config"
	"fulfillment-service/internal/api"
	"fulfillment-service/internal/broker"
	"fulfillment-service/internal/redisclient"
	"fulfillment-service/internal/service"
	"fulfillment-service/internal/store"
	"fulfillment-service/internal/util"
	"fulfillment-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting fulfillment service")

	tp, err := util.InitTracer("fulfillment-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	gateway := service.NewRazorpayClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.KeyID,
		cfg.Gateway.KeySecret,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
	)
	carrier := service.NewShiprocketClient(
		cfg.Carrier.BaseURL,
		cfg.Carrier.Token,
		time.Duration(cfg.Carrier.TimeoutSeconds)*time.Second,
	)

	orderService := service.NewOrderService(db, redisClient)
	transitionEngine := service.NewTransitionEngine(db, redisClient, eventPublisher)
	refundOrchestrator := service.NewRefundOrchestrator(db, redisClient, gateway, eventPublisher)
	cancellationWorkflow := service.NewCancellationWorkflow(db, transitionEngine, refundOrchestrator, eventPublisher)
	shipmentReconciler := service.NewShipmentReconciler(
		db,
		carrier,
		transitionEngine,
		cancellationWorkflow,
		redisClient,
		redisClient,
		time.Duration(cfg.Reconciler.LockTTLSeconds)*time.Second,
		eventPublisher,
	)
	invoiceAssigner := service.NewInvoiceAssigner(db, redisClient)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	reconcilerWorker := worker.NewReconcilerWorker(
		shipmentReconciler,
		time.Duration(cfg.Reconciler.IntervalSeconds)*time.Second,
	)
	go func() {
		if err := reconcilerWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Reconciler worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		orderService,
		transitionEngine,
		cancellationWorkflow,
		refundOrchestrator,
		shipmentReconciler,
		invoiceAssigner,
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	reconcilerWorker.Stop()

	log.Println("Server exited")
}

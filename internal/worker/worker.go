package worker

import (
	"context"
	"log"
	"time"

	"fulfillment-service/internal/service"
)

// ReconcilerWorker periodically syncs open shipments against the carrier
type ReconcilerWorker struct {
	reconciler *service.ShipmentReconciler
	interval   time.Duration
	stop       chan struct{}
	done       chan struct{}
}

// NewReconcilerWorker creates a new reconciler worker
func NewReconcilerWorker(reconciler *service.ShipmentReconciler, interval time.Duration) *ReconcilerWorker {
	return &ReconcilerWorker{
		reconciler: reconciler,
		interval:   interval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start starts the worker loop. It blocks until Stop is called or the
// context is cancelled.
func (w *ReconcilerWorker) Start(ctx context.Context) error {
	log.Println("Starting shipment reconciler worker...")
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case <-ticker.C:
			w.reconciler.SyncOpenShipments(ctx)
		}
	}
}

// Stop stops the worker and waits for the current pass to finish
func (w *ReconcilerWorker) Stop() {
	log.Println("Stopping shipment reconciler worker...")
	close(w.stop)
	<-w.done
}

package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/osmanaliaydemir/getir-tracking/internal/api/metrics"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes batched location fixes to a fixed set of workers using
// consistent hashing on the session ID, guaranteeing per-session ordering.
// Couriers with spotty connectivity upload dozens of buffered fixes at once;
// the handler acks the batch immediately and the workers drain it.
type Dispatcher struct {
	workers []chan ports.LocationUpdateInput
	service ports.TrackingService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.TrackingService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.LocationUpdateInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.LocationUpdateInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a fix to the worker responsible for its session.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(in ports.LocationUpdateInput) {
	idx := d.shardIndex(in.SessionID)
	d.workers[idx] <- in
	metrics.LocationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// EnqueueBatch enqueues multiple fixes preserving per-session ordering.
func (d *Dispatcher) EnqueueBatch(fixes []ports.LocationUpdateInput) {
	for _, f := range fixes {
		d.Enqueue(f)
	}
}

// shardIndex maps a session ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.LocationUpdateInput) {
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-ch:
			if !ok {
				return
			}
			metrics.LocationQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))
			if _, err := d.service.UpdateLocation(ctx, in); err != nil {
				metrics.LocationErrorsTotal.WithLabelValues("update_failed").Inc()
				d.log.Error().Err(err).
					Str("session", in.SessionID).
					Int("worker_id", id).
					Msg("location fix processing failed")
				continue
			}
			metrics.LocationUpdatesTotal.WithLabelValues(string(in.Source), "batch").Inc()
		}
	}
}

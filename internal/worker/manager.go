package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"confessbot/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines.
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages read per batch.
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long a read blocks waiting for messages.
	DefaultBlockTimeout = 5 * time.Second
)

// Manager orchestrates worker goroutines consuming the notification
// stream.
type Manager struct {
	consumer    queue.Consumer
	handler     *Handler
	workerCount int
	batchSize   int64
	blockTime   time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds worker pool tuning knobs.
type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration
}

// NewManager creates a worker manager. Zero config fields fall back to
// the defaults.
func NewManager(consumer queue.Consumer, handler *Handler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	return &Manager{
		consumer:    consumer,
		handler:     handler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
	}
}

// Start launches the worker goroutines. Call Stop to shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamNotifications, queue.ConsumerGroupNotifications); err != nil {
		return err
	}

	log.Printf("[Manager] Starting %d workers for stream=%s group=%s",
		m.workerCount, queue.StreamNotifications, queue.ConsumerGroupNotifications)

	for i := 0; i < m.workerCount; i++ {
		workerID := i + 1
		m.wg.Add(1)
		go m.runWorker(workerID, fmt.Sprintf("worker-%d", workerID))
	}
	return nil
}

// Stop shuts down all workers and blocks until they finish.
func (m *Manager) Stop() {
	log.Printf("[Manager] Stopping workers...")
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()

	log.Printf("[Worker-%d] Started (consumer=%s)", workerID, consumerName)

	// Recover messages delivered to this consumer before a crash.
	m.drainPending(workerID, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Worker-%d] Shutting down", workerID)
			return
		default:
			m.readBatch(workerID, consumerName)
		}
	}
}

// drainPending processes messages left unacknowledged by a previous run.
func (m *Manager) drainPending(workerID int, consumerName string) {
	for {
		messages, err := m.consumer.ReadPending(
			m.ctx, queue.StreamNotifications, queue.ConsumerGroupNotifications, consumerName, m.batchSize)
		if err != nil {
			log.Printf("[Worker-%d] Error reading pending: %v", workerID, err)
			return
		}
		if len(messages) == 0 {
			return
		}
		log.Printf("[Worker-%d] Recovering %d pending messages", workerID, len(messages))
		m.handleMessages(workerID, messages)
	}
}

func (m *Manager) readBatch(workerID int, consumerName string) {
	messages, err := m.consumer.Read(
		m.ctx, queue.StreamNotifications, queue.ConsumerGroupNotifications,
		consumerName, m.batchSize, m.blockTime)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Printf("[Worker-%d] Error reading: %v", workerID, err)
		time.Sleep(time.Second) // back off on error
		return
	}
	if len(messages) == 0 {
		return // timeout, no messages
	}
	m.handleMessages(workerID, messages)
}

// handleMessages delivers a batch and acknowledges every message.
// Handler errors are logged but still acked: notification delivery is
// best-effort and must not loop forever on a poisoned message.
func (m *Manager) handleMessages(workerID int, messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			log.Printf("[Worker-%d] Handler error msgID=%s type=%s: %v",
				workerID, msg.ID, msg.Event.Type, err)
		}
		if err := m.consumer.Ack(m.ctx, queue.StreamNotifications, queue.ConsumerGroupNotifications, msg.ID); err != nil {
			log.Printf("[Worker-%d] ACK error msgID=%s: %v", workerID, msg.ID, err)
		}
	}
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"documind/internal/app"
	"documind/internal/model"
)

// IngestWorker consumes queued ingestion tasks and runs them through the
// pipeline. Failed tasks are dead-lettered rather than requeued: the
// document row already records the failure, and a poison file would loop
// forever otherwise.
type IngestWorker struct {
	conn      *amqp.Connection
	ingester  *app.IngestService
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, ingester *app.IngestService, queueName string) *IngestWorker {
	return &IngestWorker{
		conn:      conn,
		ingester:  ingester,
		queueName: queueName,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	// Ingestion is CPU and IO heavy; one task at a time per worker.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) handle(ctx context.Context, d amqp.Delivery) {
	var task model.IngestTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		log.Printf("worker decode ingest task failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	result, err := w.ingester.Ingest(ctx, task)
	w.removeUpload(task.Path)
	if err != nil {
		log.Printf("worker ingest %s (%s) failed: %v", task.Filename, task.FileID, err)
		_ = d.Nack(false, false)
		return
	}

	log.Printf("worker ingested %s (%s): %d chunks, %d stored", task.Filename, task.FileID, result.ChunkCount, result.Stored)
	_ = d.Ack(false)
}

// removeUpload deletes the temp file left by the upload handler. The file
// is disposable either way: on success the chunks are stored, on failure
// the document row holds the error for the user to act on.
func (w *IngestWorker) removeUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("worker remove upload %s failed: %v", path, err)
	}
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

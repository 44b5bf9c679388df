package clicks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// publishTimeout bounds broker I/O on the resolution path. A broker outage
// turns into dropped events, not redirect latency.
const publishTimeout = 100 * time.Millisecond

const consumerPrefetch = 100

// AMQPQueue carries click events over a durable RabbitMQ queue, so the API
// service and the analytics worker can run as separate processes. It
// implements the same Queue contract as ChannelQueue: Enqueue reports false
// instead of blocking, Dequeue hands each delivery to exactly one caller.
//
// Deliveries are acked at hand-off. Persistence retries stay in-process and
// bounded, matching the drop-after-exhaustion policy; a crash between ack and
// insert loses at most the prefetch window.
type AMQPQueue struct {
	conn    *amqp091.Connection
	ch      *amqp091.Channel
	name    string
	done    chan struct{}
	once    sync.Once
	consume sync.Once

	mu         sync.Mutex
	deliveries <-chan amqp091.Delivery
}

// DialAMQP connects to the broker and declares the durable click queue.
// Failure here is fatal to the surrounding process: without the queue the
// pipeline cannot run at all.
func DialAMQP(url, queueName string) (*AMQPQueue, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening RabbitMQ channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %q: %w", queueName, err)
	}
	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setting QoS: %w", err)
	}

	return &AMQPQueue{
		conn: conn,
		ch:   ch,
		name: queueName,
		done: make(chan struct{}),
	}, nil
}

func (q *AMQPQueue) Enqueue(e Event) bool {
	select {
	case <-q.done:
		return false
	default:
	}

	body, err := json.Marshal(e)
	if err != nil {
		slog.Error("marshalling click event", "err", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	q.mu.Lock()
	err = q.ch.PublishWithContext(ctx,
		"", q.name, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.Timestamp,
			Body:         body,
		},
	)
	q.mu.Unlock()
	if err != nil {
		slog.Warn("publishing click event to broker", "err", err)
		return false
	}
	return true
}

func (q *AMQPQueue) Dequeue() (Event, bool) {
	deliveries, err := q.startConsume()
	if err != nil {
		slog.Error("registering broker consumer", "err", err)
		return Event{}, false
	}

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return Event{}, false
			}
			var e Event
			if err := json.Unmarshal(d.Body, &e); err != nil {
				slog.Error("decoding click event, rejecting", "err", err)
				// 'false' means don't re-queue
				d.Reject(false)
				continue
			}
			d.Ack(false)
			return e, true
		case <-q.done:
			return Event{}, false
		}
	}
}

func (q *AMQPQueue) startConsume() (<-chan amqp091.Delivery, error) {
	var err error
	q.consume.Do(func() {
		var deliveries <-chan amqp091.Delivery
		deliveries, err = q.ch.Consume(
			q.name,
			"",    // consumer tag
			false, // autoAck
			false, // exclusive
			false, // noLocal
			false, // noWait
			nil,   // args
		)
		if err == nil {
			q.deliveries = deliveries
		}
	})
	if q.deliveries == nil && err == nil {
		err = fmt.Errorf("broker consumer for %q not registered", q.name)
	}
	return q.deliveries, err
}

func (q *AMQPQueue) Close() {
	q.once.Do(func() {
		close(q.done)
		q.ch.Close()
		q.conn.Close()
	})
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StatusReconciler applies a payment status reported by the gateway to the
// payment carrying the given intent id.
type StatusReconciler interface {
	ReconcileStatus(ctx context.Context, externalID, status string) error
}

// handlerFunc processes one delivery body.  A returned error rejects the
// message without requeueing it.
type handlerFunc func(ctx context.Context, body []byte) error

// StartPaymentStatusConsumer consumes payment.status and hands every report
// to r.  It reconnects with backoff until ctx is cancelled.
func StartPaymentStatusConsumer(ctx context.Context, url string, r StatusReconciler) {
	run(ctx, url, "payment-consumer", PaymentStatusQueue, func(ctx context.Context, body []byte) error {
		return handlePaymentStatus(ctx, r, body)
	})
}

// StartReservationLogConsumer consumes reservation.created and appends one
// line per reservation to dir/reservations.log.
func StartReservationLogConsumer(ctx context.Context, url, dir string) {
	run(ctx, url, "reservation-consumer", ReservationCreatedQueue, func(_ context.Context, body []byte) error {
		return handleReservationCreated(dir, body)
	})
}

func run(ctx context.Context, url, name, queueName string, handle handlerFunc) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("%s: failed to dial broker: %v; retrying in %s", name, err, backoff)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, name, queueName, handle)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Printf("%s: consume loop ended: %v; reconnecting", name, err)
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, name, queueName string, handle handlerFunc) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("%s: set QoS failed: %v", name, err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handle(ctx, d.Body); err != nil {
				log.Printf("%s: handle message failed: %v", name, err)
				_ = d.Nack(false, false) // no requeue, avoids tight redelivery loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handlePaymentStatus(ctx context.Context, r StatusReconciler, body []byte) error {
	var ev PaymentStatusEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.PaymentIntentID == "" || ev.Status == "" {
		return errors.New("payment_intent_id and status are required")
	}
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return r.ReconcileStatus(cctx, ev.PaymentIntentID, ev.Status)
}

func handleReservationCreated(dir string, body []byte) error {
	var ev ReservationCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "reservations.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatReservationLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatReservationLine(ev ReservationCreatedEvent) string {
	return fmt.Sprintf("[%s] Reservation created | code=%s | reservation_id=%s | table_id=%s | event_id=%s | owner=%s | guests=[%s] | tickets=%d | people=%d | total=%s | paid=%s | payment_id=%s\n",
		ev.CreatedAt, ev.ReservationCode, ev.ReservationID, ev.TableID, ev.EventID, ev.OwnerUserID,
		strings.Join(ev.GuestUserIDs, ","), len(ev.TicketIDs), ev.NumPeople, ev.TotalAmount, ev.AmountPaid, ev.PaymentID)
}

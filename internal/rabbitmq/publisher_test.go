package rabbitmq

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"rideshare/internal/domain"
)

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		typ  domain.NotificationType
		want string
	}{
		{domain.NotificationBookingConfirmed, "notify.booking_confirmed"},
		{domain.NotificationPaymentRefunded, "notify.payment_refunded"},
		{domain.NotificationRatingReceived, "notify.rating_received"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, RoutingKey(domain.Notification{Type: tt.typ}))
	}
}

type fakeConfirm struct {
	done chan bool
}

func newFakeConfirm() *fakeConfirm {
	return &fakeConfirm{done: make(chan bool, 1)}
}

func (f *fakeConfirm) WaitContext(ctx context.Context) (bool, error) {
	select {
	case ack := <-f.done:
		return ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// fakeChannel hands out the prepared confirmations in publish order.
type fakeChannel struct {
	confirms  []*fakeConfirm
	keys      []string
	published []amqp.Publishing
}

func (f *fakeChannel) IsClosed() bool { return false }
func (f *fakeChannel) Close() error   { return nil }

func (f *fakeChannel) publish(_ context.Context, _, key string, msg amqp.Publishing) (confirmation, error) {
	c := f.confirms[len(f.published)]
	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)
	return c, nil
}

func TestPublish_AcknowledgedMessage(t *testing.T) {
	first := newFakeConfirm()
	first.done <- true
	ch := &fakeChannel{confirms: []*fakeConfirm{first}}
	p := &Publisher{exchange: "notifications", ch: ch}

	err := p.Publish(context.Background(), domain.Notification{Type: domain.NotificationBookingConfirmed, RecipientID: "driver-1"})
	require.NoError(t, err)
	require.Equal(t, []string{"notify.booking_confirmed"}, ch.keys)
	require.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	require.Contains(t, string(ch.published[0].Body), `"driver-1"`)
}

func TestPublish_LateConfirmDoesNotLeakIntoNextMessage(t *testing.T) {
	first, second := newFakeConfirm(), newFakeConfirm()
	ch := &fakeChannel{confirms: []*fakeConfirm{first, second}}
	p := &Publisher{exchange: "notifications", ch: ch}
	n := domain.Notification{Type: domain.NotificationPaymentReceived, RecipientID: "driver-1"}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.Publish(ctx, n), context.DeadlineExceeded)

	// The broker acks the first message late and nacks the second.
	first.done <- true
	second.done <- false

	require.ErrorContains(t, p.Publish(context.Background(), n), "not acknowledged")
	require.Len(t, ch.published, 2)
}

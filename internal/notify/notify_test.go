package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/resend/resend-go/v2"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	params *resend.SendEmailRequest
	err    error
}

func (f *fakeSender) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "email-1"}, nil
}

// recordingMailer fails with err on every call, or only on the first
// failFirst calls when that is set.
type recordingMailer struct {
	mu        sync.Mutex
	calls     []ConfirmationMessage
	err       error
	failFirst int
}

func (r *recordingMailer) SendOrderConfirmation(_ context.Context, to, orderID, html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ConfirmationMessage{To: to, OrderID: orderID, HTML: html})
	if r.failFirst > 0 && len(r.calls) > r.failFirst {
		return nil
	}
	return r.err
}

func testOrder() *domain.Order {
	return &domain.Order{
		OrderID:  "7d3c5c1e-order",
		Customer: domain.Customer{Name: "Jane <script>", Email: "jane@example.com", Phone: "0712345678"},
		Shipping: domain.ShippingAddress{AddressLine1: "12 Moi Avenue", AddressLine2: "Floor 3", City: "Nairobi", PostalCode: "00100", Country: "Kenya"},
		Items: []domain.CartLine{
			{ID: "prod_001", Name: "XX99 Mark II", UnitPriceMinor: 450000, Quantity: 1},
			{ID: "prod_002", Name: "YX1 Earphones", UnitPriceMinor: 15000, Quantity: 2},
		},
		Totals: domain.Totals{SubtotalMinor: 480000, ShippingMinor: 2000, TaxesMinor: 76800, TotalMinor: 558800},
		Status: domain.OrderStatusProcessing,
	}
}

func TestRenderer_RenderConfirmation(t *testing.T) {
	r, err := NewRenderer(Config{PublicBaseURL: "https://shop.example.com/", SupportEmail: "help@shop.example.com"})
	require.NoError(t, err)

	html, err := r.RenderConfirmation(testOrder())
	require.NoError(t, err)

	assert.Contains(t, html, "Order ID: <strong>7d3c5c1e-order</strong>")
	assert.Contains(t, html, "XX99 Mark II")
	assert.Contains(t, html, "KES 4,500.00")
	assert.Contains(t, html, "KES 300.00", "line total is price times quantity")
	assert.Contains(t, html, "KES 5,588.00")
	assert.Contains(t, html, "Floor 3")
	assert.Contains(t, html, `href="https://shop.example.com/order/7d3c5c1e-order"`)
	assert.Contains(t, html, "help@shop.example.com")
	assert.NotContains(t, html, "<script>", "customer input is escaped")
}

func TestRenderer_OmitsEmptyAddressLine2(t *testing.T) {
	r, err := NewRenderer(Config{})
	require.NoError(t, err)
	order := testOrder()
	order.Shipping.AddressLine2 = ""

	html, err := r.RenderConfirmation(order)
	require.NoError(t, err)

	assert.Contains(t, html, "12 Moi Avenue<br/>")
	assert.Contains(t, html, "http://localhost:3000/order/")
}

func TestRenderer_NilOrder(t *testing.T) {
	r, err := NewRenderer(Config{})
	require.NoError(t, err)

	_, err = r.RenderConfirmation(nil)
	assert.Error(t, err)
}

func TestResendMailer_Send(t *testing.T) {
	sender := &fakeSender{}
	m := &ResendMailer{emails: sender, from: DefaultFromEmail, log: logger.NewNop()}

	err := m.SendOrderConfirmation(context.Background(), "jane@example.com", "order-1", "<p>hi</p>")

	require.NoError(t, err)
	assert.Equal(t, DefaultFromEmail, sender.params.From)
	assert.Equal(t, []string{"jane@example.com"}, sender.params.To)
	assert.Equal(t, "Order confirmation — order-1", sender.params.Subject)
	assert.Equal(t, "<p>hi</p>", sender.params.Html)
}

func TestResendMailer_ProviderError(t *testing.T) {
	sender := &fakeSender{err: errors.New("The gmail.com domain is not verified")}
	m := &ResendMailer{emails: sender, from: "shop@gmail.com", log: logger.NewNop()}

	err := m.SendOrderConfirmation(context.Background(), "jane@example.com", "order-1", "")

	assert.ErrorContains(t, err, "domain is not verified")
}

func TestDisabledMailer(t *testing.T) {
	err := NewDisabledMailer(logger.NewNop()).SendOrderConfirmation(context.Background(), "a@b.co", "o", "")
	assert.ErrorIs(t, err, ErrMailerNotConfigured)
}

func TestBreakerMailer_StopsCallingFailingProvider(t *testing.T) {
	next := &recordingMailer{err: errors.New("503")}
	m := NewBreakerMailer(next, circuitbreaker.Config{Name: "mail", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, logger.NewNop())
	ctx := context.Background()

	assert.Error(t, m.SendOrderConfirmation(ctx, "a@b.co", "o1", ""))
	assert.Error(t, m.SendOrderConfirmation(ctx, "a@b.co", "o2", ""))
	err := m.SendOrderConfirmation(ctx, "a@b.co", "o3", "")

	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Len(t, next.calls, 2)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeReader struct {
	msgs      []kafka.Message
	err       error
	pos       int
	fetches   int
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.fetches++
	if f.err != nil {
		return kafka.Message{}, f.err
	}
	if f.pos >= len(f.msgs) {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[f.pos]
	f.pos++
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func newTestWorker(reader *fakeReader, mailer Mailer) *Worker {
	return &Worker{reader: reader, mailer: mailer, log: logger.NewNop(), backoff: backoff.NewConstantBackOff(5 * time.Millisecond)}
}

func TestQueueMailer_PublishesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	q := &QueueMailer{writer: w, now: func() time.Time { return time.Unix(0, 0) }}

	err := q.SendOrderConfirmation(context.Background(), "jane@example.com", "order-1", "<p>hi</p>")

	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-1", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)

	var msg ConfirmationMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &msg))
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Equal(t, "<p>hi</p>", msg.HTML)
}

func TestQueueMailer_BrokerError(t *testing.T) {
	q := &QueueMailer{writer: &fakeWriter{err: errors.New("no brokers")}, now: time.Now}

	err := q.SendOrderConfirmation(context.Background(), "jane@example.com", "order-1", "")

	assert.ErrorContains(t, err, "no brokers")
}

func TestWorker_SendsQueuedConfirmations(t *testing.T) {
	good, _ := json.Marshal(ConfirmationMessage{OrderID: "order-1", To: "jane@example.com", HTML: "<p>1</p>"})
	missing, _ := json.Marshal(ConfirmationMessage{OrderID: "order-2"})
	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 0, Value: []byte("{broken")},
		{Offset: 1, Value: missing},
		{Offset: 2, Value: good},
	}}
	mailer := &recordingMailer{}
	w := newTestWorker(reader, mailer)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	require.Len(t, mailer.calls, 1)
	assert.Equal(t, "order-1", mailer.calls[0].OrderID)
	assert.Equal(t, "<p>1</p>", mailer.calls[0].HTML)
	// unusable messages are committed so they do not block the partition
	assert.Equal(t, []int64{0, 1, 2}, reader.committed)
}

func TestWorker_FailedSendIsRetriedBeforeCommit(t *testing.T) {
	first, _ := json.Marshal(ConfirmationMessage{OrderID: "order-1", To: "a@b.co"})
	second, _ := json.Marshal(ConfirmationMessage{OrderID: "order-2", To: "c@d.co"})
	reader := &fakeReader{msgs: []kafka.Message{{Offset: 10, Value: first}, {Offset: 11, Value: second}}}
	mailer := &recordingMailer{err: circuitbreaker.ErrOpen, failFirst: 2}
	w := newTestWorker(reader, mailer)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	var sent []string
	for _, c := range mailer.calls {
		sent = append(sent, c.OrderID)
	}
	assert.Equal(t, []string{"order-1", "order-1", "order-1", "order-2"}, sent)
	assert.Equal(t, []int64{10, 11}, reader.committed)
}

func TestWorker_UnsentConfirmationIsNotCommitted(t *testing.T) {
	msg, _ := json.Marshal(ConfirmationMessage{OrderID: "order-1", To: "a@b.co"})
	reader := &fakeReader{msgs: []kafka.Message{{Offset: 7, Value: msg}}}
	mailer := &recordingMailer{err: errors.New("provider down")}
	w := newTestWorker(reader, mailer)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	assert.Greater(t, len(mailer.calls), 1)
	assert.Empty(t, reader.committed)
	assert.Equal(t, 1, reader.fetches, "the next message is not fetched while one is pending")
}

func TestWorker_FetchErrorsBackOff(t *testing.T) {
	reader := &fakeReader{err: errors.New("broker unreachable")}
	w := &Worker{reader: reader, mailer: &recordingMailer{}, log: logger.NewNop(), backoff: backoff.NewConstantBackOff(40 * time.Millisecond)}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	assert.GreaterOrEqual(t, reader.fetches, 2)
	assert.LessOrEqual(t, reader.fetches, 4)
}

func TestDiagnose(t *testing.T) {
	d := Diagnose(Config{}, "direct")
	assert.Equal(t, "not_configured", d.Status)
	assert.False(t, d.HasAPIKey)
	assert.Equal(t, "N/A", d.APIKeyPrefix)
	assert.Equal(t, DefaultFromEmail, d.FromEmail)
	assert.False(t, d.FromEmailConfigured)

	d = Diagnose(Config{APIKey: "re_abc123", FromEmail: "orders@gmail.com"}, "direct")
	assert.Equal(t, "misconfigured", d.Status)
	assert.True(t, d.FromDomainUnverified)
	assert.Equal(t, "re_", d.APIKeyPrefix)

	d = Diagnose(Config{APIKey: "re_abc123", FromEmail: "orders@shop.example.com"}, "kafka")
	assert.Equal(t, "ready", d.Status)
	assert.Equal(t, "kafka", d.Delivery)
	assert.True(t, d.FromEmailConfigured)
}

func TestIsUnverifiedSenderDomain(t *testing.T) {
	assert.True(t, IsUnverifiedSenderDomain("x@Gmail.com"))
	assert.False(t, IsUnverifiedSenderDomain(DefaultFromEmail))
	assert.False(t, IsUnverifiedSenderDomain("no-at"))
	assert.False(t, strings.Contains(Subject("x"), "\n"))
}

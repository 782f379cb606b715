package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

type fakeRates struct {
	mu        sync.Mutex
	fresh     map[string]bool
	failing   map[string]bool
	refreshed []string
}

func (f *fakeRates) Refresh(_ context.Context, base, target string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := base + ":" + target
	if f.failing[key] {
		return decimal.Zero, errors.New("provider down")
	}
	f.refreshed = append(f.refreshed, key)
	return decimal.RequireFromString("0.9"), nil
}

func (f *fakeRates) IsFresh(_ context.Context, base, target string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fresh[base+":"+target], nil
}

func (f *fakeRates) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshed...)
}

type fakePairs struct {
	pairs []core.CurrencyPair
	err   error
}

func (f fakePairs) ListRatePairs(context.Context) ([]core.CurrencyPair, error) {
	return f.pairs, f.err
}

func degradedEvent(t *testing.T, base, target string) *amqp.Event {
	t.Helper()
	e, err := amqp.NewEvent(amqp.EventRateDegraded, "", amqp.RateDegradedPayload{Base: base, Target: target})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestHandleEventRefreshesDegradedPair(t *testing.T) {
	rates := &fakeRates{}
	w := NewRateRefreshWorker(rates, fakePairs{}, time.Hour, log.Nop())

	if err := w.HandleEvent(context.Background(), degradedEvent(t, "usd", "EUR")); err != nil {
		t.Fatal(err)
	}
	if got := rates.calls(); len(got) != 1 || got[0] != "USD:EUR" {
		t.Errorf("refreshed = %v", got)
	}
}

func TestHandleEventAcknowledgesFailures(t *testing.T) {
	rates := &fakeRates{failing: map[string]bool{"USD:EUR": true}}
	w := NewRateRefreshWorker(rates, fakePairs{}, time.Hour, log.Nop())

	if err := w.HandleEvent(context.Background(), degradedEvent(t, "USD", "EUR")); err != nil {
		t.Errorf("refresh failure should not requeue, got %v", err)
	}

	for _, ev := range []*amqp.Event{
		degradedEvent(t, "USD", "XXX"),
		degradedEvent(t, "EUR", "EUR"),
		{Type: amqp.EventRateDegraded, Payload: []byte(`not json`)},
		{Type: amqp.EventExpensesImported, Payload: []byte(`{}`)},
	} {
		if err := w.HandleEvent(context.Background(), ev); err != nil {
			t.Errorf("HandleEvent(%s) = %v", ev.Type, err)
		}
	}
	if got := rates.calls(); len(got) != 0 {
		t.Errorf("unexpected refreshes %v", got)
	}
}

func TestRefreshAllSkipsFreshPairs(t *testing.T) {
	rates := &fakeRates{
		fresh:   map[string]bool{"USD:EUR": true},
		failing: map[string]bool{"USD:COP": true},
	}
	pairs := fakePairs{pairs: []core.CurrencyPair{
		{Base: "USD", Target: "EUR"},
		{Base: "USD", Target: "MXN"},
		{Base: "USD", Target: "COP"},
		{Base: "EUR", Target: "USD"},
	}}
	w := NewRateRefreshWorker(rates, pairs, time.Hour, log.Nop())

	stats, err := w.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := RefreshStats{Refreshed: 2, Skipped: 1, Failed: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if got := rates.calls(); len(got) != 2 || got[0] != "USD:MXN" || got[1] != "EUR:USD" {
		t.Errorf("refreshed = %v", got)
	}
}

func TestRefreshAllListError(t *testing.T) {
	w := NewRateRefreshWorker(&fakeRates{}, fakePairs{err: errors.New("db closed")}, time.Hour, log.Nop())
	if _, err := w.RefreshAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type chanSource struct {
	events chan *amqp.Event
}

func (c chanSource) ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-c.events:
			if err := handler(ctx, e); err != nil {
				return err
			}
		}
	}
}

func TestRunSweepsAndConsumes(t *testing.T) {
	rates := &fakeRates{}
	pairs := fakePairs{pairs: []core.CurrencyPair{{Base: "USD", Target: "EUR"}}}
	w := NewRateRefreshWorker(rates, pairs, time.Hour, log.Nop())

	src := chanSource{events: make(chan *amqp.Event, 1)}
	src.events <- degradedEvent(t, "EUR", "MXN")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, src) }()

	deadline := time.After(2 * time.Second)
	for len(rates.calls()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("refreshed = %v", rates.calls())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v, want nil after cancel", err)
	}
}

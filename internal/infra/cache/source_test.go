package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

type countingSource struct {
	calls   atomic.Int32
	fail    atomic.Bool
	release chan struct{}
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) FetchOffers(ctx context.Context, q offer.Query) ([]*offer.Offer, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.fail.Load() {
		return nil, offer.Transient(errors.New("upstream down"))
	}
	o, err := offer.New(offer.Attributes{ID: q.Destination + "-" + q.Date, PricePerPerson: 100, AvgPrice: 120})
	if err != nil {
		return nil, err
	}
	return []*offer.Offer{o}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var q = offer.Query{Origin: "WAW", Destination: "PAR", Date: "2024-06-01"}

func TestWrap_ZeroTTLDisablesCache(t *testing.T) {
	next := &countingSource{}
	assert.Same(t, offer.Source(next), Wrap(next, 0))
	assert.Same(t, offer.Source(next), Wrap(next, -time.Second))

	_, ok := Wrap(next, time.Minute).(*Source)
	assert.True(t, ok)
}

func TestSource_HitAndExpiry(t *testing.T) {
	next := &countingSource{}
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	src := newSource(next, time.Minute, clk.Now)
	ctx := context.Background()

	first, err := src.FetchOffers(ctx, q)
	require.NoError(t, err)
	second, err := src.FetchOffers(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, 1, src.Len())

	other := q
	other.Date = "2024-06-02"
	_, err = src.FetchOffers(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load(), "different query is a different key")

	clk.Advance(time.Minute)
	assert.Equal(t, 0, src.Len())
	_, err = src.FetchOffers(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestSource_ErrorsAreNotCached(t *testing.T) {
	next := &countingSource{}
	next.fail.Store(true)
	src := newSource(next, time.Minute, time.Now)
	ctx := context.Background()

	_, err := src.FetchOffers(ctx, q)
	assert.True(t, offer.IsTransient(err))

	next.fail.Store(false)
	offers, err := src.FetchOffers(ctx, q)
	require.NoError(t, err)
	assert.Len(t, offers, 1)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestSource_ConcurrentLookupsShareOneCall(t *testing.T) {
	next := &countingSource{release: make(chan struct{})}
	src := newSource(next, time.Minute, time.Now)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = src.FetchOffers(context.Background(), q)
		}()
	}

	require.Eventually(t, func() bool { return next.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(next.release)
	wg.Wait()

	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, "counting", src.Name())
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dashboard/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUnstakeQuoter struct {
	mu         sync.Mutex
	err        error
	executable error
	calls      int

	// blocked amounts wait on gate after signalling entered
	blocked string
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeUnstakeQuoter) Quote(ctx context.Context, amount domain.FixedPoint, taker domain.Address) (domain.UnstakeQuote, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	blocked := f.blocked != "" && amount.String() == f.blocked
	f.mu.Unlock()

	if blocked {
		close(f.entered)
		<-f.gate
	}
	if err != nil {
		return domain.UnstakeQuote{}, err
	}
	return domain.UnstakeQuote{
		Route:        domain.RouteNativeQueue,
		InputAmount:  amount,
		OutputAmount: amount,
		WaitClass:    domain.WaitQueued,
	}, nil
}

func (f *fakeUnstakeQuoter) EnsureExecutable(quote domain.UnstakeQuote) error {
	return f.executable
}

func (f *fakeUnstakeQuoter) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestQuoteSessionReady(t *testing.T) {
	session := NewQuoteSession(&fakeUnstakeQuoter{}, testAddress)
	assert.Equal(t, domain.QuoteIdle, session.State())

	_, err := session.Current()
	assert.ErrorIs(t, err, domain.ErrorQuoteUnavailable)

	state := session.SetAmount(context.Background(), fixed("3", 9))
	assert.Equal(t, domain.QuoteReady, state)

	quote, err := session.Current()
	require.NoError(t, err)
	assert.Equal(t, "3.000000000", quote.InputAmount.String())

	quote, err = session.Executable()
	require.NoError(t, err)
	assert.Equal(t, domain.RouteNativeQueue, quote.Route)
}

func TestQuoteSessionFailedThenRetry(t *testing.T) {
	quoter := &fakeUnstakeQuoter{err: errors.New("rate unavailable")}
	session := NewQuoteSession(quoter, testAddress)

	assert.Equal(t, domain.QuoteFailed, session.SetAmount(context.Background(), fixed("1", 9)))
	_, err := session.Current()
	assert.EqualError(t, err, "rate unavailable")

	quoter.setErr(nil)
	state, err := session.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteReady, state)
	assert.Equal(t, 2, quoter.calls)
}

func TestQuoteSessionReset(t *testing.T) {
	session := NewQuoteSession(&fakeUnstakeQuoter{}, testAddress)
	session.SetAmount(context.Background(), fixed("3", 9))

	assert.Equal(t, domain.QuoteIdle, session.SetAmount(context.Background(), domain.ZeroFixedPoint(9)))
	_, err := session.Current()
	assert.ErrorIs(t, err, domain.ErrorQuoteUnavailable)

	_, err = session.Retry(context.Background())
	assert.ErrorIs(t, err, domain.ErrorInvalidState)
}

func TestQuoteSessionStale(t *testing.T) {
	quoter := &fakeUnstakeQuoter{executable: domain.ErrorStaleQuote}
	session := NewQuoteSession(quoter, testAddress)
	session.SetAmount(context.Background(), fixed("3", 9))

	_, err := session.Executable()
	assert.ErrorIs(t, err, domain.ErrorStaleQuote)
	assert.Equal(t, domain.QuoteReady, session.State())
}

func TestQuoteSessionKeepsLatestRequest(t *testing.T) {
	quoter := &fakeUnstakeQuoter{
		blocked: "1.000000000",
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	session := NewQuoteSession(quoter, testAddress)

	done := make(chan domain.QuoteState)
	go func() {
		done <- session.SetAmount(context.Background(), fixed("1", 9))
	}()
	<-quoter.entered
	assert.Equal(t, domain.QuoteFetching, session.State())

	assert.Equal(t, domain.QuoteReady, session.SetAmount(context.Background(), fixed("2", 9)))
	close(quoter.gate)
	<-done

	quote, err := session.Current()
	require.NoError(t, err)
	assert.Equal(t, "2.000000000", quote.InputAmount.String())
}

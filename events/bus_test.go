package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prebid/prebid-mediator/errortypes"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(clock.New())

	assert.False(t, bus.Publish(AuctionGo, EmptyData{}))
}

func TestPublishBuildsEvent(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	bus := NewBus(mock)
	rec := &recorder{}
	bus.Subscribe(BidStart, rec.listen)

	assert.True(t, bus.Publish(BidStart, BidProviderData{BidProvider: "p1"}))

	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, BidStart, got[0].Type)
	assert.Equal(t, mock.Now(), got[0].Timestamp)
	assert.Equal(t, BidProviderData{BidProvider: "p1"}, got[0].Data)
}

func TestPublishDeliversOnlyToMatchingKind(t *testing.T) {
	bus := NewBus(clock.New())
	starts, completes := &recorder{}, &recorder{}
	bus.Subscribe(BidStart, starts.listen)
	bus.Subscribe(BidComplete, completes.listen)

	bus.Publish(BidStart, BidProviderData{BidProvider: "p1"})

	assert.Len(t, starts.all(), 1)
	assert.Empty(t, completes.all())
}

func TestListenersRunInRegistrationOrder(t *testing.T) {
	bus := NewBus(clock.New())
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(BidNext, func(Event) { order = append(order, i) })
	}

	bus.Publish(BidNext, BidNextData{ID: "b1"})

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSamePayloadTwiceIsTwoNotifications(t *testing.T) {
	mock := clock.NewMock()
	bus := NewBus(mock)
	rec := &recorder{}
	bus.Subscribe(AuctionComplete, rec.listen)
	bus.Subscribe(AuctionComplete, rec.listen)

	bus.Publish(AuctionComplete, EmptyData{})
	mock.Add(time.Millisecond)
	bus.Publish(AuctionComplete, EmptyData{})

	got := rec.all()
	require.Len(t, got, 4, "listeners are not deduplicated")
	assert.Equal(t, got[0].Type, got[2].Type)
	assert.Equal(t, got[0].Data, got[2].Data)
	assert.NotEqual(t, got[0].Timestamp, got[2].Timestamp)
}

func TestSubscribeOnce(t *testing.T) {
	bus := NewBus(clock.New())
	once, always := &recorder{}, &recorder{}
	bus.SubscribeOnce(AuctionGo, once.listen)
	bus.Subscribe(AuctionGo, always.listen)

	bus.Publish(AuctionGo, EmptyData{})
	bus.Publish(AuctionGo, EmptyData{})

	assert.Len(t, once.all(), 1)
	assert.Len(t, always.all(), 2)
	assert.Len(t, bus.Subscribers(AuctionGo), 1)
}

func TestSubscribeOnceUnderConcurrentPublish(t *testing.T) {
	bus := NewBus(clock.New())
	rec := &recorder{}
	bus.SubscribeOnce(BidNext, rec.listen)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(BidNext, BidNextData{})
		}()
	}
	wg.Wait()

	assert.Len(t, rec.all(), 1)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(clock.New())
	first, second := &recorder{}, &recorder{}
	sub := bus.Subscribe(BidComplete, first.listen)
	bus.Subscribe(BidComplete, second.listen)

	bus.Unsubscribe(BidComplete, sub)
	bus.Publish(BidComplete, BidProviderData{BidProvider: "p1"})

	assert.Empty(t, first.all())
	assert.Len(t, second.all(), 1)
	assert.Equal(t, BidComplete, sub.Kind())

	bus.Unsubscribe(BidComplete, nil)
	assert.False(t, bus.Publish(BidComplete, BidProviderData{BidProvider: "p1"}))
	assert.Empty(t, bus.Subscribers(BidComplete))
}

func TestSubscribersReturnsCopy(t *testing.T) {
	bus := NewBus(clock.New())
	bus.Subscribe(Error, func(Event) {})

	listeners := bus.Subscribers(Error)
	listeners[0] = nil

	require.Len(t, bus.Subscribers(Error), 1)
	assert.NotNil(t, bus.Subscribers(Error)[0])
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	bus := NewBus(clock.New())
	after, errs := &recorder{}, &recorder{}
	bus.Subscribe(BidStart, func(Event) { panic("listener exploded") })
	bus.Subscribe(BidStart, after.listen)
	bus.Subscribe(Error, errs.listen)

	assert.NotPanics(t, func() { bus.Publish(BidStart, BidProviderData{BidProvider: "p1"}) })

	assert.Len(t, after.all(), 1)
	got := errs.all()
	require.Len(t, got, 1)
	data, ok := got[0].Data.(ErrorData)
	require.True(t, ok)
	assert.Contains(t, data.Message, "listener exploded")
	assert.NotEmpty(t, data.StackTrace)
}

func TestPanickingErrorListenerIsNotRepublished(t *testing.T) {
	bus := NewBus(clock.New())
	calls := 0
	bus.Subscribe(Error, func(Event) {
		calls++
		panic("error listener exploded")
	})

	assert.NotPanics(t, func() { bus.Publish(Error, NewErrorData(errors.New("boom"))) })
	assert.Equal(t, 1, calls)
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus(clock.New())
	rec := &recorder{}
	subs := bus.SubscribeAll(rec.listen)

	for _, kind := range Kinds() {
		bus.Publish(kind, EmptyData{})
	}

	assert.Len(t, subs, len(Kinds()))
	assert.Len(t, rec.all(), len(Kinds()))
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	bus := NewBus(clock.New())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := bus.Subscribe(BidNext, func(Event) {})
			bus.Unsubscribe(BidNext, sub)
		}()
		go func() {
			defer wg.Done()
			bus.Publish(BidNext, BidNextData{})
		}()
	}
	wg.Wait()

	assert.Empty(t, bus.Subscribers(BidNext))
}

func TestNewErrorDataKeepsDelegateStack(t *testing.T) {
	data := NewErrorData(&errortypes.DelegatePanic{Provider: "p1", Message: "boom", StackTrace: "delegate stack"})

	assert.Equal(t, "delegate stack", data.StackTrace)
	assert.Equal(t, errortypes.DelegatePanicErrorCode, data.Code)
	assert.Equal(t, "boom", data.Message)

	plain := NewErrorData(&errortypes.Timeout{Provider: "p2", Message: "p2 timed out"})
	assert.NotEmpty(t, plain.StackTrace)
	assert.Equal(t, errortypes.TimeoutErrorCode, plain.Code)
}

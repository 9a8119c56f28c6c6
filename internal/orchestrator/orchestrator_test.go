package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-commerce/server/internal/agent/graph/nodes"
	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/order"
	"github.com/Chative-commerce/server/internal/repo/sqlite"
	"github.com/Chative-commerce/server/internal/session"
)

type runnerFunc func(ctx context.Context, in model.QueryInput) (*model.AIResponse, error)

func (f runnerFunc) Invoke(ctx context.Context, in model.QueryInput) (*model.AIResponse, error) {
	return f(ctx, in)
}

type fixture struct {
	store    *sqlite.Store
	sessions *session.MemoryStore
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.UpsertTenant(context.Background(), model.Tenant{
		ID: "t1", StoreName: "Pizzaria Bella", Personality: "Seja simpático.", Active: true,
	}))
	return &fixture{
		store:    store,
		sessions: session.NewMemoryStore(),
		clock:    time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) orchestrator(t *testing.T, r runnerFunc) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Runner:       r,
		Sessions:     f.sessions,
		Catalog:      f.store,
		Interactions: f.store,
		Location:     time.UTC,
		Now:          func() time.Time { return f.clock },
	})
	require.NoError(t, err)
	return o
}

func request(id, text string) Request {
	return Request{UserID: "5511", TenantID: "t1", MessageID: id, Text: text}
}

func formulated(text string, o *model.OrderState) *model.AIResponse {
	return &model.AIResponse{ResponseText: text, Formulated: true, Order: o}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{Runner: runnerFunc(nil)})
	assert.Error(t, err)
}

func TestGreetingOnFirstMessageOfDay(t *testing.T) {
	f := newFixture(t)
	var seen model.QueryInput
	o := f.orchestrator(t, func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
		seen = in
		return formulated("Em que posso ajudar?", in.Order), nil
	})

	resp, err := o.ProcessMessage(context.Background(), request("m1", "quero pizza"))
	require.NoError(t, err)
	assert.Equal(t, "Olá! Bem-vindo(a) ao Atendente Virtual da Pizzaria Bella. Em que posso ajudar?", resp.ResponseText)
	assert.Equal(t, "Pizzaria Bella", seen.StoreName)
	assert.Equal(t, "Seja simpático.", seen.Personality)
	assert.Equal(t, "5511_t1", seen.SessionID)

	f.clock = f.clock.Add(2 * time.Hour)
	resp, err = o.ProcessMessage(context.Background(), request("m2", "e bebida?"))
	require.NoError(t, err)
	assert.Equal(t, "Em que posso ajudar?", resp.ResponseText)

	f.clock = f.clock.Add(24 * time.Hour)
	resp, err = o.ProcessMessage(context.Background(), request("m3", "oi"))
	require.NoError(t, err)
	assert.Contains(t, resp.ResponseText, "Bem-vindo(a)")
}

func TestGreetingSkippedWhenReplyGreets(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
		return formulated("Bom dia! Tudo bem?", in.Order), nil
	})
	resp, err := o.ProcessMessage(context.Background(), request("m1", "bom dia"))
	require.NoError(t, err)
	assert.Equal(t, "Bom dia! Tudo bem?", resp.ResponseText)
}

func TestUnformulatedReplyIsNotGreeted(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
		return &model.AIResponse{ResponseText: "Qual o endereço para a entrega?", Order: in.Order}, nil
	})
	resp, err := o.ProcessMessage(context.Background(), request("m1", "entrega"))
	require.NoError(t, err)
	assert.Equal(t, "Qual o endereço para a entrega?", resp.ResponseText)

	sess, err := f.sessions.Load(context.Background(), "5511_t1")
	require.NoError(t, err)
	assert.True(t, sess.LastInteraction.IsZero())
}

func TestDuplicateMessageShortCircuits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Append(context.Background(), model.Interaction{
		ID: "i1", MessageID: "wamid.dup", UserID: "5511", TenantID: "t1", CreatedAt: f.clock,
	}))
	var calls int32
	o := f.orchestrator(t, func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
		atomic.AddInt32(&calls, 1)
		return formulated("x", in.Order), nil
	})

	resp, err := o.ProcessMessage(context.Background(), request("wamid.dup", "oi"))
	require.NoError(t, err)
	assert.Equal(t, MsgDuplicate, resp.ResponseText)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestOrderStateIsCommitted(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
		in.Order.Items = append(in.Order.Items, model.OrderItem{ProductName: "Coca-Cola", Quantity: 1})
		return formulated("Anotado.", in.Order), nil
	})

	_, err := o.ProcessMessage(context.Background(), request("m1", "uma coca"))
	require.NoError(t, err)
	_, err = o.ProcessMessage(context.Background(), request("m2", "outra coca"))
	require.NoError(t, err)

	sess, err := f.sessions.Load(context.Background(), "5511_t1")
	require.NoError(t, err)
	assert.Len(t, sess.Order.Items, 2)
	assert.Equal(t, f.clock, sess.LastInteraction)
}

func TestFailuresBecomeGenericReply(t *testing.T) {
	cases := map[string]runnerFunc{
		"error": func(context.Context, model.QueryInput) (*model.AIResponse, error) {
			return nil, errors.New("graph exploded")
		},
		"panic": func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
			in.Order.Items = append(in.Order.Items, model.OrderItem{ProductName: "X", Quantity: 1})
			panic("boom")
		},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			o := f.orchestrator(t, r)
			resp, err := o.ProcessMessage(context.Background(), request("m1", "oi"))
			require.NoError(t, err)
			assert.Equal(t, nodes.MsgGeneric, resp.ResponseText)

			sess, err := f.sessions.Load(context.Background(), "5511_t1")
			require.NoError(t, err)
			assert.Empty(t, sess.Order.Items)
		})
	}
}

func TestCancellationLeavesSessionUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	o := f.orchestrator(t, func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
		in.Order.Items = append(in.Order.Items, model.OrderItem{ProductName: "Pizza", Quantity: 1})
		cancel()
		return formulated("ok", in.Order), nil
	})

	_, err := o.ProcessMessage(ctx, request("m1", "pizza"))
	assert.ErrorIs(t, err, context.Canceled)

	sess, err := f.sessions.Load(context.Background(), "5511_t1")
	require.NoError(t, err)
	assert.Empty(t, sess.Order.Items)
}

func TestCancellationAfterConfirmedOrderStillCommits(t *testing.T) {
	f := newFixture(t)
	bg := context.Background()
	_, err := f.store.InsertProduct(bg, model.Product{TenantID: "t1", Name: "Pizza Calabresa", Price: 40})
	require.NoError(t, err)

	pending := model.NewOrderState()
	pending.Items = []model.OrderItem{{ProductName: "Pizza Calabresa", Quantity: 1}}
	pending.DeliveryMethod = model.DeliveryPickup
	pending.Status = model.StatusPendingFinalConfirmation
	require.NoError(t, f.sessions.Save(bg, "5511_t1", &session.Session{Order: pending}))

	h := &order.PendingHandler{Addresses: f.store, Orders: f.store, Prices: f.store}
	ctx, cancel := context.WithCancel(bg)
	var calls int32
	o := f.orchestrator(t, func(ctx context.Context, in model.QueryInput) (*model.AIResponse, error) {
		atomic.AddInt32(&calls, 1)
		resp := h.Handle(ctx, in.Order, order.PendingInput{
			UserID: in.UserID, TenantID: in.TenantID, Text: in.Text, Signal: model.SignalYes,
		})
		cancel()
		return &resp, nil
	})

	resp, err := o.ProcessMessage(ctx, request("wamid.sim", "sim"))
	require.NoError(t, err)
	assert.Equal(t, order.MsgOrderConfirmed, resp.ResponseText)

	sess, err := f.sessions.Load(bg, "5511_t1")
	require.NoError(t, err)
	assert.False(t, sess.Order.Status.IsPending())
	assert.Empty(t, sess.Order.Items)

	retry, err := o.ProcessMessage(bg, request("wamid.sim", "sim"))
	require.NoError(t, err)
	assert.True(t, retry.Duplicate)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	orders, err := f.store.ListConfirmedOrders(bg, "t1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestConcurrentRetryOfSameMessageRunsOnce(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	o := f.orchestrator(t, func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
		}
		in.Order.Items = append(in.Order.Items, model.OrderItem{ProductName: "Pizza", Quantity: 1})
		return formulated("Anotado.", in.Order), nil
	})

	var wg sync.WaitGroup
	replies := make([]*model.AIResponse, 2)
	run := func(i int) {
		defer wg.Done()
		resp, err := o.ProcessMessage(context.Background(), request("wamid.retry", "uma pizza"))
		assert.NoError(t, err)
		replies[i] = resp
	}

	wg.Add(1)
	go run(0)
	<-started
	wg.Add(1)
	go run(1)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, replies[0].Duplicate)
	assert.True(t, replies[1].Duplicate)

	sess, err := f.sessions.Load(context.Background(), "5511_t1")
	require.NoError(t, err)
	assert.Len(t, sess.Order.Items, 1)
}

func TestCancelledWhileWaitingForSession(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
		return formulated("ok", in.Order), nil
	})
	unlock := o.locker.Lock("5511_t1")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := o.ProcessMessage(ctx, request("m1", "oi"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSameSessionIsSerialised(t *testing.T) {
	f := newFixture(t)
	var active, maxActive int32
	o := f.orchestrator(t, func(_ context.Context, in model.QueryInput) (*model.AIResponse, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		in.Order.Items = append(in.Order.Items, model.OrderItem{ProductName: "Pizza", Quantity: 1})
		atomic.AddInt32(&active, -1)
		return formulated("ok", in.Order), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := o.ProcessMessage(context.Background(), request("", "pizza"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
	sess, err := f.sessions.Load(context.Background(), "5511_t1")
	require.NoError(t, err)
	assert.Len(t, sess.Order.Items, 5)
}

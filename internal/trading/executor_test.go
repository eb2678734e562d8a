package trading_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhumphrey11/comoda-backend/internal/domain"
	"github.com/dhumphrey11/comoda-backend/internal/models"
	"github.com/dhumphrey11/comoda-backend/internal/trading"
)

// memStore is an in-memory Store mirroring the production transaction
// semantics: statements read committed state, and the cash read takes the
// portfolio row lock and holds it until commit or rollback. A concurrent
// trade blocks at its cash read and then sees the winner's committed
// state, exactly like FOR UPDATE under read committed.
type memStore struct {
	rowMu     sync.Mutex // portfolio row lock
	rules     map[string]float64
	cash      *float64
	prices    map[string]float64
	positions map[string]float64
	trades    []models.Trade

	failOp string // name of the Tx operation to fail, if any
}

func newMemStore() *memStore {
	return &memStore{
		rules:     map[string]float64{},
		prices:    map[string]float64{},
		positions: map[string]float64{},
	}
}

func (s *memStore) setCash(c float64) { s.cash = &c }

func (s *memStore) ExecuteInTx(ctx context.Context, fn func(tx trading.Tx) error) error {
	tx := &memTx{store: s, positions: map[string]float64{}}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err // staged changes dropped
	}
	tx.commit()
	return nil
}

type memTx struct {
	store     *memStore
	locked    bool
	cash      *float64
	positions map[string]float64
	trades    []models.Trade
}

// lockRow takes the portfolio row lock and snapshots the committed state,
// the way the first locking statement of a read-committed transaction
// would.
func (t *memTx) lockRow() {
	if t.locked {
		return
	}
	t.store.rowMu.Lock()
	t.locked = true
	if t.store.cash != nil {
		c := *t.store.cash
		t.cash = &c
	}
	for k, v := range t.store.positions {
		t.positions[k] = v
	}
}

func (t *memTx) commit() {
	if !t.locked {
		return
	}
	t.store.cash = t.cash
	t.store.positions = t.positions
	t.store.trades = append(t.store.trades, t.trades...)
}

func (t *memTx) release() {
	if t.locked {
		t.locked = false
		t.store.rowMu.Unlock()
	}
}

func (t *memTx) fail(op string) error {
	if t.store.failOp == op {
		return fmt.Errorf("injected %s failure", op)
	}
	return nil
}

func (t *memTx) TradeRules(context.Context) (map[string]float64, error) {
	if err := t.fail("rules"); err != nil {
		return nil, err
	}
	return t.store.rules, nil
}

func (t *memTx) CashAvailable(context.Context) (float64, bool, error) {
	if err := t.fail("cash"); err != nil {
		return 0, false, err
	}
	t.lockRow()
	if t.cash == nil {
		return 0, false, nil
	}
	return *t.cash, true, nil
}

func (t *memTx) LatestPrice(_ context.Context, ticker string) (float64, bool, error) {
	if err := t.fail("price"); err != nil {
		return 0, false, err
	}
	p, ok := t.store.prices[ticker]
	return p, ok, nil
}

func (t *memTx) SetCash(_ context.Context, cash float64) error {
	if err := t.fail("setcash"); err != nil {
		return err
	}
	t.lockRow()
	t.cash = &cash
	return nil
}

func (t *memTx) AddToPosition(_ context.Context, ticker string, qty float64) error {
	if err := t.fail("position"); err != nil {
		return err
	}
	t.lockRow()
	t.positions[ticker] += qty
	return nil
}

func (t *memTx) ReducePosition(_ context.Context, ticker string, qty float64) error {
	if err := t.fail("position"); err != nil {
		return err
	}
	t.lockRow()
	left := t.positions[ticker] - qty
	if left < 0 {
		left = 0
	}
	t.positions[ticker] = left
	return nil
}

func (t *memTx) AppendTrade(_ context.Context, rec models.Trade) error {
	if err := t.fail("append"); err != nil {
		return err
	}
	t.lockRow()
	t.trades = append(t.trades, rec)
	return nil
}

type spyEmitter struct{ results []models.TradeResult }

func (e *spyEmitter) TradeExecuted(_ context.Context, res models.TradeResult) error {
	e.results = append(e.results, res)
	return nil
}

func newExecutor(store trading.Store, em trading.Emitter) *trading.Executor {
	return trading.NewExecutor(store, em, trading.DefaultDefaults())
}

func TestExecuteTradeBuyWithinAllocation(t *testing.T) {
	store := newMemStore()
	store.setCash(20000)
	store.prices["BTC"] = 100

	res, err := newExecutor(store, nil).ExecuteTrade(context.Background(), "BTC", domain.ActionBuy, 0.5)
	require.NoError(t, err)

	// cost = 100 * 0.5 * (1 + 0.1/100 + 0.05/100) = 50.075
	assert.InDelta(t, 0.5, res.Quantity, 1e-9)
	assert.InDelta(t, 19949.925, res.CashAvailable, 1e-6)
	assert.False(t, res.PriceDefaulted)
	assert.InDelta(t, 0.5, store.positions["BTC"], 1e-9)
	assert.InDelta(t, 19949.925, *store.cash, 1e-6)
}

func TestExecuteTradeBuyClampedToMaxAllocation(t *testing.T) {
	store := newMemStore()
	store.setCash(20000)
	store.prices["BTC"] = 100

	res, err := newExecutor(store, nil).ExecuteTrade(context.Background(), "BTC", domain.ActionBuy, 20)
	require.NoError(t, err)

	// raw cost 2003.0 exceeds max_alloc_value 1000: clamp to 1000, qty 10.
	assert.InDelta(t, 10.0, res.Quantity, 1e-9)
	assert.InDelta(t, 19000.0, res.CashAvailable, 1e-6)
	assert.InDelta(t, 10.0, store.positions["BTC"], 1e-9)
	require.Len(t, store.trades, 1)
	assert.InDelta(t, 10.0, store.trades[0].Quantity, 1e-9, "trade log records the clamped quantity")
}

func TestExecuteTradeSell(t *testing.T) {
	store := newMemStore()
	store.setCash(20000)
	store.prices["ETH"] = 100
	store.positions["ETH"] = 10

	res, err := newExecutor(store, nil).ExecuteTrade(context.Background(), "ETH", domain.ActionSell, 5)
	require.NoError(t, err)

	// proceeds = 100 * 5 * (1 - 0.05/100) = 499.75
	assert.InDelta(t, 20499.75, res.CashAvailable, 1e-6)
	assert.InDelta(t, 5.0, res.Quantity, 1e-9)
	assert.InDelta(t, 5.0, store.positions["ETH"], 1e-9)
}

func TestExecuteTradeOversellFloorsPositionAtZero(t *testing.T) {
	store := newMemStore()
	store.setCash(1000)
	store.prices["ETH"] = 100
	store.positions["ETH"] = 2

	res, err := newExecutor(store, nil).ExecuteTrade(context.Background(), "ETH", domain.ActionSell, 5)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, store.positions["ETH"], 1e-9)
	assert.InDelta(t, 1000+499.75, res.CashAvailable, 1e-6)
}

func TestExecuteTradeSubstitutesDefaults(t *testing.T) {
	store := newMemStore() // no portfolio row, no price, no rules

	res, err := newExecutor(store, nil).ExecuteTrade(context.Background(), "SOL", domain.ActionBuy, 1)
	require.NoError(t, err)

	assert.True(t, res.PriceDefaulted)
	assert.InDelta(t, 100.0, res.Price, 1e-9)
	// cost 100.15 ≤ max_alloc_value 1000, so no clamp.
	assert.InDelta(t, 20000-100.15, res.CashAvailable, 1e-6)
}

func TestExecuteTradeUsesStoredRules(t *testing.T) {
	store := newMemStore()
	store.setCash(20000)
	store.prices["BTC"] = 100
	store.rules["max_allocation_pct"] = 10
	store.rules["slippage_pct"] = 0
	store.rules["fees_pct"] = 0

	res, err := newExecutor(store, nil).ExecuteTrade(context.Background(), "BTC", domain.ActionBuy, 20)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, res.Quantity, 1e-9)
	assert.InDelta(t, 18000.0, res.CashAvailable, 1e-6)
}

func TestExecuteTradeStorageFailureRollsBack(t *testing.T) {
	for _, op := range []string{"rules", "cash", "price", "setcash", "position", "append"} {
		t.Run(op, func(t *testing.T) {
			store := newMemStore()
			store.setCash(20000)
			store.prices["BTC"] = 100
			store.positions["BTC"] = 3
			store.failOp = op

			_, err := newExecutor(store, nil).ExecuteTrade(context.Background(), "BTC", domain.ActionBuy, 1)
			require.Error(t, err)

			var se *trading.StorageError
			require.True(t, errors.As(err, &se))

			assert.InDelta(t, 20000.0, *store.cash, 1e-9, "cash unchanged after rollback")
			assert.InDelta(t, 3.0, store.positions["BTC"], 1e-9, "position unchanged after rollback")
			assert.Empty(t, store.trades)
		})
	}
}

func TestExecuteTradeEmitsOnSuccessOnly(t *testing.T) {
	store := newMemStore()
	store.setCash(20000)
	store.prices["BTC"] = 100
	em := &spyEmitter{}
	exec := newExecutor(store, em)

	_, err := exec.ExecuteTrade(context.Background(), "BTC", domain.ActionBuy, 1)
	require.NoError(t, err)
	require.Len(t, em.results, 1)
	assert.Equal(t, "BTC", em.results[0].Ticker)

	store.failOp = "setcash"
	_, err = exec.ExecuteTrade(context.Background(), "BTC", domain.ActionBuy, 1)
	require.Error(t, err)
	assert.Len(t, em.results, 1)
}

func TestExecuteTradeConcurrentBuysSerialize(t *testing.T) {
	store := newMemStore()
	store.setCash(20000)
	store.prices["BTC"] = 100
	exec := newExecutor(store, nil)

	results := make(chan models.TradeResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := exec.ExecuteTrade(context.Background(), "BTC", domain.ActionBuy, 20)
			assert.NoError(t, err, "the trade that blocked on the portfolio row must proceed, not fail")
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	// First clamped buy: cash 20000 -> 19000. Second blocks on the row,
	// then sees 19000 and clamps to 950: cash 18050. Both requests are
	// symmetric, so both must succeed with cash applied sequentially,
	// never computed from the same snapshot.
	var cashes []float64
	for res := range results {
		cashes = append(cashes, res.CashAvailable)
	}
	sort.Float64s(cashes)
	require.Len(t, cashes, 2)
	assert.InDelta(t, 18050.0, cashes[0], 1e-6)
	assert.InDelta(t, 19000.0, cashes[1], 1e-6)
	assert.InDelta(t, 18050.0, *store.cash, 1e-6)
	assert.Len(t, store.trades, 2)
}

package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeStore struct {
	mu      sync.Mutex
	items   map[string][]LineItem
	saves   int
	loadErr error
	gate    chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string][]LineItem{}}
}

func (s *fakeStore) Load(ctx context.Context, terminalID string) ([]LineItem, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return cloneLineItems(s.items[terminalID]), nil
}

func (s *fakeStore) Save(ctx context.Context, terminalID string, items []LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[terminalID] = cloneLineItems(items)
	s.saves++
	return nil
}

func (s *fakeStore) saved(terminalID string) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLineItems(s.items[terminalID])
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func newTestEngine(t *testing.T, store Store, opts EngineOptions) *Engine {
	t.Helper()
	eng, err := NewEngine("terminal-1", store, nil, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	waitReady(t, eng)
	return eng
}

func waitReady(t *testing.T, eng *Engine) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !eng.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("engine never became ready")
		}
		time.Sleep(time.Millisecond)
	}
}

func price(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func TestEngineTotals(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{ExactMatchLookups: true})

	eng.Add(AddInput{ProductID: "p-taco", Name: "Taco", BasePrice: price(100), Quantity: 1})
	eng.Add(AddInput{
		ProductID: "p-torta",
		Name:      "Torta",
		BasePrice: price(50),
		Size:      &SizeSelection{ID: "lg", Name: "Large", Surcharge: price(10)},
		Quantity:  2,
	})

	totals := eng.Totals()
	checks := []struct {
		name string
		got  decimal.Decimal
		want decimal.Decimal
	}{
		{"subtotal", totals.Subtotal, price(220)},
		{"tax", totals.Tax, price(39.6)},
		{"service_charge", totals.ServiceCharge, price(22)},
		{"total", totals.Total, price(281.6)},
	}
	for _, check := range checks {
		if !check.got.Equal(check.want) {
			t.Fatalf("%s = %s, want %s", check.name, check.got, check.want)
		}
	}
	if totals.ItemCount != 3 {
		t.Fatalf("item count = %d, want 3", totals.ItemCount)
	}
}

func TestEngineAddDefaultsAndUnitPrice(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})

	item := eng.Add(AddInput{
		ProductID: "p-1",
		Name:      "Pozole",
		BasePrice: price(80),
		Size:      &SizeSelection{ID: "lg", Surcharge: price(15)},
		AddOns: []OptionSelection{
			{ID: "extra-meat", Surcharge: price(20)},
			{ID: "avocado", Surcharge: price(5)},
		},
	})

	if item.Quantity != 1 {
		t.Fatalf("quantity defaulted to %d, want 1", item.Quantity)
	}
	if !item.UnitPrice.Equal(price(120)) {
		t.Fatalf("unit price = %s, want 120", item.UnitPrice)
	}
	if !item.TotalPrice.Equal(price(120)) {
		t.Fatalf("total price = %s, want 120", item.TotalPrice)
	}
	if item.CartItemID == "" {
		t.Fatal("cart item id not assigned")
	}
}

func TestEngineDuplicateAddsStayDistinct(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})

	input := AddInput{ProductID: "p-1", Name: "Agua Fresca", BasePrice: price(25), Quantity: 1}
	first := eng.Add(input)
	second := eng.Add(input)

	if first.CartItemID == second.CartItemID {
		t.Fatalf("duplicate adds shared cart item id %q", first.CartItemID)
	}
	if got := len(eng.Items()); got != 2 {
		t.Fatalf("line count = %d, want 2 (adds must not merge)", got)
	}
}

func TestEngineUpdateQuantity(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})

	item := eng.Add(AddInput{
		ProductID: "p-1",
		Name:      "Tamal",
		BasePrice: price(30),
		AddOns:    []OptionSelection{{ID: "salsa", Surcharge: price(5)}},
		Quantity:  2,
	})

	eng.UpdateQuantity(item.CartItemID, 5)
	items := eng.Items()
	if len(items) != 1 {
		t.Fatalf("line count = %d, want 1", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", items[0].Quantity)
	}
	// Customized per-unit price fixed at creation, quantity scales it.
	if !items[0].TotalPrice.Equal(price(175)) {
		t.Fatalf("total price = %s, want 175", items[0].TotalPrice)
	}

	eng.UpdateQuantity(item.CartItemID, 0)
	if got := len(eng.Items()); got != 0 {
		t.Fatalf("line count after zero quantity = %d, want 0", got)
	}
}

func TestEngineUpdateQuantityUnknownID(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})
	eng.Add(AddInput{ProductID: "p-1", Name: "Elote", BasePrice: price(20)})

	eng.UpdateQuantity("missing", 4)
	items := eng.Items()
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("unknown id mutated cart: %+v", items)
	}
}

func TestEngineRemove(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})

	first := eng.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15)})
	second := eng.Add(AddInput{ProductID: "p-2", Name: "Quesadilla", BasePrice: price(18)})

	eng.Remove(first.CartItemID)
	items := eng.Items()
	if len(items) != 1 || items[0].CartItemID != second.CartItemID {
		t.Fatalf("remove left wrong lines: %+v", items)
	}

	eng.Remove("missing")
	if got := len(eng.Items()); got != 1 {
		t.Fatalf("removing unknown id changed line count to %d", got)
	}
}

func TestEngineRemoveByIndex(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})

	eng.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15)})
	keep := eng.Add(AddInput{ProductID: "p-2", Name: "Sope", BasePrice: price(22)})

	eng.RemoveByIndex(-1)
	eng.RemoveByIndex(5)
	if got := len(eng.Items()); got != 2 {
		t.Fatalf("out-of-range index changed line count to %d", got)
	}

	eng.RemoveByIndex(0)
	items := eng.Items()
	if len(items) != 1 || items[0].CartItemID != keep.CartItemID {
		t.Fatalf("remove by index left wrong lines: %+v", items)
	}
}

func TestEngineReplaceAtPreservesIdentity(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})

	original := eng.Add(AddInput{ProductID: "p-1", Name: "Burrito", BasePrice: price(60), Quantity: 1})

	eng.ReplaceAt(0, AddInput{
		ProductID: "p-1",
		Name:      "Burrito",
		BasePrice: price(60),
		AddOns:    []OptionSelection{{ID: "queso", Surcharge: price(10)}},
		Quantity:  3,
	})

	items := eng.Items()
	if len(items) != 1 {
		t.Fatalf("line count = %d, want 1", len(items))
	}
	got := items[0]
	if got.CartItemID != original.CartItemID {
		t.Fatalf("replace changed cart item id: %q -> %q", original.CartItemID, got.CartItemID)
	}
	if !got.AddedAt.Equal(original.AddedAt) {
		t.Fatalf("replace changed added-at: %s -> %s", original.AddedAt, got.AddedAt)
	}
	if !got.TotalPrice.Equal(price(210)) {
		t.Fatalf("total price = %s, want 210", got.TotalPrice)
	}
}

func TestEngineReplaceByID(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})

	first := eng.Add(AddInput{ProductID: "p-1", Name: "Burrito", BasePrice: price(60), Quantity: 1})
	eng.Add(AddInput{ProductID: "p-2", Name: "Sope", BasePrice: price(22), Quantity: 1})

	if !eng.Replace(first.CartItemID, AddInput{
		ProductID: "p-1",
		Name:      "Burrito",
		BasePrice: price(60),
		Size:      &SizeSelection{ID: "lg", Name: "Large", Surcharge: price(15)},
		Quantity:  2,
	}) {
		t.Fatal("replace missed an existing line")
	}

	items := eng.Items()
	if len(items) != 2 {
		t.Fatalf("line count = %d, want 2", len(items))
	}
	got := items[0]
	if got.CartItemID != first.CartItemID {
		t.Fatalf("replace changed cart item id: %q -> %q", first.CartItemID, got.CartItemID)
	}
	if !got.AddedAt.Equal(first.AddedAt) {
		t.Fatalf("replace changed added-at: %s -> %s", first.AddedAt, got.AddedAt)
	}
	if !got.TotalPrice.Equal(price(150)) {
		t.Fatalf("total price = %s, want 150", got.TotalPrice)
	}

	if eng.Replace("missing", AddInput{ProductID: "p-3", Name: "Taco", BasePrice: price(15)}) {
		t.Fatal("replace matched an unknown id")
	}
	if got := len(eng.Items()); got != 2 {
		t.Fatalf("unknown id changed line count to %d", got)
	}
}

func TestEngineClear(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})
	eng.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15), Quantity: 4})

	eng.Clear()
	if got := len(eng.Items()); got != 0 {
		t.Fatalf("line count after clear = %d, want 0", got)
	}
	totals := eng.Totals()
	if !totals.Total.Equal(decimal.Zero) || totals.ItemCount != 0 {
		t.Fatalf("totals after clear = %+v", totals)
	}
}

func TestEngineQuantityExactMatch(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{ExactMatchLookups: true})

	spicy := AddInput{
		ProductID: "p-1",
		Name:      "Taco",
		BasePrice: price(15),
		AddOns:    []OptionSelection{{ID: "salsa", Surcharge: price(2)}},
		Quantity:  2,
	}
	plain := AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15), Quantity: 1}

	eng.Add(spicy)
	eng.Add(spicy)
	eng.Add(plain)

	if got := eng.Quantity(spicy); got != 4 {
		t.Fatalf("quantity for customized line = %d, want 4", got)
	}
	if got := eng.Quantity(plain); got != 1 {
		t.Fatalf("quantity for plain line = %d, want 1", got)
	}
	if !eng.Contains(plain) {
		t.Fatal("contains missed a present configuration")
	}
	if eng.Contains(AddInput{ProductID: "p-2", Name: "Sope", BasePrice: price(22)}) {
		t.Fatal("contains matched an absent configuration")
	}
}

func TestEngineQuantityLegacyLookups(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{ExactMatchLookups: false})

	input := AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15), Quantity: 2}
	eng.Add(input)

	// Legacy identity folds in a fresh timestamp, so lookups never match.
	if eng.Contains(input) {
		t.Fatal("legacy contains matched")
	}
	if got := eng.Quantity(input); got != 0 {
		t.Fatalf("legacy quantity = %d, want 0", got)
	}
}

func TestEngineValidate(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})

	result := eng.Validate()
	if result.IsValid {
		t.Fatal("empty cart validated")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("empty cart errors = %v", result.Errors)
	}

	eng.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15)})
	eng.Add(AddInput{ProductID: "p-2", Name: "", BasePrice: price(10)})
	eng.Add(AddInput{ProductID: "p-3", Name: "Sope", BasePrice: decimal.Zero})

	result = eng.Validate()
	if result.IsValid {
		t.Fatal("cart with broken lines validated")
	}
	// One missing name plus one missing price.
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v, want 2 entries", result.Errors)
	}
}

func TestEngineValidateOK(t *testing.T) {
	eng := newTestEngine(t, newFakeStore(), EngineOptions{})
	eng.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15), Quantity: 3})

	result := eng.Validate()
	if !result.IsValid || len(result.Errors) != 0 {
		t.Fatalf("valid cart reported %+v", result)
	}
}

func TestEngineHydration(t *testing.T) {
	store := newFakeStore()
	seed := newTestEngine(t, store, EngineOptions{FlushDelay: 5 * time.Millisecond})
	seed.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15), Quantity: 2})
	if err := seed.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	eng := newTestEngine(t, store, EngineOptions{})
	items := eng.Items()
	if len(items) != 1 {
		t.Fatalf("hydrated line count = %d, want 1", len(items))
	}
	if items[0].Name != "Taco" || items[0].Quantity != 2 {
		t.Fatalf("hydrated line = %+v", items[0])
	}
	if !eng.Totals().Subtotal.Equal(price(30)) {
		t.Fatalf("hydrated subtotal = %s, want 30", eng.Totals().Subtotal)
	}
}

func TestEngineMutationBeforeHydrationWins(t *testing.T) {
	store := newFakeStore()
	store.items["terminal-1"] = []LineItem{{
		CartItemID: "stale",
		ProductID:  "p-old",
		Name:       "Yesterday's Special",
		BasePrice:  price(10),
		UnitPrice:  price(10),
		TotalPrice: price(10),
		Quantity:   1,
	}}
	store.gate = make(chan struct{})

	eng, err := NewEngine("terminal-1", store, nil, EngineOptions{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	eng.Add(AddInput{ProductID: "p-new", Name: "Taco", BasePrice: price(15)})
	close(store.gate)
	waitReady(t, eng)

	items := eng.Items()
	if len(items) != 1 || items[0].ProductID != "p-new" {
		t.Fatalf("stale snapshot overwrote live mutation: %+v", items)
	}
}

func TestEngineHydrationErrorStartsEmpty(t *testing.T) {
	store := newFakeStore()
	store.loadErr = context.DeadlineExceeded

	eng := newTestEngine(t, store, EngineOptions{})
	if got := len(eng.Items()); got != 0 {
		t.Fatalf("line count = %d, want 0", got)
	}
	// Still usable after a failed load.
	eng.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15)})
	if got := len(eng.Items()); got != 1 {
		t.Fatalf("line count = %d, want 1", got)
	}
}

func TestEngineDebouncedFlush(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(t, store, EngineOptions{FlushDelay: 20 * time.Millisecond})

	eng.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15)})
	eng.Add(AddInput{ProductID: "p-2", Name: "Sope", BasePrice: price(22)})

	deadline := time.Now().Add(2 * time.Second)
	for store.saveCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("flush never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The flush reads state at fire time, so it carries both rapid adds.
	saved := store.saved("terminal-1")
	if len(saved) != 2 {
		t.Fatalf("flushed line count = %d, want 2", len(saved))
	}
}

func TestEngineCloseFlushesFinalState(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(t, store, EngineOptions{FlushDelay: time.Hour})

	eng.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15)})
	if err := eng.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	saved := store.saved("terminal-1")
	if len(saved) != 1 || saved[0].ProductID != "p-1" {
		t.Fatalf("close did not persist final state: %+v", saved)
	}
}

func TestEngineCloseBeforeHydrationKeepsSnapshot(t *testing.T) {
	store := newFakeStore()
	store.items["terminal-1"] = []LineItem{{
		CartItemID: "kept",
		ProductID:  "p-1",
		Name:       "Taco",
		BasePrice:  price(15),
		UnitPrice:  price(15),
		TotalPrice: price(15),
		Quantity:   1,
	}}
	store.gate = make(chan struct{})

	eng, err := NewEngine("terminal-1", store, nil, EngineOptions{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// Close while the load is still blocked. The cart was never mutated,
	// so the stored snapshot must survive.
	if err := eng.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(store.gate)

	if got := len(store.saved("terminal-1")); got != 1 {
		t.Fatalf("stored snapshot after close = %d lines, want 1", got)
	}
}

func TestSessionsShareEnginePerTerminal(t *testing.T) {
	sessions, err := NewSessions(newFakeStore(), nil, EngineOptions{})
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	defer sessions.Close(context.Background())

	first, err := sessions.Engine("terminal-1")
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	second, err := sessions.Engine("terminal-1")
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if first != second {
		t.Fatal("same terminal got two engines")
	}

	other, err := sessions.Engine("terminal-2")
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if other == first {
		t.Fatal("different terminals shared an engine")
	}
}

func TestSessionsClose(t *testing.T) {
	store := newFakeStore()
	sessions, err := NewSessions(store, nil, EngineOptions{FlushDelay: time.Hour})
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}

	eng, err := sessions.Engine("terminal-1")
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	waitReady(t, eng)
	eng.Add(AddInput{ProductID: "p-1", Name: "Taco", BasePrice: price(15)})

	if err := sessions.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := len(store.saved("terminal-1")); got != 1 {
		t.Fatalf("close did not flush live engines, saved %d lines", got)
	}
	if _, err := sessions.Engine("terminal-1"); err == nil {
		t.Fatal("closed registry handed out an engine")
	}
}

package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avaldezco/sazonpos-backend/pkg/logger"
	"github.com/avaldezco/sazonpos-backend/pkg/metrics"
)

const (
	// DefaultFlushDelay is the debounce window between a mutation and the
	// snapshot write-back.
	DefaultFlushDelay = 500 * time.Millisecond

	storageTimeout = 5 * time.Second
)

// EngineOptions tune one cart engine.
type EngineOptions struct {
	// FlushDelay overrides the debounce window; zero means DefaultFlushDelay.
	FlushDelay time.Duration
	// ExactMatchLookups switches Contains/Quantity to timestamp-free
	// configuration identity. With it off, lookups recompute a full cart
	// item id (fresh timestamp included) and therefore never match, which
	// is the behavior the legacy client shipped with.
	ExactMatchLookups bool
	Metrics           *metrics.CartMetrics
}

// AddInput is everything needed to build a new line.
type AddInput struct {
	ProductID string
	Name      string
	BasePrice decimal.Decimal
	Size      *SizeSelection
	AddOns    []OptionSelection
	Note      string
	Quantity  int
}

// ValidationResult carries every problem found, not just the first.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Engine owns the ordered line items one terminal is assembling for a single
// order. Mutations apply to memory immediately and schedule a debounced
// write-back to the store; memory stays authoritative for the session whether
// or not persistence succeeds.
type Engine struct {
	key   string
	store Store
	logg  *logger.Logger
	mets  *metrics.CartMetrics

	flushDelay time.Duration
	exactMatch bool

	mu     sync.Mutex
	items  []LineItem
	ready  bool
	dirty  bool
	closed bool
	timer  *time.Timer
}

// NewEngine builds an engine for the given storage key and starts hydrating
// it in the background. Reads before hydration completes see an empty cart;
// a mutation that lands first wins over the stored snapshot.
func NewEngine(key string, store Store, logg *logger.Logger, opts EngineOptions) (*Engine, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("cart storage key required")
	}
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	delay := opts.FlushDelay
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	e := &Engine{
		key:        key,
		store:      store,
		logg:       logg,
		mets:       opts.Metrics,
		flushDelay: delay,
		exactMatch: opts.ExactMatchLookups,
	}
	go e.hydrate()
	return e, nil
}

func (e *Engine) hydrate() {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	items, err := e.store.Load(ctx, e.key)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		// Non-fatal: start empty, stay usable.
		if e.logg != nil {
			e.logg.Warn(e.logg.WithField(ctx, "cart_key", e.key), "cart hydration failed, starting empty")
		}
		e.mets.IncHydrationFailure()
	} else if !e.dirty {
		e.items = items
	}
	e.ready = true
}

// Ready reports whether the initial hydration has completed.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// Add appends a new line built from the input. It always succeeds: a zero or
// negative quantity defaults to 1, missing prices stay zero and are caught by
// Validate before checkout.
func (e *Engine) Add(input AddInput) LineItem {
	qty := input.Quantity
	if qty <= 0 {
		qty = 1
	}
	now := time.Now().UTC()
	unit := unitPriceFor(input.BasePrice, input.Size, input.AddOns)
	item := LineItem{
		CartItemID: newCartItemID(configKey(input.ProductID, input.Size, input.AddOns, input.Note), now),
		ProductID:  input.ProductID,
		Name:       input.Name,
		BasePrice:  input.BasePrice,
		Size:       input.Size,
		AddOns:     input.AddOns,
		Note:       input.Note,
		Quantity:   qty,
		UnitPrice:  unit,
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(qty))),
		AddedAt:    now,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, cloneLineItem(item))
	e.mutated()
	return item
}

// Remove deletes the line with the given cart item id; absent ids are a no-op.
func (e *Engine) Remove(cartItemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, item := range e.items {
		if item.CartItemID == cartItemID {
			e.items = append(e.items[:i], e.items[i+1:]...)
			e.mutated()
			return
		}
	}
}

// RemoveByIndex deletes the line at the given position. It survives only as a
// compatibility path for snapshots whose lines predate mandatory ids.
func (e *Engine) RemoveByIndex(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.items) {
		return
	}
	e.items = append(e.items[:index], e.items[index+1:]...)
	e.mutated()
}

// UpdateQuantity sets the quantity of the matching line, removing it when the
// new quantity is zero or below. Unknown ids are a no-op.
func (e *Engine) UpdateQuantity(cartItemID string, quantity int) {
	if quantity <= 0 {
		e.Remove(cartItemID)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.items {
		if e.items[i].CartItemID != cartItemID {
			continue
		}
		e.items[i].Quantity = quantity
		e.items[i].TotalPrice = e.items[i].UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		e.mutated()
		return
	}
}

// ReplaceAt swaps out the line at index wholesale, preserving its cart item
// id and added-at timestamp. Out-of-range indexes are a no-op.
func (e *Engine) ReplaceAt(index int, input AddInput) {
	qty := input.Quantity
	if qty <= 0 {
		qty = 1
	}
	unit := unitPriceFor(input.BasePrice, input.Size, input.AddOns)

	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.items) {
		return
	}
	prev := e.items[index]
	e.items[index] = LineItem{
		CartItemID: prev.CartItemID,
		ProductID:  input.ProductID,
		Name:       input.Name,
		BasePrice:  input.BasePrice,
		Size:       input.Size,
		AddOns:     input.AddOns,
		Note:       input.Note,
		Quantity:   qty,
		UnitPrice:  unit,
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(qty))),
		AddedAt:    prev.AddedAt,
	}
	e.mutated()
}

// Replace swaps out the line with the given cart item id wholesale,
// preserving its id and added-at timestamp. It reports whether a line
// matched.
func (e *Engine) Replace(cartItemID string, input AddInput) bool {
	qty := input.Quantity
	if qty <= 0 {
		qty = 1
	}
	unit := unitPriceFor(input.BasePrice, input.Size, input.AddOns)

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.items {
		if e.items[i].CartItemID != cartItemID {
			continue
		}
		prev := e.items[i]
		e.items[i] = LineItem{
			CartItemID: prev.CartItemID,
			ProductID:  input.ProductID,
			Name:       input.Name,
			BasePrice:  input.BasePrice,
			Size:       input.Size,
			AddOns:     input.AddOns,
			Note:       input.Note,
			Quantity:   qty,
			UnitPrice:  unit,
			TotalPrice: unit.Mul(decimal.NewFromInt(int64(qty))),
			AddedAt:    prev.AddedAt,
		}
		e.mutated()
		return true
	}
	return false
}

// Clear empties the cart, typically after order submission.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.items) == 0 {
		return
	}
	e.items = nil
	e.mutated()
}

// Items returns the lines in insertion order.
func (e *Engine) Items() []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneLineItems(e.items)
}

// Totals recomputes the derived totals from the current lines.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return computeTotals(e.items)
}

// Contains reports whether a line with the candidate's configuration is in
// the cart; see EngineOptions.ExactMatchLookups for the identity used.
func (e *Engine) Contains(candidate AddInput) bool {
	return e.Quantity(candidate) > 0
}

// Quantity returns the summed quantity of matching lines, zero when absent.
func (e *Engine) Quantity(candidate AddInput) int {
	target := configKey(candidate.ProductID, candidate.Size, candidate.AddOns, candidate.Note)
	if !e.exactMatch {
		// Legacy identity includes a fresh timestamp and random suffix, so
		// it can never equal an id minted earlier.
		target = newCartItemID(target, time.Now().UTC())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, item := range e.items {
		key := configKeyOf(item)
		if !e.exactMatch {
			key = item.CartItemID
		}
		if key == target {
			total += item.Quantity
		}
	}
	return total
}

// Validate collects every checkout blocker instead of stopping at the first.
func (e *Engine) Validate() ValidationResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []string
	if len(e.items) == 0 {
		errs = append(errs, "cart is empty")
	}
	for _, item := range e.items {
		label := strings.TrimSpace(item.Name)
		if label == "" {
			label = item.ProductID
		}
		if strings.TrimSpace(item.Name) == "" {
			errs = append(errs, fmt.Sprintf("line %s is missing a name", label))
		}
		if item.UnitPrice.LessThanOrEqual(decimal.Zero) && item.TotalPrice.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, fmt.Sprintf("line %s has no price", label))
		}
		if item.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("line %s has a non-positive quantity", label))
		}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// Close cancels any pending debounce timer and flushes unsaved mutations
// once. An engine that was never mutated leaves the stored snapshot alone,
// so closing before hydration finishes cannot overwrite it with the empty
// pre-hydration state.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	dirty := e.dirty
	snapshot := cloneLineItems(e.items)
	e.mu.Unlock()

	if !dirty {
		return nil
	}
	return e.store.Save(ctx, e.key, snapshot)
}

// mutated marks the cart dirty and (re)schedules the debounced write-back.
// Callers must hold e.mu.
func (e *Engine) mutated() {
	e.dirty = true
	if e.closed {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.flushDelay, e.flush)
}

// flush persists the state as it is when the timer fires, not as it was when
// the write was scheduled.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	snapshot := cloneLineItems(e.items)
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := e.store.Save(ctx, e.key, snapshot); err != nil {
		// Memory stays authoritative; the next mutation retries.
		if e.logg != nil {
			e.logg.Error(e.logg.WithField(ctx, "cart_key", e.key), "cart flush failed", err)
		}
		e.mets.IncFlushFailure()
		return
	}
	e.mets.IncFlushSuccess()
}

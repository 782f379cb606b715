package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/exchange"
)

type fakeStore struct {
	mu         sync.Mutex
	profiles   map[string]core.Profile
	categories map[string]core.Category
	expenses   map[string]core.Expense
	failOn     map[string]error
	updates    int
	profileErr error
	events     []core.ProductEvent
	eventErr   error
	lastFilter core.ExpenseFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:   map[string]core.Profile{},
		categories: map[string]core.Category{},
		expenses:   map[string]core.Expense{},
		failOn:     map[string]error{},
	}
}

func (f *fakeStore) GetProfile(_ context.Context, ownerID string) (core.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[ownerID]; ok {
		return p, nil
	}
	return core.Profile{ID: ownerID, BaseCurrency: core.DefaultBaseCurrency}, nil
}

func (f *fakeStore) SetBaseCurrency(_ context.Context, ownerID, currency string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return f.profileErr
	}
	p := f.profiles[ownerID]
	p.ID = ownerID
	p.BaseCurrency = currency
	f.profiles[ownerID] = p
	return nil
}

func (f *fakeStore) SetDisplayName(_ context.Context, ownerID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return f.profileErr
	}
	p, ok := f.profiles[ownerID]
	if !ok {
		p = core.Profile{ID: ownerID, BaseCurrency: core.DefaultBaseCurrency}
	}
	p.DisplayName = name
	f.profiles[ownerID] = p
	return nil
}

func (f *fakeStore) InsertProductEvent(_ context.Context, e core.ProductEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeStore) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Category
	for _, c := range f.categories {
		if c.OwnerID == "" || c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) GetCategory(_ context.Context, ownerID, id string) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok || (c.OwnerID != "" && c.OwnerID != ownerID) {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeStore) FindCategoryByName(_ context.Context, ownerID, name string) (core.Category, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if (c.OwnerID == "" || c.OwnerID == ownerID) && strings.EqualFold(c.Name, name) {
			return c, true, nil
		}
	}
	return core.Category{}, false, nil
}

func (f *fakeStore) InsertCategory(_ context.Context, c core.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.categories {
		if existing.OwnerID == c.OwnerID && strings.EqualFold(existing.Name, c.Name) {
			return core.ErrDuplicateCategory
		}
	}
	f.categories[c.ID] = c
	return nil
}

func (f *fakeStore) UpdateCategory(_ context.Context, c core.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories[c.ID] = c
	return nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.expenses {
		if e.CategoryID == id {
			return core.ErrCategoryInUse
		}
	}
	c, ok := f.categories[id]
	if !ok || c.OwnerID != ownerID {
		return core.ErrCategoryNotFound
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeStore) InsertExpense(_ context.Context, e core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeStore) UpdateExpense(_ context.Context, e core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[e.ID]; !ok {
		return core.ErrExpenseNotFound
	}
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeStore) DeleteExpense(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return core.ErrExpenseNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) GetExpense(_ context.Context, ownerID, id string) (core.ExpenseWithCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return core.ExpenseWithCategory{}, core.ErrExpenseNotFound
	}
	return core.ExpenseWithCategory{Expense: e}, nil
}

func (f *fakeStore) ListExpenses(_ context.Context, ownerID string, filter core.ExpenseFilter) (core.ExpensePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	page := core.ExpensePage{Page: filter.Page, PageSize: filter.PageSize}
	for _, e := range f.expenses {
		if e.OwnerID == ownerID {
			page.Items = append(page.Items, core.ExpenseWithCategory{Expense: e})
		}
	}
	page.Total = len(page.Items)
	return page, nil
}

func (f *fakeStore) ListExpenseAmounts(_ context.Context, ownerID string) ([]core.ExpenseAmount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ExpenseAmount
	for _, e := range f.expenses {
		if e.OwnerID == ownerID {
			out = append(out, core.ExpenseAmount{ID: e.ID, Amount: e.Amount, Currency: e.Currency})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateExpenseConversion(_ context.Context, ownerID string, c core.ExpenseConversion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[c.ID]; err != nil {
		return err
	}
	e, ok := f.expenses[c.ID]
	if !ok || e.OwnerID != ownerID {
		return core.ErrExpenseNotFound
	}
	e.AmountInBase = c.AmountInBase
	e.ExchangeRateUsed = c.ExchangeRateUsed
	f.expenses[c.ID] = e
	f.updates++
	return nil
}

// countingResolver returns fixed rates per base currency and counts calls.
type countingResolver struct {
	mu    sync.Mutex
	rates map[string]decimal.Decimal
	calls map[string]int
}

func newCountingResolver(rates map[string]string) *countingResolver {
	r := &countingResolver{rates: map[string]decimal.Decimal{}, calls: map[string]int{}}
	for k, v := range rates {
		r.rates[k] = decimal.RequireFromString(v)
	}
	return r
}

func (r *countingResolver) Resolve(_ context.Context, base, target string) exchange.Rate {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[base+":"+target]++
	if base == target {
		return exchange.Rate{Value: decimal.NewFromInt(1), Source: exchange.SourceCache}
	}
	if v, ok := r.rates[base]; ok {
		return exchange.Rate{Value: v, Source: exchange.SourceAPI}
	}
	return exchange.Rate{Value: decimal.NewFromInt(1), Source: exchange.SourceFallback, Identity: true}
}

func (r *countingResolver) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, e *amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

var errBoom = errors.New("boom")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

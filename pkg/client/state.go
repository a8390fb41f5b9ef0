package client

import (
	"context"
	"errors"
	"sync"

	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/shopspring/decimal"
)

// ErrBusy is returned when a slot already has a request in flight.
var ErrBusy = errors.New("a request for this view is already in flight")

// API is the subset of Client the state container drives.
type API interface {
	ListExpenses(ctx context.Context, query expense.RawListQuery) (*expense.ExpenseList, error)
	CreateExpense(ctx context.Context, dto expense.CreateExpenseDTO) (*expense.Expense, error)
	UpdateExpense(ctx context.Context, id string, dto expense.UpdateExpenseDTO) (*expense.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	GetStatistics(ctx context.Context) (*expense.Statistics, error)
}

// ListView is a consistent snapshot of the listing slot.
type ListView struct {
	Expenses []*expense.Expense
	Count    int
	Total    decimal.Decimal
	Query    expense.RawListQuery
	Loading  bool
	Err      error
}

// StatsView is a consistent snapshot of the statistics slot.
type StatsView struct {
	Stats   *expense.Statistics
	Loading bool
	Err     error
}

// State holds what the views render: the current listing and the last
// fetched statistics. Each slot allows one request in flight.
type State struct {
	api API

	mu    sync.RWMutex
	list  ListView
	stats StatsView
}

func NewState(api API) *State {
	return &State{api: api}
}

func (s *State) List() ListView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := s.list
	view.Expenses = append([]*expense.Expense(nil), s.list.Expenses...)
	return view
}

func (s *State) Stats() StatsView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *State) beginList() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.list.Loading {
		return false
	}
	s.list.Loading = true
	return true
}

func (s *State) beginStats() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats.Loading {
		return false
	}
	s.stats.Loading = true
	return true
}

// Refresh reloads the listing with query and remembers it for later
// reloads. On failure the previous records stay in place.
func (s *State) Refresh(ctx context.Context, query expense.RawListQuery) error {
	if !s.beginList() {
		return ErrBusy
	}

	list, err := s.api.ListExpenses(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Loading = false
	s.list.Err = err
	if err != nil {
		return err
	}
	s.list.Query = query
	s.list.Expenses = list.Data
	s.list.Count = list.Count
	s.list.Total = list.Total
	return nil
}

func (s *State) RefreshStats(ctx context.Context) error {
	if !s.beginStats() {
		return ErrBusy
	}

	stats, err := s.api.GetStatistics(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Loading = false
	s.stats.Err = err
	if err != nil {
		return err
	}
	s.stats.Stats = stats
	return nil
}

func (s *State) currentQuery() expense.RawListQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.Query
}

// reload refreshes both slots after a write. A slot that is already
// loading is left to its own request.
func (s *State) reload(ctx context.Context) error {
	err := s.Refresh(ctx, s.currentQuery())
	if errors.Is(err, ErrBusy) {
		err = nil
	}
	statsErr := s.RefreshStats(ctx)
	if errors.Is(statsErr, ErrBusy) {
		statsErr = nil
	}
	return errors.Join(err, statsErr)
}

// Add creates an expense and reloads the views. The write error is
// returned as is so validation messages reach the form.
func (s *State) Add(ctx context.Context, dto expense.CreateExpenseDTO) (*expense.Expense, error) {
	created, err := s.api.CreateExpense(ctx, dto)
	if err != nil {
		return nil, err
	}
	return created, s.reload(ctx)
}

func (s *State) Edit(ctx context.Context, id string, dto expense.UpdateExpenseDTO) (*expense.Expense, error) {
	updated, err := s.api.UpdateExpense(ctx, id, dto)
	if err != nil {
		return nil, err
	}
	return updated, s.reload(ctx)
}

func (s *State) Remove(ctx context.Context, id string) error {
	if err := s.api.DeleteExpense(ctx, id); err != nil {
		return err
	}
	return s.reload(ctx)
}

// Page slices the loaded listing. Pages are numbered from 1; out of range
// pages are empty.
func (s *State) Page(page, size int) (items []*expense.Expense, pages int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if size <= 0 {
		size = 10
	}
	n := len(s.list.Expenses)
	pages = (n + size - 1) / size

	if page < 1 || page > pages {
		return []*expense.Expense{}, pages
	}
	start := (page - 1) * size
	end := start + size
	if end > n {
		end = n
	}
	return append([]*expense.Expense(nil), s.list.Expenses[start:end]...), pages
}

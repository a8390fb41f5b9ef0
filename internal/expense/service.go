package expense

import (
	"context"
	goerrors "errors"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-tracker/internal"
	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrStoreNotFound is returned by repositories when no record has the id.
	ErrStoreNotFound = goerrors.New("expense: record not found")
	// ErrStoreConflict is returned by Update when the record changed after it
	// was read.
	ErrStoreConflict = goerrors.New("expense: record changed concurrently")
)

// maxUpdateAttempts bounds how often an update is re-read and re-merged after
// losing a race with another writer.
const maxUpdateAttempts = 5

// RepositoryAPI is the record store. Implementations treat malformed ids as
// not found and return ErrStoreNotFound for them.
type RepositoryAPI interface {
	Create(ctx context.Context, expense *expenseDatamodel.Expense) error
	FindMany(ctx context.Context, filter Filter, sort Sort) ([]*expenseDatamodel.Expense, error)
	GetByID(ctx context.Context, id string) (*expenseDatamodel.Expense, error)
	// Update writes expense only if the stored updatedAt still equals
	// previous, returning ErrStoreConflict otherwise.
	Update(ctx context.Context, expense *expenseDatamodel.Expense, previous time.Time) error
	Delete(ctx context.Context, id string) error
	Total(ctx context.Context) (decimal.Decimal, error)
	TotalByCategory(ctx context.Context) ([]CategoryTotal, error)
	MonthlyTotals(ctx context.Context, year int) ([]MonthTotal, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo         RepositoryAPI
	publisher    EventPublisher
	logger       *slog.Logger
	queryTimeout time.Duration
	now          func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) { s.queryTimeout = d }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(repo RepositoryAPI, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateExpense(ctx context.Context, dto CreateExpenseDTO) (*Expense, error) {
	draft, verr := dto.ToDraft()
	if verr != nil {
		s.logger.Debug("expense validation failed", "fields", verr.Messages())
		return nil, verr
	}

	expense := NewExpense(draft, s.now())

	ctx, cancel := errors.QueryContext(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, ToDataModel(expense)); err != nil {
		s.logger.Error("failed to create expense", "error", err, "category", expense.Category)
		return nil, s.storeError(err)
	}

	s.logger.Info("expense created",
		"expense_id", expense.ID,
		"amount", expense.Amount.String(),
		"category", expense.Category)

	s.publish(ctx, events.NewExpenseCreatedEvent(expense.ID, expense.Title, expense.Amount.String(), expense.Category))
	return expense, nil
}

// ListExpenses parses the raw parameters, fetches every match and sums the
// amounts of the returned set.
func (s *Service) ListExpenses(ctx context.Context, raw RawListQuery) (*ExpenseList, error) {
	filter, sort, verr := raw.Parse()
	if verr != nil {
		return nil, verr
	}

	ctx, cancel := errors.QueryContext(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.repo.FindMany(ctx, filter, sort)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err,
			"category", filter.Category, "sort", sort.String())
		return nil, s.storeError(err)
	}

	expenses := FromDataModelSlice(rows)
	return &ExpenseList{
		Count: len(expenses),
		Total: Sum(expenses),
		Data:  expenses,
	}, nil
}

func (s *Service) GetExpense(ctx context.Context, id string) (*Expense, error) {
	if !IsValidID(id) {
		return nil, errors.ErrExpenseNotFound
	}

	ctx, cancel := errors.QueryContext(ctx, s.queryTimeout)
	defer cancel()

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !goerrors.Is(err, ErrStoreNotFound) {
			s.logger.Error("failed to get expense", "error", err, "expense_id", id)
		}
		return nil, s.storeError(err)
	}
	return FromDataModel(row), nil
}

// UpdateExpense merges the supplied fields into the current record and
// revalidates the result before writing it back. The write is conditional on
// the record being unchanged since it was read; a lost race re-reads and
// merges again so concurrent updates of different fields all survive.
func (s *Service) UpdateExpense(ctx context.Context, id string, dto UpdateExpenseDTO) (*Expense, error) {
	for attempt := 1; ; attempt++ {
		updated, err := s.tryUpdate(ctx, id, dto)
		if !goerrors.Is(err, ErrStoreConflict) {
			return updated, err
		}
		if attempt == maxUpdateAttempts {
			s.logger.Error("failed to update expense", "error", err, "expense_id", id, "attempts", attempt)
			return nil, s.storeError(err)
		}
		s.logger.Debug("expense changed concurrently, retrying update", "expense_id", id, "attempt", attempt)
	}
}

func (s *Service) tryUpdate(ctx context.Context, id string, dto UpdateExpenseDTO) (*Expense, error) {
	current, err := s.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	draft, verr := dto.MergeInto(current).ToDraft()
	if verr != nil {
		s.logger.Debug("expense update validation failed", "expense_id", id, "fields", verr.Messages())
		return nil, verr
	}

	updated := *current
	updated.Title = draft.Title
	updated.Amount = draft.Amount
	updated.Category = draft.Category
	updated.Description = draft.Description
	if draft.Date != nil {
		updated.Date = NormalizeTime(*draft.Date)
	}
	updated.Touch(s.now())

	writeCtx, cancel := errors.QueryContext(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Update(writeCtx, ToDataModel(&updated), current.UpdatedAt); err != nil {
		if goerrors.Is(err, ErrStoreConflict) {
			return nil, err
		}
		if !goerrors.Is(err, ErrStoreNotFound) {
			s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		}
		return nil, s.storeError(err)
	}

	s.logger.Info("expense updated", "expense_id", id)
	s.publish(ctx, events.NewExpenseUpdatedEvent(updated.ID, updated.Title, updated.Amount.String(), updated.Category))
	return &updated, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if !IsValidID(id) {
		return errors.ErrExpenseNotFound
	}

	ctx, cancel := errors.QueryContext(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		if !goerrors.Is(err, ErrStoreNotFound) {
			s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		}
		return s.storeError(err)
	}

	s.logger.Info("expense deleted", "expense_id", id)
	s.publish(ctx, events.NewExpenseDeletedEvent(id))
	return nil
}

// GetStatistics runs the three aggregates as independent reads. Under
// concurrent writes they may reflect different snapshots.
func (s *Service) GetStatistics(ctx context.Context) (*Statistics, error) {
	year := s.now().UTC().Year()

	ctx, cancel := errors.QueryContext(ctx, s.queryTimeout)
	defer cancel()

	stats := &Statistics{
		Total:      decimal.Zero,
		ByCategory: []CategoryTotal{},
		ByMonth:    []MonthTotal{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.repo.Total(gctx)
		if err != nil {
			return err
		}
		stats.Total = total
		return nil
	})
	g.Go(func() error {
		byCategory, err := s.repo.TotalByCategory(gctx)
		if err != nil {
			return err
		}
		if byCategory != nil {
			stats.ByCategory = byCategory
		}
		return nil
	})
	g.Go(func() error {
		byMonth, err := s.repo.MonthlyTotals(gctx, year)
		if err != nil {
			return err
		}
		if byMonth != nil {
			stats.ByMonth = byMonth
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to compute statistics", "error", err, "year", year)
		return nil, s.storeError(err)
	}
	return stats, nil
}

func (s *Service) storeError(err error) error {
	if goerrors.Is(err, ErrStoreNotFound) {
		return errors.ErrExpenseNotFound
	}
	return errors.NewInternalError(errors.GenericServerMessage, err)
}

// publish runs after a successful write; the request context may already be
// cancelled by the time subscribers run.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

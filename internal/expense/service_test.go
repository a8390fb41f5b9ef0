package expense_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-tracker/internal"
	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/expense"
)

// Mock repository for testing
type mockExpenseRepository struct {
	mu          sync.Mutex
	rows        map[string]*expenseDatamodel.Expense
	createError error
	findError   error
	updateError error
	totalError  error
	lastFilter  expense.Filter
	lastSort    expense.Sort
}

func newMockExpenseRepository() *mockExpenseRepository {
	return &mockExpenseRepository{rows: make(map[string]*expenseDatamodel.Expense)}
}

func (m *mockExpenseRepository) Create(_ context.Context, row *expenseDatamodel.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	copied := *row
	m.rows[row.ID] = &copied
	return nil
}

func (m *mockExpenseRepository) all() []*expense.Expense {
	out := make([]*expense.Expense, 0, len(m.rows))
	for _, row := range m.rows {
		copied := *row
		out = append(out, expense.FromDataModel(&copied))
	}
	return out
}

func (m *mockExpenseRepository) FindMany(_ context.Context, filter expense.Filter, s expense.Sort) ([]*expenseDatamodel.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	m.lastSort = s
	if m.findError != nil {
		return nil, m.findError
	}

	matched := make([]*expense.Expense, 0)
	for _, e := range m.all() {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if s.Desc {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].Date.Before(matched[j].Date)
	})

	out := make([]*expenseDatamodel.Expense, 0, len(matched))
	for _, e := range matched {
		out = append(out, expense.ToDataModel(e))
	}
	return out, nil
}

func (m *mockExpenseRepository) GetByID(_ context.Context, id string) (*expenseDatamodel.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, expense.ErrStoreNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *mockExpenseRepository) Update(_ context.Context, row *expenseDatamodel.Expense, previous time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateError != nil {
		return m.updateError
	}
	stored, ok := m.rows[row.ID]
	if !ok {
		return expense.ErrStoreNotFound
	}
	if !stored.UpdatedAt.Equal(previous) {
		return expense.ErrStoreConflict
	}
	copied := *row
	m.rows[row.ID] = &copied
	return nil
}

func (m *mockExpenseRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return expense.ErrStoreNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockExpenseRepository) Total(_ context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totalError != nil {
		return decimal.Zero, m.totalError
	}
	return expense.Sum(m.all()), nil
}

func (m *mockExpenseRepository) TotalByCategory(_ context.Context) ([]expense.CategoryTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return expense.SummarizeByCategory(m.all()), nil
}

func (m *mockExpenseRepository) MonthlyTotals(_ context.Context, year int) ([]expense.MonthTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return expense.SummarizeByMonth(m.all(), year), nil
}

// lockstepRepository holds the first readers of a record until all of them
// have read it, so their writes are guaranteed to overlap.
type lockstepRepository struct {
	*mockExpenseRepository
	readers int

	mu      sync.Mutex
	reads   int
	arrived sync.WaitGroup
}

func newLockstepRepository(repo *mockExpenseRepository, readers int) *lockstepRepository {
	r := &lockstepRepository{mockExpenseRepository: repo, readers: readers}
	r.arrived.Add(readers)
	return r
}

func (r *lockstepRepository) GetByID(ctx context.Context, id string) (*expenseDatamodel.Expense, error) {
	row, err := r.mockExpenseRepository.GetByID(ctx, id)

	r.mu.Lock()
	r.reads++
	held := r.reads <= r.readers
	r.mu.Unlock()

	if held {
		r.arrived.Done()
		r.arrived.Wait()
	}
	return row, err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func str(v string) *string {
	return &v
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

var _ = Describe("ExpenseService", func() {
	var (
		ctx       context.Context
		repo      *mockExpenseRepository
		publisher *recordingPublisher
		service   *expense.Service
		clock     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockExpenseRepository()
		publisher = &recordingPublisher{}
		clock = time.Date(2024, time.June, 15, 10, 30, 0, 123456789, time.UTC)
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = expense.NewService(repo, logger,
			expense.WithClock(func() time.Time { return clock }),
			expense.WithPublisher(publisher),
		)
	})

	Describe("CreateExpense", func() {
		It("stores a normalized record and announces it", func() {
			created, err := service.CreateExpense(ctx, expense.CreateExpenseDTO{
				Title:       str("  Lunch  "),
				Amount:      dec("100"),
				Category:    str("Food"),
				Description: str(" with team "),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(expense.IsValidID(created.ID)).To(BeTrue())
			Expect(created.Title).To(Equal("Lunch"))
			Expect(created.Description).To(Equal("with team"))
			Expect(created.CreatedAt).To(Equal(clock.Truncate(time.Millisecond)))
			Expect(created.UpdatedAt).To(Equal(created.CreatedAt))
			Expect(created.Date).To(Equal(created.CreatedAt))

			stored, err := repo.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Amount.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(publisher.types()).To(Equal([]string{events.EventTypeExpenseCreated}))
		})

		It("defaults the category to Other", func() {
			created, err := service.CreateExpense(ctx, expense.CreateExpenseDTO{Title: str("Misc"), Amount: dec("1")})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Category).To(Equal("Other"))
		})

		It("keeps an explicit date", func() {
			created, err := service.CreateExpense(ctx, expense.CreateExpenseDTO{Title: str("Misc"), Amount: dec("1"), Date: str("2024-01-31")})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Date).To(Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
		})

		It("reports every invalid field and writes nothing", func() {
			_, err := service.CreateExpense(ctx, expense.CreateExpenseDTO{Title: str("Missing Fields"), Category: str("Snacks")})
			Expect(internal.IsValidationError(err)).To(BeTrue())

			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Messages()).To(ConsistOf(expense.MsgAmountRequired, expense.MsgCategoryInvalid))
			Expect(repo.rows).To(BeEmpty())
			Expect(publisher.types()).To(BeEmpty())
		})

		It("hides store failures behind a generic error", func() {
			repo.createError = errors.New("disk full")
			_, err := service.CreateExpense(ctx, expense.CreateExpenseDTO{Title: str("Lunch"), Amount: dec("1")})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
			Expect(appErr.Message).To(Equal(internal.GenericServerMessage))
			Expect(errors.Unwrap(appErr)).To(MatchError("disk full"))
			Expect(publisher.types()).To(BeEmpty())
		})
	})

	Describe("ListExpenses", func() {
		BeforeEach(func() {
			for _, d := range []expense.CreateExpenseDTO{
				{Title: str("Lunch"), Amount: dec("100"), Category: str("Food"), Date: str("2024-01-10")},
				{Title: str("Bus"), Amount: dec("50"), Category: str("Transportation"), Date: str("2024-02-10")},
				{Title: str("Dinner"), Amount: dec("25.50"), Category: str("Food"), Date: str("2024-03-10")},
			} {
				_, err := service.CreateExpense(ctx, d)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("returns every record with count and total, newest first", func() {
			list, err := service.ListExpenses(ctx, expense.RawListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(Equal(3))
			Expect(list.Total.String()).To(Equal("175.5"))
			Expect(list.Data[0].Title).To(Equal("Dinner"))
			Expect(repo.lastSort).To(Equal(expense.DefaultSort))
		})

		It("sums only the filtered set", func() {
			list, err := service.ListExpenses(ctx, expense.RawListQuery{Category: "Food", EndDate: "2024-02-01"})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(Equal(1))
			Expect(list.Total.String()).To(Equal("100"))
		})

		It("returns an empty listing for an unknown category", func() {
			list, err := service.ListExpenses(ctx, expense.RawListQuery{Category: "Snacks"})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(BeZero())
			Expect(list.Total.IsZero()).To(BeTrue())
		})

		It("passes the parsed sort to the store", func() {
			_, err := service.ListExpenses(ctx, expense.RawListQuery{Sort: "amount:desc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastSort).To(Equal(expense.Sort{Field: expense.SortByAmount, Desc: true}))
		})

		It("rejects malformed parameters before querying", func() {
			_, err := service.ListExpenses(ctx, expense.RawListQuery{StartDate: "yesterday", Sort: "price"})
			Expect(internal.IsValidationError(err)).To(BeTrue())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Messages()).To(HaveLen(2))
		})

		It("maps store failures to a server error", func() {
			repo.findError = errors.New("connection reset")
			_, err := service.ListExpenses(ctx, expense.RawListQuery{})
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})

	Describe("GetExpense", func() {
		It("treats unknown and malformed ids as not found", func() {
			_, err := service.GetExpense(ctx, expense.NewID())
			Expect(errors.Is(err, internal.ErrExpenseNotFound)).To(BeTrue())

			_, err = service.GetExpense(ctx, "not-an-id")
			Expect(errors.Is(err, internal.ErrExpenseNotFound)).To(BeTrue())
			Expect(err.Error()).To(Equal("Expense not found"))
		})
	})

	Describe("UpdateExpense", func() {
		var created *expense.Expense

		BeforeEach(func() {
			var err error
			created, err = service.CreateExpense(ctx, expense.CreateExpenseDTO{
				Title: str("Cinema"), Amount: dec("12"), Category: str("Entertainment"), Description: str("late show"),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("changes only the supplied fields", func() {
			updated, err := service.UpdateExpense(ctx, created.ID, expense.UpdateExpenseDTO{Amount: dec("15")})
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Amount.String()).To(Equal("15"))
			Expect(updated.Title).To(Equal("Cinema"))
			Expect(updated.Description).To(Equal("late show"))
			Expect(updated.Date).To(Equal(created.Date))
			Expect(updated.CreatedAt).To(Equal(created.CreatedAt))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeExpenseCreated, events.EventTypeExpenseUpdated}))
		})

		It("moves updatedAt forward even when the clock has not", func() {
			updated, err := service.UpdateExpense(ctx, created.ID, expense.UpdateExpenseDTO{Title: str("Cinema 2")})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.UpdatedAt.After(created.UpdatedAt)).To(BeTrue())
		})

		It("validates the merged record", func() {
			_, err := service.UpdateExpense(ctx, created.ID, expense.UpdateExpenseDTO{Amount: dec("-1")})
			Expect(internal.IsValidationError(err)).To(BeTrue())

			stored, _ := repo.GetByID(ctx, created.ID)
			Expect(stored.Amount.String()).To(Equal("12"))
		})

		It("reports a missing record", func() {
			_, err := service.UpdateExpense(ctx, expense.NewID(), expense.UpdateExpenseDTO{Title: str("x")})
			Expect(internal.IsNotFoundError(err)).To(BeTrue())
		})

		It("keeps both changes when two updates overlap", func() {
			lockstep := newLockstepRepository(repo, 2)
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
			racing := expense.NewService(lockstep, logger, expense.WithClock(func() time.Time { return clock }))

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, dto := range []expense.UpdateExpenseDTO{{Title: str("Dinner")}, {Amount: dec("250")}} {
				wg.Add(1)
				go func(i int, dto expense.UpdateExpenseDTO) {
					defer wg.Done()
					_, errs[i] = racing.UpdateExpense(ctx, created.ID, dto)
				}(i, dto)
			}
			wg.Wait()

			Expect(errs[0]).NotTo(HaveOccurred())
			Expect(errs[1]).NotTo(HaveOccurred())

			stored, err := repo.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Title).To(Equal("Dinner"))
			Expect(stored.Amount.String()).To(Equal("250"))
			Expect(stored.Description).To(Equal("late show"))
			Expect(stored.UpdatedAt.After(created.UpdatedAt)).To(BeTrue())
		})

		It("gives up after repeated conflicts", func() {
			repo.updateError = expense.ErrStoreConflict
			_, err := service.UpdateExpense(ctx, created.ID, expense.UpdateExpenseDTO{Title: str("x")})
			Expect(err).To(HaveOccurred())
			Expect(internal.IsNotFoundError(err)).To(BeFalse())
			Expect(errors.Is(err, expense.ErrStoreConflict)).To(BeTrue())

			stored, _ := repo.GetByID(ctx, created.ID)
			Expect(stored.Title).To(Equal("Cinema"))
		})

		It("reports a record deleted between read and write", func() {
			repo.updateError = expense.ErrStoreNotFound
			_, err := service.UpdateExpense(ctx, created.ID, expense.UpdateExpenseDTO{Title: str("x")})
			Expect(internal.IsNotFoundError(err)).To(BeTrue())
		})
	})

	Describe("DeleteExpense", func() {
		It("removes the record once", func() {
			created, err := service.CreateExpense(ctx, expense.CreateExpenseDTO{Title: str("Taxi"), Amount: dec("20")})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteExpense(ctx, created.ID)).To(Succeed())
			Expect(internal.IsNotFoundError(service.DeleteExpense(ctx, created.ID))).To(BeTrue())
			Expect(publisher.types()).To(Equal([]string{events.EventTypeExpenseCreated, events.EventTypeExpenseDeleted}))
		})
	})

	Describe("GetStatistics", func() {
		It("returns zero and empty groups for an empty store", func() {
			stats, err := service.GetStatistics(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total.IsZero()).To(BeTrue())
			Expect(stats.ByCategory).NotTo(BeNil())
			Expect(stats.ByCategory).To(BeEmpty())
			Expect(stats.ByMonth).NotTo(BeNil())
		})

		It("groups by category and by month of the current year", func() {
			for _, d := range []expense.CreateExpenseDTO{
				{Title: str("Lunch"), Amount: dec("100"), Category: str("Food"), Date: str("2024-01-10")},
				{Title: str("Bus"), Amount: dec("50"), Category: str("Transportation"), Date: str("2024-01-20")},
				{Title: str("Old"), Amount: dec("5"), Category: str("Food"), Date: str("2023-12-31")},
			} {
				_, err := service.CreateExpense(ctx, d)
				Expect(err).NotTo(HaveOccurred())
			}

			stats, err := service.GetStatistics(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total.String()).To(Equal("155"))
			Expect(stats.ByCategory).To(HaveLen(2))
			Expect(stats.ByCategory[0].Category).To(Equal("Food"))
			Expect(stats.ByCategory[0].Total.String()).To(Equal("105"))
			Expect(stats.ByMonth).To(HaveLen(1))
			Expect(stats.ByMonth[0].Month).To(Equal(1))
			Expect(stats.ByMonth[0].Total.String()).To(Equal("150"))
		})

		It("fails as a whole when one aggregate fails", func() {
			repo.totalError = errors.New("timeout")
			_, err := service.GetStatistics(ctx)
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(500))
		})
	})
})

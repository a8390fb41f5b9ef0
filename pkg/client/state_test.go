package client_test

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/pkg/client"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

type fakeAPI struct {
	expenses  []*expense.Expense
	listErr   error
	createErr error
	lastQuery expense.RawListQuery
	listCalls int
	statCalls int
	// block, when set, holds ListExpenses until it is closed
	block chan struct{}
}

func (f *fakeAPI) ListExpenses(_ context.Context, q expense.RawListQuery) (*expense.ExpenseList, error) {
	if f.block != nil {
		<-f.block
	}
	f.listCalls++
	f.lastQuery = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	total := decimal.Zero
	for _, e := range f.expenses {
		total = total.Add(e.Amount)
	}
	return &expense.ExpenseList{Count: len(f.expenses), Total: total, Data: f.expenses}, nil
}

func (f *fakeAPI) CreateExpense(_ context.Context, dto expense.CreateExpenseDTO) (*expense.Expense, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	e := &expense.Expense{ID: expense.NewID(), Title: *dto.Title, Amount: *dto.Amount}
	f.expenses = append(f.expenses, e)
	return e, nil
}

func (f *fakeAPI) UpdateExpense(_ context.Context, id string, dto expense.UpdateExpenseDTO) (*expense.Expense, error) {
	for _, e := range f.expenses {
		if e.ID == id {
			if dto.Title != nil {
				e.Title = *dto.Title
			}
			return e, nil
		}
	}
	return nil, &client.APIError{StatusCode: 404, Messages: []string{"Expense not found"}}
}

func (f *fakeAPI) DeleteExpense(_ context.Context, id string) error {
	for i, e := range f.expenses {
		if e.ID == id {
			f.expenses = append(f.expenses[:i], f.expenses[i+1:]...)
			return nil
		}
	}
	return &client.APIError{StatusCode: 404, Messages: []string{"Expense not found"}}
}

func (f *fakeAPI) GetStatistics(context.Context) (*expense.Statistics, error) {
	f.statCalls++
	total := decimal.Zero
	for _, e := range f.expenses {
		total = total.Add(e.Amount)
	}
	return &expense.Statistics{Total: total, ByCategory: []expense.CategoryTotal{}, ByMonth: []expense.MonthTotal{}}, nil
}

func seeded(n int) []*expense.Expense {
	out := make([]*expense.Expense, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &expense.Expense{ID: expense.NewID(), Amount: decimal.NewFromInt(int64(i + 1))})
	}
	return out
}

var _ = Describe("State", func() {
	var (
		ctx context.Context
		api *fakeAPI
		st  *client.State
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = &fakeAPI{}
		st = client.NewState(api)
	})

	It("loads the listing and remembers the query", func() {
		api.expenses = seeded(3)
		query := expense.RawListQuery{Category: "Food", Sort: "amount:desc"}

		Expect(st.Refresh(ctx, query)).To(Succeed())

		view := st.List()
		Expect(view.Count).To(Equal(3))
		Expect(view.Total.Equal(decimal.NewFromInt(6))).To(BeTrue())
		Expect(view.Query).To(Equal(query))
		Expect(view.Loading).To(BeFalse())
	})

	It("keeps the previous records when a reload fails", func() {
		api.expenses = seeded(2)
		Expect(st.Refresh(ctx, expense.RawListQuery{})).To(Succeed())

		api.listErr = errors.New("offline")
		Expect(st.Refresh(ctx, expense.RawListQuery{})).To(MatchError("offline"))

		view := st.List()
		Expect(view.Expenses).To(HaveLen(2))
		Expect(view.Err).To(MatchError("offline"))
	})

	It("refuses a second listing request while one is in flight", func() {
		api.block = make(chan struct{})
		done := make(chan error)
		go func() {
			done <- st.Refresh(ctx, expense.RawListQuery{})
		}()

		Eventually(func() bool { return st.List().Loading }).Should(BeTrue())
		Expect(st.Refresh(ctx, expense.RawListQuery{})).To(MatchError(client.ErrBusy))

		close(api.block)
		Eventually(done).Should(Receive(BeNil()))
		Expect(st.List().Loading).To(BeFalse())
	})

	It("reloads both views after a write with the remembered query", func() {
		query := expense.RawListQuery{Sort: "title"}
		Expect(st.Refresh(ctx, query)).To(Succeed())

		_, err := st.Add(ctx, expense.CreateExpenseDTO{Title: ptr("Lunch"), Amount: amount(100)})
		Expect(err).NotTo(HaveOccurred())

		Expect(api.lastQuery).To(Equal(query))
		Expect(st.List().Count).To(Equal(1))
		Expect(st.Stats().Stats.Total.Equal(decimal.NewFromInt(100))).To(BeTrue())
	})

	It("edits and removes through the API", func() {
		added, err := st.Add(ctx, expense.CreateExpenseDTO{Title: ptr("Lunch"), Amount: amount(10)})
		Expect(err).NotTo(HaveOccurred())

		edited, err := st.Edit(ctx, added.ID, expense.UpdateExpenseDTO{Title: ptr("Dinner")})
		Expect(err).NotTo(HaveOccurred())
		Expect(edited.Title).To(Equal("Dinner"))

		Expect(st.Remove(ctx, added.ID)).To(Succeed())
		Expect(st.List().Count).To(BeZero())
		Expect(client.IsNotFound(st.Remove(ctx, added.ID))).To(BeTrue())
	})

	It("does not reload after a failed write", func() {
		api.createErr = &client.APIError{StatusCode: 400, Messages: []string{expense.MsgAmountRequired}}
		_, err := st.Add(ctx, expense.CreateExpenseDTO{Title: ptr("x")})
		Expect(client.IsValidation(err)).To(BeTrue())
		Expect(api.listCalls).To(BeZero())
		Expect(api.statCalls).To(BeZero())
	})

	It("pages the loaded listing", func() {
		api.expenses = seeded(25)
		Expect(st.Refresh(ctx, expense.RawListQuery{})).To(Succeed())

		items, pages := st.Page(3, 10)
		Expect(pages).To(Equal(3))
		Expect(items).To(HaveLen(5))

		items, _ = st.Page(4, 10)
		Expect(items).To(BeEmpty())

		items, pages = st.Page(1, 0)
		Expect(items).To(HaveLen(10))
		Expect(pages).To(Equal(3))
	})
})

package expense_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-tracker/internal/expense"
)

var _ = Describe("aggregates", func() {
	at := func(y int, m time.Month, d int, category, amount string) *expense.Expense {
		return &expense.Expense{
			Category: category,
			Amount:   decimal.RequireFromString(amount),
			Date:     time.Date(y, m, d, 12, 0, 0, 0, time.UTC),
		}
	}

	items := []*expense.Expense{
		at(2024, time.January, 5, "Food", "10"),
		at(2024, time.January, 20, "Travel", "30"),
		at(2024, time.March, 1, "Food", "20"),
		at(2024, time.December, 31, "Gifts", "30"),
		at(2023, time.December, 31, "Food", "99"),
	}

	It("sums everything", func() {
		Expect(expense.Sum(items).String()).To(Equal("189"))
		Expect(expense.Sum(nil).IsZero()).To(BeTrue())
	})

	It("orders categories by total then name", func() {
		totals := expense.SummarizeByCategory(items)
		Expect(totals).To(HaveLen(3))
		Expect(totals[0].Category).To(Equal("Food"))
		Expect(totals[0].Total.String()).To(Equal("129"))
		Expect(totals[1].Category).To(Equal("Gifts"))
		Expect(totals[2].Category).To(Equal("Travel"))
	})

	It("groups the requested year by month", func() {
		months := expense.SummarizeByMonth(items, 2024)
		Expect(months).To(HaveLen(3))
		Expect(months[0].Month).To(Equal(1))
		Expect(months[0].Total.String()).To(Equal("40"))
		Expect(months[2].Month).To(Equal(12))
	})

	It("buckets by calendar month across years", func() {
		groups := expense.SummarizeByYearMonth(items)
		keys := []string{}
		for _, g := range groups {
			keys = append(keys, g.Key)
		}
		Expect(keys).To(Equal([]string{"2023-12", "2024-01", "2024-03", "2024-12"}))
	})
})

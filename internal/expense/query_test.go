package expense_test

import (
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-tracker/internal/expense"
)

var _ = Describe("ParseSort", func() {
	DescribeTable("accepted forms",
		func(raw string, expected expense.Sort) {
			s, err := expense.ParseSort(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal(expected))
		},
		Entry("empty means newest date first", "", expense.DefaultSort),
		Entry("field alone is ascending", "amount", expense.Sort{Field: expense.SortByAmount}),
		Entry("explicit ascending", "title:asc", expense.Sort{Field: expense.SortByTitle}),
		Entry("descending", "createdAt:desc", expense.Sort{Field: expense.SortByCreatedAt, Desc: true}),
		Entry("direction is case insensitive", "date:DESC", expense.Sort{Field: expense.SortByDate, Desc: true}),
	)

	DescribeTable("rejected forms",
		func(raw string) {
			_, err := expense.ParseSort(raw)
			Expect(err).To(HaveOccurred())
		},
		Entry("unknown field", "price"),
		Entry("unknown direction", "date:sideways"),
		Entry("column name instead of field", "expense_date"),
	)
})

var _ = Describe("ParseDate", func() {
	It("reads calendar dates as midnight UTC", func() {
		t, err := expense.ParseDate("2024-02-29")
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	})

	It("converts RFC 3339 instants to UTC", func() {
		t, err := expense.ParseDate("2024-03-01T01:30:00+02:00")
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC)))
	})

	It("rejects anything else", func() {
		_, err := expense.ParseDate("02/29/2024")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("RawListQuery", func() {
	It("round trips through URL values", func() {
		q := expense.RawListQuery{Category: "Food", StartDate: "2024-01-01", Sort: "amount:desc"}
		values := q.Values()
		Expect(values).NotTo(HaveKey("endDate"))
		Expect(expense.RawListQueryFromValues(values)).To(Equal(q))
	})

	It("parses bounds and sort", func() {
		values := url.Values{}
		values.Set("category", " Food ")
		values.Set("startDate", "2024-01-01")
		values.Set("endDate", "2024-01-31")

		filter, sort, err := expense.RawListQueryFromValues(values).Parse()
		Expect(err).To(BeNil())
		Expect(filter.Category).To(Equal("Food"))
		Expect(*filter.Start).To(Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		Expect(*filter.End).To(Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
		Expect(sort).To(Equal(expense.DefaultSort))
	})

	It("reports every malformed parameter", func() {
		_, _, err := expense.RawListQuery{StartDate: "x", EndDate: "y", Sort: "z"}.Parse()
		Expect(err).NotTo(BeNil())
		Expect(err.Messages()).To(HaveLen(3))
	})
})

var _ = Describe("Filter", func() {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	It("treats bounds as inclusive instants", func() {
		start, end := day(10), day(20)
		f := expense.Filter{Start: &start, End: &end}

		Expect(f.Matches(&expense.Expense{Date: day(10)})).To(BeTrue())
		Expect(f.Matches(&expense.Expense{Date: day(20)})).To(BeTrue())
		Expect(f.Matches(&expense.Expense{Date: day(20).Add(time.Hour)})).To(BeFalse())
		Expect(f.Matches(&expense.Expense{Date: day(9)})).To(BeFalse())
	})

	It("applies one bound without the other", func() {
		end := day(5)
		f := expense.Filter{End: &end, Category: "Food"}
		Expect(f.Matches(&expense.Expense{Date: day(1), Category: "Food"})).To(BeTrue())
		Expect(f.Matches(&expense.Expense{Date: day(1), Category: "Travel"})).To(BeFalse())
	})
})

var _ = Describe("YearRange", func() {
	It("is half open and covers the whole of December 31", func() {
		start, end := expense.YearRange(2024)
		Expect(start).To(Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		Expect(end).To(Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	})
})

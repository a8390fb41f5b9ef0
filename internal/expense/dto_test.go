package expense_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-tracker/internal/expense"
)

var _ = Describe("CreateExpenseDTO", func() {
	valid := func() expense.CreateExpenseDTO {
		return expense.CreateExpenseDTO{Title: str("Lunch"), Amount: dec("10")}
	}

	It("accepts the limits exactly", func() {
		dto := valid()
		dto.Title = str(strings.Repeat("é", expense.TitleMaxLength))
		dto.Description = str(strings.Repeat("d", expense.DescriptionMaxLength))
		dto.Amount = dec("0")
		Expect(dto.Validate()).To(BeNil())
	})

	It("rejects values past the limits", func() {
		dto := valid()
		dto.Title = str(strings.Repeat("t", expense.TitleMaxLength+1))
		dto.Description = str(strings.Repeat("d", expense.DescriptionMaxLength+1))

		err := dto.Validate()
		Expect(err).NotTo(BeNil())
		Expect(err.Messages()).To(Equal([]string{expense.MsgTitleTooLong, expense.MsgDescriptionTooLong}))
	})

	It("treats a blank title as missing", func() {
		dto := valid()
		dto.Title = str("   ")
		Expect(dto.Validate().Messages()).To(Equal([]string{expense.MsgTitleRequired}))
	})

	It("rejects an empty category but defaults a null one", func() {
		dto := valid()
		dto.Category = str("")
		Expect(dto.Validate().Messages()).To(Equal([]string{expense.MsgCategoryInvalid}))

		var fromJSON expense.CreateExpenseDTO
		Expect(json.Unmarshal([]byte(`{"title":"Lunch","amount":1,"category":null}`), &fromJSON)).To(Succeed())
		draft, err := fromJSON.ToDraft()
		Expect(err).To(BeNil())
		Expect(draft.Category).To(Equal("Other"))
	})

	It("rejects unparseable dates", func() {
		dto := valid()
		dto.Date = str("soon")
		Expect(dto.Validate().Messages()).To(Equal([]string{expense.MsgDateInvalid}))
	})

	It("keeps amounts exact", func() {
		var dto expense.CreateExpenseDTO
		Expect(json.Unmarshal([]byte(`{"title":"Lunch","amount":0.1}`), &dto)).To(Succeed())
		draft, err := dto.ToDraft()
		Expect(err).To(BeNil())
		Expect(draft.Amount.Add(decimal.RequireFromString("0.2")).String()).To(Equal("0.3"))
	})
})

var _ = Describe("UpdateExpenseDTO", func() {
	It("overlays only the supplied fields", func() {
		current := &expense.Expense{
			Title:       "Cinema",
			Amount:      decimal.NewFromInt(12),
			Category:    "Entertainment",
			Date:        time.Date(2024, 4, 1, 18, 30, 0, 500000000, time.UTC),
			Description: "late show",
		}

		merged := expense.UpdateExpenseDTO{Amount: dec("15")}.MergeInto(current)
		draft, err := merged.ToDraft()
		Expect(err).To(BeNil())
		Expect(draft.Title).To(Equal("Cinema"))
		Expect(draft.Amount.String()).To(Equal("15"))
		Expect(draft.Category).To(Equal("Entertainment"))
		Expect(*draft.Date).To(Equal(current.Date))
		Expect(draft.Description).To(Equal("late show"))
	})

	It("knows when nothing was supplied", func() {
		Expect(expense.UpdateExpenseDTO{}.IsEmpty()).To(BeTrue())
		Expect(expense.UpdateExpenseDTO{Title: str("x")}.IsEmpty()).To(BeFalse())
	})
})

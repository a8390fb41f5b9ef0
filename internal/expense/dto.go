package expense

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/category"
	"github.com/frahmantamala/expense-tracker/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const (
	TitleMaxLength       = 100
	DescriptionMaxLength = 500
)

const (
	MsgTitleRequired       = "Please provide a title"
	MsgTitleTooLong        = "Title cannot be more than 100 characters"
	MsgAmountRequired      = "Please provide an amount"
	MsgAmountNegative      = "Amount cannot be negative"
	MsgCategoryInvalid     = "Please select a valid category"
	MsgDateInvalid         = "Please provide a valid date"
	MsgDescriptionTooLong  = "Description cannot be more than 500 characters"
	MsgMalformedBody       = "Invalid request body"
	MsgInvalidExportFormat = "Export format must be one of: xlsx, pdf"
)

// CreateExpenseDTO is the inbound draft. Every field is a pointer so an absent
// key can be told apart from a zero value.
type CreateExpenseDTO struct {
	Title       *string          `json:"title"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	Date        *string          `json:"date"`
	Description *string          `json:"description"`
}

// UpdateExpenseDTO carries only the fields being changed.
type UpdateExpenseDTO struct {
	Title       *string          `json:"title"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	Date        *string          `json:"date"`
	Description *string          `json:"description"`
}

// Draft is a validated, normalized CreateExpenseDTO.
type Draft struct {
	Title       string
	Amount      decimal.Decimal
	Category    string
	Date        *time.Time
	Description string
}

func (dto UpdateExpenseDTO) IsEmpty() bool {
	return dto.Title == nil && dto.Amount == nil && dto.Category == nil && dto.Date == nil && dto.Description == nil
}

// Validate checks the draft against the record constraints and reports one
// message per violated field.
func (dto CreateExpenseDTO) Validate() *errors.AppError {
	v := validation.NewValidator()

	v.Field("title", dto.Title).
		Required(MsgTitleRequired, errors.ErrCodeInvalidTitle).
		Custom(func(value interface{}) *errors.AppError {
			if dto.Title != nil && len([]rune(strings.TrimSpace(*dto.Title))) > TitleMaxLength {
				return errors.NewValidationFieldError("title", MsgTitleTooLong, errors.ErrCodeInvalidTitle)
			}
			return nil
		})

	v.Field("amount", dto.Amount).
		Required(MsgAmountRequired, errors.ErrCodeInvalidAmount).
		NonNegative(MsgAmountNegative, errors.ErrCodeInvalidAmount)

	v.Field("category", dto.Category).
		OneOf(category.Names(), MsgCategoryInvalid, errors.ErrCodeInvalidCategory)

	v.Field("date", dto.Date).
		Custom(func(value interface{}) *errors.AppError {
			if dto.Date == nil {
				return nil
			}
			if _, err := ParseDate(*dto.Date); err != nil {
				return errors.NewValidationFieldError("date", MsgDateInvalid, errors.ErrCodeInvalidDate)
			}
			return nil
		})

	v.Field("description", dto.Description).
		Custom(func(value interface{}) *errors.AppError {
			if dto.Description != nil && len([]rune(strings.TrimSpace(*dto.Description))) > DescriptionMaxLength {
				return errors.NewValidationFieldError("description", MsgDescriptionTooLong, errors.ErrCodeInvalidDescription)
			}
			return nil
		})

	return v.Validate()
}

// ToDraft validates and normalizes the DTO.
func (dto CreateExpenseDTO) ToDraft() (Draft, *errors.AppError) {
	if err := dto.Validate(); err != nil {
		return Draft{}, err
	}

	draft := Draft{
		Title:    strings.TrimSpace(*dto.Title),
		Amount:   *dto.Amount,
		Category: string(category.Default),
	}
	if dto.Category != nil {
		draft.Category = *dto.Category
	}
	if dto.Description != nil {
		draft.Description = strings.TrimSpace(*dto.Description)
	}
	if dto.Date != nil {
		date, _ := ParseDate(*dto.Date)
		draft.Date = &date
	}
	return draft, nil
}

// MergeInto overlays the supplied fields on the current record and returns
// the full candidate that must pass validation before anything is written.
func (dto UpdateExpenseDTO) MergeInto(current *Expense) CreateExpenseDTO {
	title := current.Title
	amount := current.Amount
	cat := current.Category
	date := current.Date.Format(time.RFC3339Nano)
	description := current.Description

	merged := CreateExpenseDTO{
		Title:       &title,
		Amount:      &amount,
		Category:    &cat,
		Date:        &date,
		Description: &description,
	}
	if dto.Title != nil {
		merged.Title = dto.Title
	}
	if dto.Amount != nil {
		merged.Amount = dto.Amount
	}
	if dto.Category != nil {
		merged.Category = dto.Category
	}
	if dto.Date != nil {
		merged.Date = dto.Date
	}
	if dto.Description != nil {
		merged.Description = dto.Description
	}
	return merged
}

// ExpenseList is the listing payload: the matching records plus their count
// and the sum of their amounts.
type ExpenseList struct {
	Count int
	Total decimal.Decimal
	Data  []*Expense
}

type CategoryTotal struct {
	Category string          `json:"_id"`
	Total    decimal.Decimal `json:"total"`
}

type MonthTotal struct {
	Month int             `json:"_id"`
	Total decimal.Decimal `json:"total"`
}

type Statistics struct {
	Total      decimal.Decimal `json:"total"`
	ByCategory []CategoryTotal `json:"byCategory"`
	ByMonth    []MonthTotal    `json:"byMonth"`
}

type ListResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Data    []*Expense      `json:"data"`
}

type ExpenseResponse struct {
	Success bool     `json:"success"`
	Data    *Expense `json:"data"`
}

type StatisticsResponse struct {
	Success bool        `json:"success"`
	Data    *Statistics `json:"data"`
}

type DeleteResponse struct {
	Success bool     `json:"success"`
	Data    struct{} `json:"data"`
}

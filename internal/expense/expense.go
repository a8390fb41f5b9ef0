package expense

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

type Expense struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TimestampPrecision is the finest resolution every backend keeps.
const TimestampPrecision = time.Millisecond

func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampPrecision)
}

// NewID returns a fresh random identifier. Random v4 ids are never reused.
func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether id is spelled exactly as NewID spells
// identifiers: hyphenated lower-case hex. Other spellings of the same UUID
// never resolve to a record.
func IsValidID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

func NewExpense(draft Draft, now time.Time) *Expense {
	now = NormalizeTime(now)
	date := now
	if draft.Date != nil {
		date = NormalizeTime(*draft.Date)
	}

	return &Expense{
		ID:          NewID(),
		Title:       draft.Title,
		Amount:      draft.Amount,
		Category:    draft.Category,
		Date:        date,
		Description: draft.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Touch advances UpdatedAt to now, or one tick past its previous value when
// the clock has not moved far enough.
func (e *Expense) Touch(now time.Time) {
	next := NormalizeTime(now)
	if !next.After(e.UpdatedAt) {
		next = e.UpdatedAt.Add(TimestampPrecision)
	}
	e.UpdatedAt = next
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      e.Amount,
		Category:    e.Category,
		ExpenseDate: e.Date,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.ExpenseDate.UTC(),
		Description: e.Description,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func FromDataModelSlice(expenses []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i, e := range expenses {
		result[i] = FromDataModel(e)
	}
	return result
}

package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is the persisted row. Timestamps are owned by the service, so gorm
// must not overwrite them.
type Expense struct {
	ID          string          `gorm:"primaryKey;column:id"`
	Title       string          `gorm:"column:title;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric;not null"`
	Category    string          `gorm:"column:category;not null;default:Other"`
	ExpenseDate time.Time       `gorm:"column:expense_date;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Expense) TableName() string {
	return "expenses"
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExpenseRepository implements expense.RepositoryAPI on top of gorm. It
// serves both postgres and sqlite. sqlite stores amounts as decimal text, so
// its aggregates are summed in Go rather than in SQL.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.RepositoryAPI {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) isSQLite() bool {
	return r.db.Dialector.Name() == "sqlite"
}

func (r *ExpenseRepository) Create(ctx context.Context, exp *expenseDatamodel.Expense) error {
	return r.db.WithContext(ctx).Create(exp).Error
}

func (r *ExpenseRepository) FindMany(ctx context.Context, filter expense.Filter, sort expense.Sort) ([]*expenseDatamodel.Expense, error) {
	q := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{})

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Start != nil {
		q = q.Where("expense_date >= ?", *filter.Start)
	}
	if filter.End != nil {
		q = q.Where("expense_date <= ?", *filter.End)
	}

	column := sort.Field.Column()
	if column == "" {
		column = expense.DefaultSort.Field.Column()
	}
	if column == "amount" && r.isSQLite() {
		// sqlite keeps amounts as text
		q = q.Order(clause.OrderBy{Expression: clause.Expr{SQL: "CAST(amount AS REAL) " + direction(sort.Desc)}})
	} else {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: sort.Desc})
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: sort.Desc})

	expenses := make([]*expenseDatamodel.Expense, 0)
	if err := q.Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expenseDatamodel.Expense, error) {
	if !expense.IsValidID(id) {
		return nil, expense.ErrStoreNotFound
	}

	var exp expenseDatamodel.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrStoreNotFound
		}
		return nil, err
	}
	return &exp, nil
}

// Update writes every mutable column in one statement, guarded by the
// updated_at value the caller read. created_at is never touched.
func (r *ExpenseRepository) Update(ctx context.Context, exp *expenseDatamodel.Expense, previous time.Time) error {
	if !expense.IsValidID(exp.ID) {
		return expense.ErrStoreNotFound
	}

	db := r.db.WithContext(ctx)
	res := db.Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND updated_at = ?", exp.ID, previous).
		Updates(map[string]interface{}{
			"title":        exp.Title,
			"amount":       exp.Amount,
			"category":     exp.Category,
			"expense_date": exp.ExpenseDate,
			"description":  exp.Description,
			"updated_at":   exp.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&expenseDatamodel.Expense{}).Where("id = ?", exp.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return expense.ErrStoreNotFound
	}
	return expense.ErrStoreConflict
}

func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	if !expense.IsValidID(id) {
		return expense.ErrStoreNotFound
	}

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&expenseDatamodel.Expense{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return expense.ErrStoreNotFound
	}
	return nil
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// amountRows loads the columns the aggregates need so they can be summed
// exactly in Go. sqlite would sum its text amounts as float64.
func (r *ExpenseRepository) amountRows(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*expense.Expense, error) {
	rows := make([]*expenseDatamodel.Expense, 0)
	q := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{}).Select("category, amount, expense_date")
	if scope != nil {
		q = scope(q)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

type totalRow struct {
	Total decimal.Decimal
}

func (r *ExpenseRepository) Total(ctx context.Context) (decimal.Decimal, error) {
	if r.isSQLite() {
		rows, err := r.amountRows(ctx, nil)
		if err != nil {
			return decimal.Zero, err
		}
		return expense.Sum(rows), nil
	}

	var row totalRow
	err := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

type categoryRow struct {
	Category string
	Total    decimal.Decimal
}

func (r *ExpenseRepository) TotalByCategory(ctx context.Context) ([]expense.CategoryTotal, error) {
	if r.isSQLite() {
		rows, err := r.amountRows(ctx, nil)
		if err != nil {
			return nil, err
		}
		return expense.SummarizeByCategory(rows), nil
	}

	var rows []categoryRow
	err := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{}).
		Select("category, SUM(amount) AS total").
		Group("category").
		Order("total DESC").
		Order("category ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]expense.CategoryTotal, len(rows))
	for i, row := range rows {
		out[i] = expense.CategoryTotal{Category: row.Category, Total: row.Total}
	}
	return out, nil
}

type monthRow struct {
	Month int
	Total decimal.Decimal
}

func (r *ExpenseRepository) MonthlyTotals(ctx context.Context, year int) ([]expense.MonthTotal, error) {
	start, end := expense.YearRange(year)
	if r.isSQLite() {
		rows, err := r.amountRows(ctx, func(q *gorm.DB) *gorm.DB {
			return q.Where("expense_date >= ? AND expense_date < ?", start, end)
		})
		if err != nil {
			return nil, err
		}
		return expense.SummarizeByMonth(rows, year), nil
	}

	const month = "EXTRACT(MONTH FROM expense_date AT TIME ZONE 'UTC')::int"

	var rows []monthRow
	err := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{}).
		Select(fmt.Sprintf("%s AS month, SUM(amount) AS total", month)).
		Where("expense_date >= ? AND expense_date < ?", start, end).
		Group(month).
		Order("month ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]expense.MonthTotal, len(rows))
	for i, row := range rows {
		out[i] = expense.MonthTotal{Month: row.Month, Total: row.Total}
	}
	return out, nil
}

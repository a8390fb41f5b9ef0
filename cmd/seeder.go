package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type sampleExpense struct {
	Title       string
	Amount      string
	Category    string
	MonthsAgo   int
	Day         int
	Description string
}

var sampleExpenses = []sampleExpense{
	{"Groceries", "82.40", "Food", 0, 3, "weekly shop"},
	{"Lunch with team", "36.00", "Food", 0, 9, ""},
	{"Monthly bus pass", "55.00", "Transportation", 0, 1, ""},
	{"Electricity bill", "74.18", "Utilities", 1, 12, "two months"},
	{"Rent", "950.00", "Housing", 1, 1, ""},
	{"Concert tickets", "120.00", "Entertainment", 1, 20, ""},
	{"Running shoes", "89.99", "Shopping", 2, 14, ""},
	{"Dentist", "60.00", "Healthcare", 2, 7, "check-up"},
	{"Haircut", "25.00", "Personal", 3, 5, ""},
	{"Online course", "199.00", "Education", 3, 18, ""},
	{"Birthday present", "45.50", "Gifts", 4, 22, ""},
	{"Train to the coast", "64.30", "Travel", 4, 27, ""},
	{"Parking", "8.00", "Other", 5, 2, ""},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample expenses for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := setup()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		ctx := context.Background()
		deps, err := initializeDependencies(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.Close(ctx)

		svc := deps.ExpenseService

		if clearData {
			existing, err := svc.ListExpenses(ctx, expense.RawListQuery{})
			if err != nil {
				log.Fatalf("failed to list existing expenses: %v", err)
			}
			for _, e := range existing.Data {
				if err := svc.DeleteExpense(ctx, e.ID); err != nil {
					log.Fatalf("failed to delete expense %s: %v", e.ID, err)
				}
			}
			fmt.Printf("Cleared %d expenses\n", len(existing.Data))
		}

		now := time.Now().UTC()
		for _, s := range sampleExpenses {
			dto := sampleDTO(s, now)
			created, err := svc.CreateExpense(ctx, dto)
			if err != nil {
				log.Fatalf("failed to insert expense %q: %v", s.Title, err)
			}
			fmt.Printf("Seeded expense: %s (%s %s)\n", created.Title, created.Category, created.Amount)
		}

		fmt.Println("Expenses seeded successfully")
	},
}

// sampleDTO dates a sample relative to now, clamping the day to the
// length of its month.
func sampleDTO(s sampleExpense, now time.Time) expense.CreateExpenseDTO {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -s.MonthsAgo, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := s.Day
	if day > last {
		day = last
	}
	date := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")

	amount := decimal.RequireFromString(s.Amount)
	dto := expense.CreateExpenseDTO{
		Title:    &s.Title,
		Amount:   &amount,
		Category: &s.Category,
		Date:     &date,
	}
	if s.Description != "" {
		dto.Description = &s.Description
	}
	return dto
}

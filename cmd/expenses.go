package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/pkg/client"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var expensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "Work with expenses on a running server",
	Long:  `List, inspect, create, update and delete expenses through the HTTP API`,
}

var (
	apiBaseURL string

	listQuery    expense.RawListQuery
	listPage     int
	listPageSize int

	fieldTitle       string
	fieldAmount      string
	fieldCategory    string
	fieldDate        string
	fieldDescription string
)

func apiClient() *client.Client {
	return client.New(apiBaseURL)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var listExpensesCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		state := client.NewState(apiClient())
		if err := state.Refresh(ctx, listQuery); err != nil {
			return err
		}

		items, pages := state.Page(listPage, listPageSize)
		view := state.List()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tAMOUNT\tTITLE")
		for _, e := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date.Format("2006-01-02"), e.Category, e.Amount.StringFixed(2), e.Title)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\npage %d/%d, %d expenses, total %s\n", listPage, pages, view.Count, view.Total.StringFixed(2))
		return nil
	},
}

var getExpenseCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		e, err := apiClient().GetExpense(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(e)
	},
}

// fieldsFromFlags collects only the flags the user set, so an update never
// overwrites a field that was not mentioned.
func fieldsFromFlags(flags *pflag.FlagSet) (expense.UpdateExpenseDTO, error) {
	var dto expense.UpdateExpenseDTO
	if flags.Changed("title") {
		dto.Title = &fieldTitle
	}
	if flags.Changed("amount") {
		amount, err := decimal.NewFromString(fieldAmount)
		if err != nil {
			return dto, fmt.Errorf("invalid amount %q: %w", fieldAmount, err)
		}
		dto.Amount = &amount
	}
	if flags.Changed("category") {
		dto.Category = &fieldCategory
	}
	if flags.Changed("date") {
		dto.Date = &fieldDate
	}
	if flags.Changed("description") {
		dto.Description = &fieldDescription
	}
	return dto, nil
}

var addExpenseCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an expense",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := fieldsFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		created, err := apiClient().CreateExpense(ctx, expense.CreateExpenseDTO(fields))
		if err != nil {
			return err
		}
		return printJSON(created)
	},
}

var updateExpenseCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Change some fields of an expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := fieldsFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		if fields.IsEmpty() {
			return fmt.Errorf("nothing to update: set at least one of --title, --amount, --category, --date, --description")
		}

		ctx, cancel := commandContext()
		defer cancel()

		updated, err := apiClient().UpdateExpense(ctx, args[0], fields)
		if err != nil {
			return err
		}
		return printJSON(updated)
	},
}

var deleteExpenseCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		if err := apiClient().DeleteExpense(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

var statsExpensesCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals by category and by month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		state := client.NewState(apiClient())
		if err := state.RefreshStats(ctx); err != nil {
			return err
		}
		return printJSON(state.Stats().Stats)
	},
}

func addFieldFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fieldTitle, "title", "", "expense title")
	cmd.Flags().StringVar(&fieldAmount, "amount", "", "expense amount")
	cmd.Flags().StringVar(&fieldCategory, "category", "", "expense category")
	cmd.Flags().StringVar(&fieldDate, "date", "", "expense date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&fieldDescription, "description", "", "free text description")
}

func init() {
	defaultURL := os.Getenv("EXPENSE_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:5000"
	}
	expensesCmd.PersistentFlags().StringVar(&apiBaseURL, "server", defaultURL, "base URL of the expense tracker server")

	listExpensesCmd.Flags().StringVar(&listQuery.Category, "category", "", "only this category")
	listExpensesCmd.Flags().StringVar(&listQuery.StartDate, "start", "", "earliest date, inclusive")
	listExpensesCmd.Flags().StringVar(&listQuery.EndDate, "end", "", "latest date, inclusive")
	listExpensesCmd.Flags().StringVar(&listQuery.Sort, "sort", "", "field[:asc|desc]")
	listExpensesCmd.Flags().IntVar(&listPage, "page", 1, "page to show")
	listExpensesCmd.Flags().IntVar(&listPageSize, "page-size", 20, "expenses per page")

	addFieldFlags(addExpenseCmd)
	addFieldFlags(updateExpenseCmd)

	expensesCmd.AddCommand(listExpensesCmd, getExpenseCmd, addExpenseCmd, updateExpenseCmd, deleteExpenseCmd, statsExpensesCmd)
	rootCmd.AddCommand(expensesCmd)
}

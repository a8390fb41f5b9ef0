// Package mongo stores expenses as documents in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type document struct {
	ID          string               `bson:"_id"`
	Title       string               `bson:"title"`
	Amount      primitive.Decimal128 `bson:"amount"`
	Category    string               `bson:"category"`
	Date        time.Time            `bson:"date"`
	Description string               `bson:"description"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

var sortKeys = map[expense.SortField]string{
	expense.SortByDate:      "date",
	expense.SortByAmount:    "amount",
	expense.SortByTitle:     "title",
	expense.SortByCategory:  "category",
	expense.SortByCreatedAt: "createdAt",
	expense.SortByUpdatedAt: "updatedAt",
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}

func toDocument(e *expenseDatamodel.Expense) (*document, error) {
	amount, err := toDecimal128(e.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount %s: %w", e.Amount, err)
	}
	return &document{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      amount,
		Category:    e.Category,
		Date:        e.ExpenseDate,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}, nil
}

func (d *document) toDataModel() (*expenseDatamodel.Expense, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount of %s: %w", d.ID, err)
	}
	return &expenseDatamodel.Expense{
		ID:          d.ID,
		Title:       d.Title,
		Amount:      amount,
		Category:    d.Category,
		ExpenseDate: d.Date.UTC(),
		Description: d.Description,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

// filterDocument translates the listing filter into a query document.
func filterDocument(f expense.Filter) bson.D {
	filter := bson.D{}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	if f.Start != nil || f.End != nil {
		bounds := bson.D{}
		if f.Start != nil {
			bounds = append(bounds, bson.E{Key: "$gte", Value: *f.Start})
		}
		if f.End != nil {
			bounds = append(bounds, bson.E{Key: "$lte", Value: *f.End})
		}
		filter = append(filter, bson.E{Key: "date", Value: bounds})
	}
	return filter
}

func sortDocument(s expense.Sort) bson.D {
	key, ok := sortKeys[s.Field]
	if !ok {
		key = sortKeys[expense.DefaultSort.Field]
	}
	dir := 1
	if s.Desc {
		dir = -1
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}}
}

func totalPipeline() mongodriver.Pipeline {
	return mongodriver.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
	}
}

func categoryPipeline() mongodriver.Pipeline {
	return mongodriver.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

func monthPipeline(year int) mongodriver.Pipeline {
	start, end := expense.YearRange(year)
	return mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "date", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lt", Value: end}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$month", Value: "$date"}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

type ExpenseRepository struct {
	coll *mongodriver.Collection
}

func NewExpenseRepository(coll *mongodriver.Collection) *ExpenseRepository {
	return &ExpenseRepository{coll: coll}
}

// EnsureIndexes creates the secondary indexes used by listing and grouping.
func (r *ExpenseRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
	})
	return err
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expenseDatamodel.Expense) error {
	doc, err := toDocument(e)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(ctx, doc)
	return err
}

func (r *ExpenseRepository) FindMany(ctx context.Context, filter expense.Filter, sort expense.Sort) ([]*expenseDatamodel.Expense, error) {
	cur, err := r.coll.Find(ctx, filterDocument(filter), options.Find().SetSort(sortDocument(sort)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*expenseDatamodel.Expense, 0)
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		e, err := doc.toDataModel()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expenseDatamodel.Expense, error) {
	if !expense.IsValidID(id) {
		return nil, expense.ErrStoreNotFound
	}

	var doc document
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, expense.ErrStoreNotFound
		}
		return nil, err
	}
	return doc.toDataModel()
}

// Update sets the mutable keys only while updatedAt still holds previous.
func (r *ExpenseRepository) Update(ctx context.Context, e *expenseDatamodel.Expense, previous time.Time) error {
	if !expense.IsValidID(e.ID) {
		return expense.ErrStoreNotFound
	}
	doc, err := toDocument(e)
	if err != nil {
		return err
	}

	filter := bson.D{{Key: "_id", Value: e.ID}, {Key: "updatedAt", Value: previous}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: doc.Title},
		{Key: "amount", Value: doc.Amount},
		{Key: "category", Value: doc.Category},
		{Key: "date", Value: doc.Date},
		{Key: "description", Value: doc.Description},
		{Key: "updatedAt", Value: doc.UpdatedAt},
	}}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: e.ID}})
	if err != nil {
		return err
	}
	if n == 0 {
		return expense.ErrStoreNotFound
	}
	return expense.ErrStoreConflict
}

func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	if !expense.IsValidID(id) {
		return expense.ErrStoreNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return expense.ErrStoreNotFound
	}
	return nil
}

type groupResult[K any] struct {
	ID    K                    `bson:"_id"`
	Total primitive.Decimal128 `bson:"total"`
}

func aggregate[K any](ctx context.Context, coll *mongodriver.Collection, pipeline mongodriver.Pipeline) ([]groupResult[K], error) {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var results []groupResult[K]
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ExpenseRepository) Total(ctx context.Context) (decimal.Decimal, error) {
	results, err := aggregate[interface{}](ctx, r.coll, totalPipeline())
	if err != nil {
		return decimal.Zero, err
	}
	if len(results) == 0 {
		return decimal.Zero, nil
	}
	return fromDecimal128(results[0].Total)
}

func (r *ExpenseRepository) TotalByCategory(ctx context.Context) ([]expense.CategoryTotal, error) {
	results, err := aggregate[string](ctx, r.coll, categoryPipeline())
	if err != nil {
		return nil, err
	}
	out := make([]expense.CategoryTotal, 0, len(results))
	for _, res := range results {
		total, err := fromDecimal128(res.Total)
		if err != nil {
			return nil, err
		}
		out = append(out, expense.CategoryTotal{Category: res.ID, Total: total})
	}
	return out, nil
}

func (r *ExpenseRepository) MonthlyTotals(ctx context.Context, year int) ([]expense.MonthTotal, error) {
	results, err := aggregate[int](ctx, r.coll, monthPipeline(year))
	if err != nil {
		return nil, err
	}
	out := make([]expense.MonthTotal, 0, len(results))
	for _, res := range results {
		total, err := fromDecimal128(res.Total)
		if err != nil {
			return nil, err
		}
		out = append(out, expense.MonthTotal{Month: res.ID, Total: total})
	}
	return out, nil
}

var _ expense.RepositoryAPI = (*ExpenseRepository)(nil)

package expense

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-tracker/internal"
)

const dateOnlyLayout = "2006-01-02"

// ParseDate accepts a calendar date (midnight UTC) or an RFC 3339 instant.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

// Filter is a conjunction of optional constraints. Zero value matches
// everything.
type Filter struct {
	Category string
	Start    *time.Time
	End      *time.Time
}

func (f Filter) Matches(e *Expense) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Start != nil && e.Date.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.Date.After(*f.End) {
		return false
	}
	return true
}

type SortField string

const (
	SortByDate      SortField = "date"
	SortByAmount    SortField = "amount"
	SortByTitle     SortField = "title"
	SortByCategory  SortField = "category"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
)

var sortColumns = map[SortField]string{
	SortByDate:      "expense_date",
	SortByAmount:    "amount",
	SortByTitle:     "title",
	SortByCategory:  "category",
	SortByCreatedAt: "created_at",
	SortByUpdatedAt: "updated_at",
}

// Column is the relational column backing the field.
func (f SortField) Column() string {
	return sortColumns[f]
}

func (f SortField) IsValid() bool {
	_, ok := sortColumns[f]
	return ok
}

type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort is newest expense date first.
var DefaultSort = Sort{Field: SortByDate, Desc: true}

func (s Sort) String() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return fmt.Sprintf("%s:%s", s.Field, dir)
}

// ParseSort reads "field[:asc|desc]". Empty input yields DefaultSort.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, nil
	}

	field, dir, hasDir := strings.Cut(raw, ":")
	s := Sort{Field: SortField(field)}
	if !s.Field.IsValid() {
		return Sort{}, fmt.Errorf("unknown sort field %q", field)
	}
	if hasDir {
		switch strings.ToLower(dir) {
		case "asc":
		case "desc":
			s.Desc = true
		default:
			return Sort{}, fmt.Errorf("unknown sort direction %q", dir)
		}
	}
	return s, nil
}

// RawListQuery holds the listing parameters exactly as the client sent them.
type RawListQuery struct {
	Category  string
	StartDate string
	EndDate   string
	Sort      string
}

func RawListQueryFromValues(values url.Values) RawListQuery {
	return RawListQuery{
		Category:  values.Get("category"),
		StartDate: values.Get("startDate"),
		EndDate:   values.Get("endDate"),
		Sort:      values.Get("sort"),
	}
}

// Values renders q as URL query parameters, omitting empty ones.
func (q RawListQuery) Values() url.Values {
	values := url.Values{}
	for key, value := range map[string]string{
		"category":  q.Category,
		"startDate": q.StartDate,
		"endDate":   q.EndDate,
		"sort":      q.Sort,
	} {
		if value != "" {
			values.Set(key, value)
		}
	}
	return values
}

// Parse turns the raw parameters into a typed filter and sort, reporting
// every malformed parameter at once.
func (q RawListQuery) Parse() (Filter, Sort, *errors.AppError) {
	var (
		filter Filter
		issues []errors.ValidationError
	)

	filter.Category = strings.TrimSpace(q.Category)

	if q.StartDate != "" {
		start, err := ParseDate(q.StartDate)
		if err != nil {
			issues = append(issues, errors.ValidationError{Field: "startDate", Message: "startDate must be a date (YYYY-MM-DD) or an RFC 3339 timestamp", Code: string(errors.ErrCodeInvalidDate)})
		} else {
			filter.Start = &start
		}
	}
	if q.EndDate != "" {
		end, err := ParseDate(q.EndDate)
		if err != nil {
			issues = append(issues, errors.ValidationError{Field: "endDate", Message: "endDate must be a date (YYYY-MM-DD) or an RFC 3339 timestamp", Code: string(errors.ErrCodeInvalidDate)})
		} else {
			filter.End = &end
		}
	}

	sort, err := ParseSort(q.Sort)
	if err != nil {
		issues = append(issues, errors.ValidationError{Field: "sort", Message: "sort must be field:asc or field:desc with field one of date, amount, title, category, createdAt, updatedAt", Code: string(errors.ErrCodeInvalidSort)})
	}

	if len(issues) > 0 {
		return Filter{}, Sort{}, errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: issues})
	}
	return filter, sort, nil
}

// YearRange is [Jan 1 of year, Jan 1 of year+1) in UTC.
func YearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

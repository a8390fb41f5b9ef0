package category

// Category is the closed set of labels an expense can carry.
type Category string

const (
	Food           Category = "Food"
	Transportation Category = "Transportation"
	Entertainment  Category = "Entertainment"
	Shopping       Category = "Shopping"
	Utilities      Category = "Utilities"
	Housing        Category = "Housing"
	Healthcare     Category = "Healthcare"
	Personal       Category = "Personal"
	Education      Category = "Education"
	Gifts          Category = "Gifts"
	Travel         Category = "Travel"
	Other          Category = "Other"
)

// Default is assigned when a draft omits the category.
const Default = Other

var all = []Category{
	Food,
	Transportation,
	Entertainment,
	Shopping,
	Utilities,
	Housing,
	Healthcare,
	Personal,
	Education,
	Gifts,
	Travel,
	Other,
}

var descriptions = map[Category]string{
	Food:           "Groceries, restaurants and take-away",
	Transportation: "Fuel, fares, parking and ride hailing",
	Entertainment:  "Movies, events, games and subscriptions",
	Shopping:       "Clothing, electronics and household goods",
	Utilities:      "Electricity, water, internet and phone",
	Housing:        "Rent, mortgage and maintenance",
	Healthcare:     "Doctor visits, medicine and insurance",
	Personal:       "Personal care and wellbeing",
	Education:      "Courses, books and tuition",
	Gifts:          "Presents and donations",
	Travel:         "Flights, lodging and trips",
	Other:          "Anything that does not fit elsewhere",
}

// All returns the categories in their canonical order. The slice is a copy.
func All() []Category {
	out := make([]Category, len(all))
	copy(out, all)
	return out
}

// Names returns All as plain strings.
func Names() []string {
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = string(c)
	}
	return names
}

func IsValid(name string) bool {
	_, ok := descriptions[Category(name)]
	return ok
}

func (c Category) String() string {
	return string(c)
}

func (c Category) Description() string {
	return descriptions[c]
}

func (c Category) ToResponse() CategoryResponse {
	return CategoryResponse{
		Name:        string(c),
		Description: c.Description(),
	}
}

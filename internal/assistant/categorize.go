package assistant

import "strings"

// Default expense categories.
const (
	CategoryFood          = "Food & Dining"
	CategoryGroceries     = "Groceries"
	CategoryTransport     = "Transportation"
	CategoryShopping      = "Shopping"
	CategoryEntertainment = "Entertainment"
	CategoryBills         = "Bills & Utilities"
	CategoryHealth        = "Healthcare"
	CategoryTravel        = "Travel"
	CategoryEducation     = "Education"
	CategoryHousing       = "Housing"
	CategoryOther         = "Other"
)

// DefaultCategories is offered to every user.
var DefaultCategories = []string{
	CategoryBills,
	CategoryEducation,
	CategoryEntertainment,
	CategoryFood,
	CategoryGroceries,
	CategoryHealth,
	CategoryHousing,
	CategoryOther,
	CategoryShopping,
	CategoryTransport,
	CategoryTravel,
}

// Categorize returns the category for an expense description.
// It performs case-insensitive matching: exact match first, then substring match.
// Falls back to "Other" if no match is found.
func Categorize(description string) string {
	name := strings.ToLower(strings.TrimSpace(description))
	if name == "" {
		return CategoryOther
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	for _, entry := range substringMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}

	return CategoryOther
}

var exactMatch = map[string]string{
	"rent":        CategoryHousing,
	"mortgage":    CategoryHousing,
	"gas":         CategoryTransport,
	"fuel":        CategoryTransport,
	"parking":     CategoryTransport,
	"toll":        CategoryTransport,
	"bus":         CategoryTransport,
	"train":       CategoryTransport,
	"metro":       CategoryTransport,
	"taxi":        CategoryTransport,
	"lunch":       CategoryFood,
	"dinner":      CategoryFood,
	"breakfast":   CategoryFood,
	"brunch":      CategoryFood,
	"coffee":      CategoryFood,
	"snacks":      CategoryFood,
	"groceries":   CategoryGroceries,
	"milk":        CategoryGroceries,
	"eggs":        CategoryGroceries,
	"bread":       CategoryGroceries,
	"vegetables":  CategoryGroceries,
	"fruit":       CategoryGroceries,
	"movie":       CategoryEntertainment,
	"movies":      CategoryEntertainment,
	"concert":     CategoryEntertainment,
	"games":       CategoryEntertainment,
	"electricity": CategoryBills,
	"water":       CategoryBills,
	"internet":    CategoryBills,
	"wifi":        CategoryBills,
	"phone":       CategoryBills,
	"doctor":      CategoryHealth,
	"dentist":     CategoryHealth,
	"medicine":    CategoryHealth,
	"pharmacy":    CategoryHealth,
	"gym":         CategoryHealth,
	"hotel":       CategoryTravel,
	"flight":      CategoryTravel,
	"airbnb":      CategoryTravel,
	"tuition":     CategoryEducation,
	"books":       CategoryEducation,
	"course":      CategoryEducation,
	"clothes":     CategoryShopping,
	"shoes":       CategoryShopping,
}

type substringEntry struct {
	keyword  string
	category string
}

// substringMatches is ordered longer/more-specific first.
var substringMatches = []substringEntry{
	{"electricity bill", CategoryBills},
	{"phone bill", CategoryBills},
	{"water bill", CategoryBills},
	{"gas station", CategoryTransport},
	{"grocery", CategoryGroceries},
	{"groceries", CategoryGroceries},
	{"supermarket", CategoryGroceries},
	{"walmart", CategoryGroceries},
	{"costco", CategoryGroceries},
	{"restaurant", CategoryFood},
	{"starbucks", CategoryFood},
	{"pizza", CategoryFood},
	{"burger", CategoryFood},
	{"sushi", CategoryFood},
	{"cafe", CategoryFood},
	{"coffee", CategoryFood},
	{"lunch", CategoryFood},
	{"dinner", CategoryFood},
	{"breakfast", CategoryFood},
	{"takeout", CategoryFood},
	{"doordash", CategoryFood},
	{"uber eats", CategoryFood},
	{"uber", CategoryTransport},
	{"lyft", CategoryTransport},
	{"taxi", CategoryTransport},
	{"fuel", CategoryTransport},
	{"parking", CategoryTransport},
	{"train", CategoryTransport},
	{"airline", CategoryTravel},
	{"flight", CategoryTravel},
	{"hotel", CategoryTravel},
	{"airbnb", CategoryTravel},
	{"vacation", CategoryTravel},
	{"netflix", CategoryEntertainment},
	{"spotify", CategoryEntertainment},
	{"cinema", CategoryEntertainment},
	{"movie", CategoryEntertainment},
	{"concert", CategoryEntertainment},
	{"ticket", CategoryEntertainment},
	{"electric", CategoryBills},
	{"utility", CategoryBills},
	{"internet", CategoryBills},
	{"insurance", CategoryBills},
	{"subscription", CategoryBills},
	{"pharmacy", CategoryHealth},
	{"hospital", CategoryHealth},
	{"clinic", CategoryHealth},
	{"doctor", CategoryHealth},
	{"dental", CategoryHealth},
	{"tuition", CategoryEducation},
	{"textbook", CategoryEducation},
	{"course", CategoryEducation},
	{"school", CategoryEducation},
	{"rent", CategoryHousing},
	{"mortgage", CategoryHousing},
	{"furniture", CategoryHousing},
	{"amazon", CategoryShopping},
	{"clothing", CategoryShopping},
	{"shoes", CategoryShopping},
	{"mall", CategoryShopping},
}

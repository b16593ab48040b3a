package model

// Category is one of the fixed expense categories tracked by the bot.
type Category string

const (
	CategoryFood       Category = "Food"
	CategoryTransport  Category = "Transport"
	CategoryHousing    Category = "Housing"
	CategoryHealthcare Category = "Healthcare"
	CategoryOthers     Category = "Others"
)

var categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryHousing,
	CategoryHealthcare,
	CategoryOthers,
}

var categoryEmoji = map[Category]string{
	CategoryFood:       "🍲",
	CategoryTransport:  "🚗",
	CategoryHousing:    "🏠",
	CategoryHealthcare: "🏥",
}

// Categories returns the category set in its fixed iteration order.
// Aggregations and tie-breaks depend on this order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory looks up a category by its name.
func ParseCategory(name string) (Category, bool) {
	for _, c := range categories {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Label is the name shown on buttons and in replies.
func (c Category) Label() string {
	if emoji, ok := categoryEmoji[c]; ok {
		return string(c) + " " + emoji
	}
	return string(c)
}

package grocery

import "strings"

// Uncategorized is returned when no keyword matches.
const Uncategorized = "Other"

type categoryRule struct {
	category string
	keywords []string
}

var rules = []categoryRule{
	{"Produce", []string{
		"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato", "potato",
		"onion", "garlic", "lettuce", "spinach", "kale", "broccoli", "carrot",
		"celery", "cucumber", "pepper", "mushroom", "grape", "berries", "berry",
		"melon", "pear", "peach", "herb", "cilantro", "basil", "ginger", "zucchini",
	}},
	{"Dairy", []string{
		"milk", "egg", "butter", "cheese", "yogurt", "cream", "sữa", "trứng",
	}},
	{"Meat & Seafood", []string{
		"chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham", "steak",
		"salmon", "shrimp", "tuna", "fish", "lamb", "crab",
	}},
	{"Bakery", []string{
		"bread", "bagel", "tortilla", "roll", "bun", "croissant", "muffin", "baguette", "bánh mì",
	}},
	{"Pantry", []string{
		"rice", "pasta", "flour", "sugar", "salt", "oil", "vinegar", "beans",
		"cereal", "oats", "sauce", "soup", "spice", "honey", "peanut butter", "canned",
	}},
	{"Frozen", []string{
		"frozen", "ice cream", "popsicle",
	}},
	{"Beverages", []string{
		"coffee", "tea", "juice", "soda", "water", "beer", "wine",
	}},
	{"Snacks", []string{
		"chips", "crackers", "cookies", "popcorn", "pretzels", "nuts", "chocolate",
	}},
	{"Household", []string{
		"paper towel", "toilet paper", "detergent", "dish soap", "trash bag", "sponge", "foil",
	}},
	{"Personal Care", []string{
		"shampoo", "conditioner", "toothpaste", "deodorant", "soap", "lotion", "razor",
	}},
}

// Categorize guesses a category for an item name. Matching is
// case-insensitive and the longest matching keyword wins, so "ice cream"
// beats "cream" and "peanut butter" beats "butter".
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return Uncategorized
	}

	best, bestLen := Uncategorized, 0
	for _, r := range rules {
		for _, kw := range r.keywords {
			if len(kw) > bestLen && strings.Contains(name, kw) {
				best, bestLen = r.category, len(kw)
			}
		}
	}
	return best
}

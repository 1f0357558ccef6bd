package model

// DefaultQuantity is stored when an item is added without a quantity.
const DefaultQuantity = "1"

type GroceryItem struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Quantity  string  `json:"quantity" db:"quantity"`
	Category  *string `json:"category" db:"category"`
	Bought    bool    `json:"bought" db:"bought"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
}

// CategoryName returns the category or "" when it is NULL.
func (i GroceryItem) CategoryName() string {
	if i.Category == nil {
		return ""
	}
	return *i.Category
}

// ListState is the view state a presentation layer renders.
type ListState struct {
	Items    []GroceryItem `json:"items"`
	Unbought int           `json:"unbought"`
	Loading  bool          `json:"loading"`
	Error    string        `json:"error"`
}

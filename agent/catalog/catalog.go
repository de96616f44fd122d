package catalog

import "strings"

// Product is a static catalog entry. Price and emoji are display defaults
// snapshotted into the cart at add-time.
type Product struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Emoji string  `json:"emoji"`
}

// Defaults applied when the assistant adds an item that is not in the catalog.
const (
	DefaultCustomPrice = 5.99
	DefaultCustomEmoji = "📦"
)

// Catalog is a read-only, ordered product list with case-insensitive lookup.
type Catalog struct {
	products []Product
	byName   map[string]int
}

func New(products []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byName:   make(map[string]int, len(products)),
	}
	for _, p := range products {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			continue
		}
		if _, exists := c.byName[key]; exists {
			continue
		}
		c.byName[key] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// Default returns the built-in demo catalog.
func Default() *Catalog {
	return New([]Product{
		{Name: "Salt", Price: 2.50, Emoji: "🧂"},
		{Name: "Pepper", Price: 3.00, Emoji: "🌶️"},
		{Name: "Toothpaste", Price: 4.99, Emoji: "🦷"},
		{Name: "Toothbrush", Price: 3.50, Emoji: "🪥"},
		{Name: "Detergent", Price: 8.99, Emoji: "🧴"},
		{Name: "Soap", Price: 2.99, Emoji: "🧼"},
		{Name: "Shampoo", Price: 6.99, Emoji: "🧴"},
		{Name: "Paper Towels", Price: 5.49, Emoji: "🧻"},
	})
}

// Lookup finds a product by name, case-insensitively.
func (c *Catalog) Lookup(name string) (Product, bool) {
	idx, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// List returns products in definition order. The returned slice is a copy.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Names returns the product names in definition order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.products))
	for i, p := range c.products {
		names[i] = p.Name
	}
	return names
}

package cart

import "strings"

// ActionKind selects the merge policy applied to the cart.
type ActionKind string

const (
	// ActionAdd increments an existing line's quantity, or inserts a new line.
	ActionAdd ActionKind = "add"
	// ActionRemove deletes a line; removing an absent product is a no-op.
	ActionRemove ActionKind = "remove"
	// ActionUpdate sets a line's quantity to an absolute value. A quantity
	// of zero or below deletes the line, so the assistant can express
	// removal through an update.
	ActionUpdate ActionKind = "update"
)

// Action is one structured cart instruction decoded from an assistant tool
// call. It is applied immediately and never stored.
type Action struct {
	Kind     ActionKind `json:"action"`
	Product  string     `json:"product"`
	Quantity int        `json:"quantity"`
	Price    float64    `json:"price"`
	Emoji    string     `json:"emoji"`
}

// ParseKind normalizes a raw action string. Unknown kinds return false.
func ParseKind(raw string) (ActionKind, bool) {
	switch ActionKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionAdd:
		return ActionAdd, true
	case ActionRemove:
		return ActionRemove, true
	case ActionUpdate:
		return ActionUpdate, true
	default:
		return "", false
	}
}

// Line is one product's entry in a cart. Quantity is always >= 1 while the
// line exists; UnitPrice and Emoji are snapshotted when the line is first
// created and never refreshed by later adds.
type Line struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Emoji     string  `json:"emoji"`
}

// Summary is a pure snapshot of a cart, used for rendering.
type Summary struct {
	Lines     []Line  `json:"lines"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"item_count"`
}

func (s Summary) Empty() bool {
	return len(s.Lines) == 0
}

// Cart holds one session's lines, keyed by product name with insertion
// order preserved. Cart is not safe for concurrent use; the owning session
// serializes access.
type Cart struct {
	lines map[string]*Line
	order []string
}

func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// Apply mutates the cart according to the action's kind. Quantities never
// go negative: any operation that would leave a line at zero or below
// deletes the line instead.
func (c *Cart) Apply(a Action) {
	switch a.Kind {
	case ActionAdd:
		if line, ok := c.lines[a.Product]; ok {
			line.Quantity += a.Quantity
			if line.Quantity <= 0 {
				c.delete(a.Product)
			}
			return
		}
		if a.Quantity <= 0 {
			return
		}
		c.insert(&Line{Name: a.Product, Quantity: a.Quantity, UnitPrice: a.Price, Emoji: a.Emoji})
	case ActionRemove:
		c.delete(a.Product)
	case ActionUpdate:
		if a.Quantity <= 0 {
			c.delete(a.Product)
			return
		}
		if line, ok := c.lines[a.Product]; ok {
			line.Quantity = a.Quantity
			return
		}
		c.insert(&Line{Name: a.Product, Quantity: a.Quantity, UnitPrice: a.Price, Emoji: a.Emoji})
	}
}

// Increment bumps an existing line by one. Absent products are a no-op.
func (c *Cart) Increment(name string) {
	if line, ok := c.lines[name]; ok {
		line.Quantity++
	}
}

// Decrement lowers an existing line by one, deleting it at zero. Absent
// products are a no-op.
func (c *Cart) Decrement(name string) {
	line, ok := c.lines[name]
	if !ok {
		return
	}
	line.Quantity--
	if line.Quantity <= 0 {
		c.delete(name)
	}
}

// Summarize recomputes the total and item count from current lines.
func (c *Cart) Summarize() Summary {
	s := Summary{Lines: make([]Line, 0, len(c.order))}
	for _, name := range c.order {
		line := c.lines[name]
		s.Lines = append(s.Lines, *line)
		s.Total += line.UnitPrice * float64(line.Quantity)
		s.ItemCount += line.Quantity
	}
	return s
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) insert(line *Line) {
	c.lines[line.Name] = line
	c.order = append(c.order, line.Name)
}

func (c *Cart) delete(name string) {
	if _, ok := c.lines[name]; !ok {
		return
	}
	delete(c.lines, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

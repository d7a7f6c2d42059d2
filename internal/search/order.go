package search

import (
	"fmt"
	"strings"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/quick"
)

// Order decides which waiting unit acts next within a turn.
type Order int

const (
	// Forward picks the waiting unit with the lowest id.
	Forward Order = iota
	// Reverse picks the waiting unit with the highest id.
	Reverse
	// CutForward and CutReverse follow fixed pick tables that interleave
	// the two ends of the waiting list.
	CutForward
	CutReverse
)

var orderNames = []string{"forward", "reverse", "cut_forward", "cut_reverse"}

func (o Order) String() string {
	if o < 0 || int(o) >= len(orderNames) {
		return fmt.Sprintf("order(%d)", int(o))
	}
	return orderNames[o]
}

// ParseOrder accepts the names used in configuration.
func ParseOrder(s string) (Order, error) {
	for i, n := range orderNames {
		if strings.EqualFold(n, s) {
			return Order(i), nil
		}
	}
	return 0, fmt.Errorf("unknown unit order %q", s)
}

// ParseOrders parses a list of order names.
func ParseOrders(names []string) ([]Order, error) {
	out := make([]Order, 0, len(names))
	for _, n := range names {
		o, err := ParseOrder(n)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Pick tables indexed by [team size][units already moved], giving a
// position in the waiting list.
var (
	pickCutForward = [][]int{
		{}, {}, {}, {1, 1, 0}, {2, 2, 0, 0}, {2, 2, 2, 0, 0},
		{3, 3, 3, 0, 0, 0}, {3, 3, 3, 3, 0, 0, 0}, {4, 4, 4, 4, 0, 0, 0, 0},
	}
	pickCutReverse = [][]int{
		{}, {}, {}, {1, 0, 0}, {1, 0, 1, 0}, {2, 1, 0, 1, 0},
		{2, 1, 0, 2, 1, 0}, {3, 2, 1, 0, 2, 1, 0}, {3, 2, 1, 0, 3, 2, 1, 0},
	}
)

// pick chooses from waiting, which is in id order, after moved units of
// the same side have already acted this turn.
func (o Order) pick(waiting []*quick.Unit, moved int) *quick.Unit {
	switch o {
	case Forward:
		return waiting[0]
	case Reverse:
		return waiting[len(waiting)-1]
	}
	total := len(waiting) + moved
	table := pickCutForward
	if o == CutReverse {
		table = pickCutReverse
	}
	if total <= 2 || total >= len(table) {
		return waiting[0]
	}
	return waiting[table[total][moved]]
}

package budget

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrItemTooLarge is matched by every ItemTooLargeError.
	ErrItemTooLarge = errors.New("item exceeds token budget")
	// ErrBudgetInfeasible is matched by every BudgetInfeasibleError.
	ErrBudgetInfeasible = errors.New("system items exceed token budget")
	// ErrInvalidConfig is matched by every InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid budget config")
	// ErrInvalidItem reports a candidate with an unknown kind, an
	// importance outside [0,1] or a negative token count.
	ErrInvalidItem = errors.New("invalid context item")
)

// ItemTooLargeError reports a single candidate that can never fit.
type ItemTooLargeError struct {
	ID        string
	Tokens    int
	MaxTokens int
}

func (e *ItemTooLargeError) Error() string {
	return fmt.Sprintf("item %q has %d tokens, budget is %d", e.ID, e.Tokens, e.MaxTokens)
}

func (e *ItemTooLargeError) Unwrap() error { return ErrItemTooLarge }

// BudgetInfeasibleError reports system items that alone overflow the token
// budget or the item cap.
type BudgetInfeasibleError struct {
	SystemTokens int
	MaxTokens    int
	SystemItems  int
	MaxItems     int
}

func (e *BudgetInfeasibleError) Error() string {
	if e.MaxItems > 0 && e.SystemItems > e.MaxItems {
		return fmt.Sprintf("%d system items, item cap is %d", e.SystemItems, e.MaxItems)
	}
	return fmt.Sprintf("system items need %d tokens, budget is %d", e.SystemTokens, e.MaxTokens)
}

func (e *BudgetInfeasibleError) Unwrap() error { return ErrBudgetInfeasible }

// InvalidConfigError lists every problem found in a Config.
type InvalidConfigError struct {
	Problems []string
}

func (e *InvalidConfigError) Error() string {
	return "invalid budget config: " + strings.Join(e.Problems, "; ")
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

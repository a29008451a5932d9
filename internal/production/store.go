package production

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"aromastock/models"
)

var (
	// ErrInsufficientStock is the advisory rejection: the resolved batch
	// cannot be covered by current stock, so confirmation is refused before
	// any write is attempted.
	ErrInsufficientStock = errors.New("production: insufficient stock")
	// ErrStaleStock is the authoritative rejection: stock changed between
	// the advisory check and the atomic commit. The caller should resolve
	// again and retry.
	ErrStaleStock = errors.New("production: stock changed, please retry")
)

// Commit carries everything the store needs to record one confirmed batch.
type Commit struct {
	OwnerID    uint
	RecipeID   uint
	RecipeName string
	Quantity   float64
	Unit       string
	TotalCost  decimal.Decimal
	Lines      []CommitLine
}

// CommitLine is one flattened material requirement to deduct and snapshot.
type CommitLine struct {
	MaterialID   uint
	MaterialName string
	Quantity     float64
	Unit         string
	PricePerUnit decimal.Decimal
}

// Store is the persistence boundary the engine depends on. CommitProduction
// must re-validate stock for every line, decrement it, and insert the
// immutable history record as one transaction: if any line is insufficient
// the whole operation fails with ErrStaleStock and nothing is deducted.
type Store interface {
	ListMaterials(ctx context.Context, ownerID uint) ([]models.Material, error)
	ListRecipes(ctx context.Context, ownerID uint) ([]models.Recipe, error)
	ReplaceRecipe(ctx context.Context, recipe *models.Recipe, ingredients []models.RecipeIngredient) error
	CommitProduction(ctx context.Context, commit Commit) (uint, error)
}

// EventLogger records best-effort audit events. Implementations must never
// propagate failures to the caller.
type EventLogger interface {
	LogEvent(ctx context.Context, ownerID uint, title, message, severity string, payload any)
}

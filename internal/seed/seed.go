package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	packrepo "github.com/smallbiznis/hireledger/internal/pack/repository"
	"gorm.io/gorm"
)

// DefaultPacks is the catalog a fresh installation starts with.
func DefaultPacks() []packdomain.Pack {
	return []packdomain.Pack{
		{
			Name:           packdomain.PackBasic,
			Price:          decimal.RequireFromString("49.00"),
			ProfileLimit:   10,
			VisibilityDays: 30,
			Description:    "Unlock up to 10 candidate profiles over 30 days.",
		},
		{
			Name:           packdomain.PackStandard,
			Price:          decimal.RequireFromString("99.00"),
			ProfileLimit:   50,
			VisibilityDays: 30,
			Description:    "Unlock up to 50 candidate profiles over 30 days.",
		},
		{
			Name:           packdomain.PackPremium,
			Price:          decimal.RequireFromString("199.00"),
			ProfileLimit:   200,
			VisibilityDays: 60,
			Description:    "Unlock up to 200 candidate profiles over 60 days.",
		},
	}
}

// EnsurePacks inserts the packs whose name is not present yet and returns how
// many rows were written. Existing rows are left untouched.
func EnsurePacks(ctx context.Context, db *gorm.DB, packs []packdomain.Pack) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return 0, err
	}
	repo := packrepo.Provide()

	inserted := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, pack := range packs {
			pack.Name = packdomain.NormalizeName(pack.Name)
			if err := pack.Validate(); err != nil {
				return fmt.Errorf("seed pack %q: %w", pack.Name, err)
			}
			if pack.ID == 0 {
				pack.ID = node.Generate()
			}
			pack.CreatedAt = now
			pack.UpdatedAt = now

			ok, err := repo.InsertIfAbsent(ctx, tx, &pack)
			if err != nil {
				return fmt.Errorf("seed pack %q: %w", pack.Name, err)
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

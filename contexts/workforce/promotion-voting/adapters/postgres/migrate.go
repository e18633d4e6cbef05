package postgresadapter

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the promotion voting tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&proposalModel{},
		&qualifiedVoterModel{},
		&voteModel{},
		&employeeModel{},
		&idempotencyModel{},
		&outboxModel{},
		&eventDedupModel{},
	); err != nil {
		return fmt.Errorf("migrate promotion voting schema: %w", err)
	}
	return nil
}

package db

import (
	"context"
	"fmt"

	"github.com/angelmondragon/stockledger/pkg/db/models"
)

// AutoMigrate creates or updates the tables for every model. Used for the
// in-memory SQLite driver; Postgres schemas are managed by goose migrations.
func (c *Client) AutoMigrate(ctx context.Context) error {
	if err := c.conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}

package stock

import (
	"github.com/angelmondragon/stockledger/internal/allocation"
	"github.com/angelmondragon/stockledger/internal/catalog"
	"github.com/angelmondragon/stockledger/internal/ledger"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/lock"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/metrics"
)

// NewFromClient builds the repositories on top of client and returns the
// facade over them.
func NewFromClient(client *db.Client, locker lock.Locker, logg *logger.Logger, m *metrics.StockMetrics) (Service, error) {
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(client.DB()))
	if err != nil {
		return nil, err
	}
	return NewService(ServiceParams{
		Tx:          client,
		Items:       catalog.NewRepository(client.DB()),
		Ledger:      ledgerSvc,
		Allocations: allocation.NewRepository(client.DB()),
		Locker:      locker,
		Logger:      logg,
		Metrics:     m,
	})
}

// Package stocktest builds a stock facade over a private in-memory database.
package stocktest

import (
	"testing"
	"time"

	"github.com/angelmondragon/stockledger/internal/stock"
	"github.com/angelmondragon/stockledger/pkg/db/dbtest"
	"github.com/angelmondragon/stockledger/pkg/lock"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/metrics"
)

func New(t *testing.T) stock.Service {
	t.Helper()

	svc, err := stock.NewFromClient(dbtest.Open(t), lock.NewLocal(5*time.Second), logger.Nop(), metrics.NewStockMetrics(nil))
	if err != nil {
		t.Fatalf("stock service: %v", err)
	}
	return svc
}

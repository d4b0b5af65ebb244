package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	conn, err := Open(sqlite.Open("file:db_" + uuid.NewString() + "?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	client := NewFromConn(conn)
	if err := client.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Item{SKU: "SKU-1", Name: "committed", Status: enums.ItemStatusNormal}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := client.DB().Model(&models.Item{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Item{SKU: "SKU-2", Name: "rolled back", Status: enums.ItemStatusNormal}).Error; err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	if err == nil {
		t.Fatal("expected rollback error")
	}

	if err := client.DB().Model(&models.Item{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to keep 1 record, got %d", count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	client := newTestClient(t)
	item := &models.Item{SKU: "SKU-1", Name: "one", Status: enums.ItemStatusNormal}
	if err := client.DB().Create(item).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	err := client.DB().Create(&models.Item{SKU: "SKU-1", Name: "dup", Status: enums.ItemStatusNormal}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil must not be a unique violation")
	}
}

func TestStockTransactionSeqIsMonotonic(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 3; i++ {
		entry := &models.StockTransaction{
			ID:   uuid.Must(uuid.NewV7()),
			SKU:  "SKU-1",
			Name: "one",
			Type: enums.TransactionTypeInbound,
		}
		if err := client.DB().WithContext(ctx).Create(entry).Error; err != nil {
			t.Fatalf("create entry: %v", err)
		}
		seqs = append(seqs, entry.Seq)
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Fatalf("seq not increasing: %v", seqs)
		}
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

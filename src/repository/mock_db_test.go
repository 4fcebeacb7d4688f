package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm over sqlmock: %v", err)
	}

	return db, mock
}

// TestFindByClientOrderIDQueryShape pins the lookup to the unique
// client_order_id index against a mocked postgres.
func TestFindByClientOrderIDQueryShape(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&OrderRepository{}).WithDB(mockDB)

	rows := sqlmock.NewRows([]string{"id", "client_order_id", "venue", "symbol", "status"}).
		AddRow(1, "ord-1", "simex", "BTCUSDT", "submitted")

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE client_order_id = \$1`).
		WithArgs("ord-1", 1).
		WillReturnRows(rows)

	order, err := repo.FindByClientOrderID(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order == nil || order.ClientOrderID != "ord-1" {
		t.Fatalf("unexpected order: %+v", order)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

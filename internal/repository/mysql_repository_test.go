package repository_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"localbiz/internal/db"
	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
	"localbiz/internal/repository"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), db.GormConfig())
	require.NoError(t, err)
	return gormDB, mock
}

func TestOrderRepository_LockProductsUsesRowLocks(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)

	first, second := uuid.New(), uuid.New()
	rows := sqlmock.NewRows([]string{"id", "provider_id", "name", "price", "stock", "active"}).
		AddRow(first.String(), uuid.NewString(), "Soap", "10.00", 4, true).
		AddRow(second.String(), uuid.NewString(), "Shampoo", "20.00", 0, true)

	mock.ExpectQuery("SELECT \\* FROM `products` WHERE \\(id IN \\(\\?,\\?\\) AND active = \\?\\) .* FOR UPDATE").
		WithArgs(first, second, true).
		WillReturnRows(rows)

	products, err := repo.LockProducts(context.Background(), []uuid.UUID{first, second})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 4, products[first].Stock)
	assert.Equal(t, "20", products[second].Price.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_DecrementStock(t *testing.T) {
	decrement := regexp.QuoteMeta("UPDATE `products` SET `stock`=stock - ?")

	t.Run("enough stock", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewOrderRepository(gormDB)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(decrement+".*WHERE \\(id = \\? AND stock >= \\?\\)").
			WithArgs(2, sqlmock.AnyArg(), id, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.DecrementStock(context.Background(), id, 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row matched", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewOrderRepository(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(decrement).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.DecrementStock(context.Background(), uuid.New(), 5)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_FindByIDForUpdate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)
	id := uuid.New()

	mock.ExpectQuery("SELECT \\* FROM `orders` WHERE id = \\? .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{}))

	order, err := repo.FindByIDForUpdate(context.Background(), id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUserRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users`")).
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'a@example.com' for key 'idx_users_email'"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.User{Email: "a@example.com", FullName: "A", PasswordHash: "hash"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateIdentifier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteReferencedUser(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUserRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `users`")).
		WillReturnError(&mysqldriver.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ProviderOwnerStaysInTransaction(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewBookingRepository(gormDB)
	bookingID, providerID, ownerID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `bookings` WHERE id = \\? .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider_id", "status"}).
			AddRow(bookingID.String(), providerID.String(), "pending"))
	mock.ExpectQuery("SELECT `id`,`user_id` FROM `providers` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(providerID.String(), ownerID.String()))
	mock.ExpectCommit()

	err := repo.WithTransaction(context.Background(), func(ctx context.Context, tx repository.BookingRepository) error {
		booking, err := tx.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		owner, err := tx.ProviderOwner(ctx, booking.ProviderID)
		if err != nil {
			return err
		}
		require.NotNil(t, owner)
		assert.Equal(t, ownerID, *owner)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_FindServiceForShare(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewBookingRepository(gormDB)
	id := uuid.New()

	mock.ExpectQuery("SELECT \\* FROM `services` WHERE id = \\? .*FOR SHARE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "active"}).
			AddRow(id.String(), "Leak repair", "80.00", true))

	svc, err := repo.FindServiceForShare(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "80", svc.Price.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_DeleteOrDeactivate(t *testing.T) {
	lockService := "SELECT \\* FROM `services` WHERE id = \\? .*FOR UPDATE"
	countBookings := regexp.QuoteMeta("SELECT count(*) FROM `bookings` WHERE service_id = ?")

	t.Run("booked service is deactivated", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewServiceRepository(gormDB)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(lockService).WillReturnRows(sqlmock.NewRows([]string{"id", "active"}).AddRow(id.String(), true))
		mock.ExpectQuery(countBookings).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `services` SET `active`=?")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		deactivated, err := repo.DeleteOrDeactivate(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, deactivated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unbooked service is deleted", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewServiceRepository(gormDB)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(lockService).WillReturnRows(sqlmock.NewRows([]string{"id", "active"}).AddRow(id.String(), true))
		mock.ExpectQuery(countBookings).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `services` SET `deleted_at`=?")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		deactivated, err := repo.DeleteOrDeactivate(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, deactivated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign key violation falls back to deactivation", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewServiceRepository(gormDB)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(lockService).WillReturnRows(sqlmock.NewRows([]string{"id", "active"}).AddRow(id.String(), true))
		mock.ExpectQuery(countBookings).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `services` SET `deleted_at`=?")).
			WillReturnError(&mysqldriver.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `services` SET")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		deactivated, err := repo.DeleteOrDeactivate(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, deactivated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_FindByIDLoadsVariants(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewProductRepository(gormDB)
	productID, variantID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `products` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider_id", "name", "price", "stock", "active"}).
			AddRow(productID.String(), uuid.NewString(), "Coffee", "9.00", 10, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `product_variants` WHERE `product_variants`.`product_id` = ? ORDER BY created_at")).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "price", "stock", "active"}).
			AddRow(variantID.String(), productID.String(), "1kg", "30.00", 2, true))

	product, err := repo.FindByID(context.Background(), productID)
	require.NoError(t, err)
	require.Len(t, product.Variants, 1)
	assert.Equal(t, variantID, product.Variants[0].ID)
	assert.Equal(t, "30", product.Variants[0].Price.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindVariantScopedToProduct(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewProductRepository(gormDB)
	productID, variantID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `product_variants` WHERE id = ? AND product_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindVariant(context.Background(), productID, variantID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

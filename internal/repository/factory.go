package repository

import (
	"github.com/streambill/streambill/internal/domain/account"
	"github.com/streambill/streambill/internal/domain/customer"
	"github.com/streambill/streambill/internal/domain/importeduser"
	"github.com/streambill/streambill/internal/domain/lifecyclelog"
	"github.com/streambill/streambill/internal/domain/order"
	"github.com/streambill/streambill/internal/domain/product"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/postgres"
	postgresRepo "github.com/streambill/streambill/internal/repository/postgres"
)

func NewOrderRepository(db *postgres.DB, logger *logger.Logger) order.Repository {
	return postgresRepo.NewOrderRepository(db, logger)
}

func NewProductRepository(db *postgres.DB, logger *logger.Logger) product.Repository {
	return postgresRepo.NewProductRepository(db, logger)
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return postgresRepo.NewCustomerRepository(db, logger)
}

func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return postgresRepo.NewAccountRepository(db, logger)
}

func NewImportedUserRepository(db *postgres.DB, logger *logger.Logger) importeduser.Repository {
	return postgresRepo.NewImportedUserRepository(db, logger)
}

func NewLifecycleLogRepository(db *postgres.DB, logger *logger.Logger) lifecyclelog.Repository {
	return postgresRepo.NewLifecycleLogRepository(db, logger)
}

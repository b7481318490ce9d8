package app

import (
	billingDomain "github.com/felixgeelhaar/billcycle/internal/billing/domain"
	billingPersistence "github.com/felixgeelhaar/billcycle/internal/billing/infrastructure/persistence"
	identityDomain "github.com/felixgeelhaar/billcycle/internal/identity/domain"
	identityPersistence "github.com/felixgeelhaar/billcycle/internal/identity/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
)

// RepositoryFactory creates repositories bound to one connection. The
// repositories speak the connection's SQL dialect themselves, so every driver
// shares the same constructors.
type RepositoryFactory struct {
	conn database.Connection
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// Driver returns the driver of the underlying connection.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.conn.Driver()
}

// PlanRepository creates a plan repository.
func (f *RepositoryFactory) PlanRepository() billingDomain.PlanRepository {
	return billingPersistence.NewPlanRepository(f.conn)
}

// SubscriptionRepository creates a subscription repository.
func (f *RepositoryFactory) SubscriptionRepository() billingDomain.SubscriptionRepository {
	return billingPersistence.NewSubscriptionRepository(f.conn)
}

// InvoiceRepository creates an invoice repository.
func (f *RepositoryFactory) InvoiceRepository() billingDomain.InvoiceRepository {
	return billingPersistence.NewInvoiceRepository(f.conn)
}

// UserRepository creates a user repository.
func (f *RepositoryFactory) UserRepository() identityDomain.UserRepository {
	return identityPersistence.NewUserRepository(f.conn)
}

// OutboxRepository creates an outbox repository.
func (f *RepositoryFactory) OutboxRepository() outbox.Repository {
	return outbox.NewSQLRepository(f.conn)
}

// UnitOfWork creates a unit of work on the connection.
func (f *RepositoryFactory) UnitOfWork() sharedApplication.UnitOfWork {
	return database.NewUnitOfWork(f.conn)
}

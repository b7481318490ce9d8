package commands

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/billcycle/pkg/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func testPlan(t *testing.T) *domain.Plan {
	t.Helper()
	plan, err := domain.NewPlan(domain.PlanPro, decimal.NewFromInt(199), time.Now())
	require.NoError(t, err)
	return plan
}

// expiredWithInvoice returns a subscription that expired on 2025-01-10 and
// its unpaid invoice.
func expiredWithInvoice(t *testing.T, userID uuid.UUID, plan *domain.Plan) (*domain.Subscription, *domain.Invoice) {
	t.Helper()
	start := time.Date(2024, 12, 11, 10, 0, 0, 0, ist)
	sub, err := domain.NewSubscription(userID, plan, start, 30, ist)
	require.NoError(t, err)
	today := domain.NewDate(2025, time.January, 10)
	require.NoError(t, domain.NewLifecycle(30, ist).Transition(sub, domain.SubscriptionExpired, domain.TransitionContext{Today: today}))
	inv, err := domain.NewInvoiceGenerator(7).Generate(sub, plan, today)
	require.NoError(t, err)
	sub.ClearDomainEvents()
	inv.ClearDomainEvents()
	return sub, inv
}

func routingKeys(msgs []*outbox.Message) []string {
	keys := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		keys = append(keys, msg.RoutingKey)
	}
	return keys
}

func TestSeedPlansHandler_Handle(t *testing.T) {
	ctx := context.Background()
	txCtx := context.WithValue(ctx, "tx", "transaction")

	planRepo := new(mockPlanRepo)
	uow := new(mockUnitOfWork)
	handler := NewSeedPlansHandler(planRepo, uow, observability.DiscardLogger())

	existing := testPlan(t)
	uow.On("Begin", ctx).Return(txCtx, nil)
	uow.On("Commit", txCtx).Return(nil)
	planRepo.On("FindByName", txCtx, domain.PlanBasic).Return(nil, nil)
	planRepo.On("FindByName", txCtx, domain.PlanPro).Return(existing, nil)
	planRepo.On("FindByName", txCtx, domain.PlanEnterprise).Return(nil, nil)
	planRepo.On("Save", txCtx, mock.MatchedBy(func(p *domain.Plan) bool {
		return p.Name() != domain.PlanPro
	})).Return(nil).Twice()

	result, err := handler.Handle(ctx)

	require.NoError(t, err)
	assert.Equal(t, []domain.PlanName{domain.PlanBasic, domain.PlanEnterprise}, result.Created)
	uow.AssertExpectations(t)
	planRepo.AssertExpectations(t)
}

func TestSubscribeHandler_Handle(t *testing.T) {
	userID := uuid.New()
	lifecycle := domain.NewLifecycle(30, ist)

	t.Run("creates an active subscription", func(t *testing.T) {
		planRepo := new(mockPlanRepo)
		subRepo := new(mockSubscriptionRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSubscribeHandler(planRepo, subRepo, outboxRepo, uow, lifecycle)
		handler.now = func() time.Time { return time.Date(2024, 12, 11, 10, 0, 0, 0, ist) }

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		plan := testPlan(t)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		planRepo.On("FindByName", txCtx, domain.PlanPro).Return(plan, nil)
		subRepo.On("FindActiveByUser", txCtx, userID).Return(nil, nil)
		subRepo.On("Save", txCtx, mock.AnythingOfType("*domain.Subscription")).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.MatchedBy(func(msgs []*outbox.Message) bool {
			return assert.ObjectsAreEqual([]string{domain.RoutingKeySubscriptionCreated}, routingKeys(msgs))
		})).Return(nil)

		result, err := handler.Handle(ctx, SubscribeCommand{UserID: userID, PlanName: "pro"})

		require.NoError(t, err)
		assert.Equal(t, domain.PlanPro, result.Plan)
		assert.Equal(t, "2025-01-10", result.EndDate.String())
		uow.AssertExpectations(t)
		subRepo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("rejects a second active subscription", func(t *testing.T) {
		planRepo := new(mockPlanRepo)
		subRepo := new(mockSubscriptionRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSubscribeHandler(planRepo, subRepo, outboxRepo, uow, lifecycle)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		plan := testPlan(t)
		active, err := domain.NewSubscription(userID, plan, time.Now(), 30, ist)
		require.NoError(t, err)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", mock.Anything).Return(nil)
		planRepo.On("FindByName", txCtx, domain.PlanPro).Return(plan, nil)
		subRepo.On("FindActiveByUser", txCtx, userID).Return(active, nil)

		_, err = handler.Handle(ctx, SubscribeCommand{UserID: userID, PlanName: "Pro"})

		assert.ErrorIs(t, err, domain.ErrDuplicateActiveSubscription)
		subRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		outboxRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
	})

	t.Run("unknown plan fails before the unit of work", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		handler := NewSubscribeHandler(new(mockPlanRepo), new(mockSubscriptionRepo), new(mockOutboxRepo), uow, lifecycle)

		_, err := handler.Handle(context.Background(), SubscribeCommand{UserID: userID, PlanName: "Gold"})

		assert.ErrorIs(t, err, domain.ErrUnknownPlan)
		uow.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("plan missing from the catalog", func(t *testing.T) {
		planRepo := new(mockPlanRepo)
		uow := new(mockUnitOfWork)
		handler := NewSubscribeHandler(planRepo, new(mockSubscriptionRepo), new(mockOutboxRepo), uow, lifecycle)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", mock.Anything).Return(nil)
		planRepo.On("FindByName", txCtx, domain.PlanBasic).Return(nil, nil)

		_, err := handler.Handle(ctx, SubscribeCommand{UserID: userID, PlanName: "Basic"})

		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})
}

func TestUnsubscribeHandler_Handle(t *testing.T) {
	userID := uuid.New()
	lifecycle := domain.NewLifecycle(30, ist)

	t.Run("cancels the active subscription", func(t *testing.T) {
		subRepo := new(mockSubscriptionRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewUnsubscribeHandler(subRepo, outboxRepo, uow, lifecycle)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		sub, err := domain.NewSubscription(userID, testPlan(t), time.Now(), 30, ist)
		require.NoError(t, err)
		sub.ClearDomainEvents()

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		subRepo.On("FindActiveByUser", txCtx, userID).Return(sub, nil)
		subRepo.On("Save", txCtx, sub).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.MatchedBy(func(msgs []*outbox.Message) bool {
			return assert.ObjectsAreEqual([]string{domain.RoutingKeySubscriptionCancelled}, routingKeys(msgs))
		})).Return(nil)

		id, err := handler.Handle(ctx, UnsubscribeCommand{UserID: userID})

		require.NoError(t, err)
		assert.Equal(t, sub.ID(), id)
		assert.Equal(t, domain.SubscriptionCancelled, sub.Status())
		outboxRepo.AssertExpectations(t)
	})

	t.Run("no active subscription", func(t *testing.T) {
		subRepo := new(mockSubscriptionRepo)
		uow := new(mockUnitOfWork)
		handler := NewUnsubscribeHandler(subRepo, new(mockOutboxRepo), uow, lifecycle)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", mock.Anything).Return(nil)
		subRepo.On("FindActiveByUser", txCtx, userID).Return(nil, nil)

		_, err := handler.Handle(ctx, UnsubscribeCommand{UserID: userID})

		assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)
		uow.AssertExpectations(t)
	})
}

func TestRecordPaymentHandler_Handle(t *testing.T) {
	userID := uuid.New()
	lifecycle := domain.NewLifecycle(30, ist)
	paidAt := time.Date(2025, 1, 12, 9, 0, 0, 0, ist)

	setup := func(t *testing.T) (*RecordPaymentHandler, *mockSubscriptionRepo, *mockInvoiceRepo, *mockOutboxRepo, *observability.InMemoryMetrics, context.Context) {
		subRepo := new(mockSubscriptionRepo)
		invoiceRepo := new(mockInvoiceRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		metrics := observability.NewInMemoryMetrics()
		handler := NewRecordPaymentHandler(subRepo, invoiceRepo, outboxRepo, uow, lifecycle, metrics)
		handler.now = func() time.Time { return paidAt }

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		uow.On("Rollback", mock.Anything).Return(nil)
		return handler, subRepo, invoiceRepo, outboxRepo, metrics, ctx
	}

	t.Run("success pays and reactivates", func(t *testing.T) {
		handler, subRepo, invoiceRepo, outboxRepo, metrics, ctx := setup(t)
		sub, inv := expiredWithInvoice(t, userID, testPlan(t))

		subRepo.On("FindLatestByUser", mock.Anything, userID, domain.SubscriptionExpired).Return(sub, nil)
		invoiceRepo.On("FindOpenBySubscription", mock.Anything, sub.ID()).Return(inv, nil)
		invoiceRepo.On("Save", mock.Anything, inv).Return(nil)
		subRepo.On("Save", mock.Anything, sub).Return(nil)
		outboxRepo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(msgs []*outbox.Message) bool {
			return assert.ObjectsAreEqual([]string{
				domain.RoutingKeyInvoicePaid,
				domain.RoutingKeySubscriptionReactivated,
			}, routingKeys(msgs))
		})).Return(nil)

		result, err := handler.Handle(ctx, RecordPaymentCommand{UserID: userID, Status: PaymentSuccess})

		require.NoError(t, err)
		assert.Equal(t, domain.InvoicePaid, result.InvoiceStatus)
		assert.Equal(t, domain.SubscriptionActive, result.SubscriptionStatus)
		assert.Equal(t, "2025-02-11", result.EndDate.String())
		assert.Equal(t, "2025-01-12", inv.IssueDate().String())
		assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricPaymentsRecorded, observability.T("status", "success")))
		outboxRepo.AssertExpectations(t)
	})

	t.Run("pending marks overdue and keeps the subscription expired", func(t *testing.T) {
		handler, subRepo, invoiceRepo, outboxRepo, _, ctx := setup(t)
		sub, inv := expiredWithInvoice(t, userID, testPlan(t))

		subRepo.On("FindLatestByUser", mock.Anything, userID, domain.SubscriptionExpired).Return(sub, nil)
		invoiceRepo.On("FindOpenBySubscription", mock.Anything, sub.ID()).Return(inv, nil)
		invoiceRepo.On("Save", mock.Anything, inv).Return(nil)
		subRepo.On("Save", mock.Anything, sub).Return(nil)
		outboxRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

		result, err := handler.Handle(ctx, RecordPaymentCommand{UserID: userID, Status: PaymentPending})

		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceOverdue, result.InvoiceStatus)
		assert.Equal(t, domain.SubscriptionExpired, result.SubscriptionStatus)
	})

	t.Run("failed leaves everything unpaid", func(t *testing.T) {
		handler, subRepo, invoiceRepo, outboxRepo, _, ctx := setup(t)
		sub, inv := expiredWithInvoice(t, userID, testPlan(t))

		subRepo.On("FindLatestByUser", mock.Anything, userID, domain.SubscriptionExpired).Return(sub, nil)
		invoiceRepo.On("FindOpenBySubscription", mock.Anything, sub.ID()).Return(inv, nil)
		invoiceRepo.On("Save", mock.Anything, inv).Return(nil)
		subRepo.On("Save", mock.Anything, sub).Return(nil)

		result, err := handler.Handle(ctx, RecordPaymentCommand{UserID: userID, Status: PaymentFailed})

		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceUnpaid, result.InvoiceStatus)
		assert.Equal(t, domain.SubscriptionExpired, result.SubscriptionStatus)
		outboxRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
	})

	t.Run("no expired subscription", func(t *testing.T) {
		handler, subRepo, _, _, _, ctx := setup(t)
		subRepo.On("FindLatestByUser", mock.Anything, userID, domain.SubscriptionExpired).Return(nil, nil)

		_, err := handler.Handle(ctx, RecordPaymentCommand{UserID: userID, Status: PaymentSuccess})

		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	})

	t.Run("no open invoice", func(t *testing.T) {
		handler, subRepo, invoiceRepo, _, _, ctx := setup(t)
		sub, _ := expiredWithInvoice(t, userID, testPlan(t))
		subRepo.On("FindLatestByUser", mock.Anything, userID, domain.SubscriptionExpired).Return(sub, nil)
		invoiceRepo.On("FindOpenBySubscription", mock.Anything, sub.ID()).Return(nil, nil)

		_, err := handler.Handle(ctx, RecordPaymentCommand{UserID: userID, Status: PaymentSuccess})

		assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	})

	t.Run("unknown status", func(t *testing.T) {
		handler, _, _, _, _, ctx := setup(t)

		_, err := handler.Handle(ctx, RecordPaymentCommand{UserID: userID, Status: "REFUNDED"})

		assert.ErrorIs(t, err, ErrUnknownPaymentStatus)
	})
}

func TestParsePaymentStatus(t *testing.T) {
	status, err := ParsePaymentStatus(" success ")
	require.NoError(t, err)
	assert.Equal(t, PaymentSuccess, status)

	_, err = ParsePaymentStatus("")
	assert.ErrorIs(t, err, ErrUnknownPaymentStatus)
}

package usecase_test

import (
	"context"
	"strings"
	"testing"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// AdminTxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type AdminTxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *AdminTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type AdminTxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	inventory  repo.InventoryRepository

	// AdminOrderUsecase では使わないが TxRepos interface を満たすために保持
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
}

func (r *AdminTxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *AdminTxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *AdminTxReposMock) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *AdminTxReposMock) Carts() repo.CartRepository           { return r.carts }
func (r *AdminTxReposMock) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *AdminTxReposMock) Products() repo.ProductRepository     { return r.products }

// =====================
// Repository mocks (Admin向け：衝突回避)
// =====================

type AdminOrderRepoMock struct{ mock.Mock }

func (m *AdminOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) UpdateStatuses(ctx context.Context, orderID int64, status model.OrderStatus, paymentStatus model.PaymentStatus) error {
	args := m.Called(ctx, orderID, status, paymentStatus)
	return args.Error(0)
}

func (m *AdminOrderRepoMock) SetExternalPaymentID(ctx context.Context, orderID int64, externalPaymentID string) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) HasPurchasedProduct(ctx context.Context, userID int64, productID int64) (bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type AdminOrderItemRepoMock struct{ mock.Mock }

func (m *AdminOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type AdminInventoryRepoMock struct{ mock.Mock }

func (m *AdminInventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminInventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminInventoryRepoMock) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *AdminInventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	panic("not used in AdminOrderUsecase tests")
}

type AdminAuditRepoMock struct{ mock.Mock }

func (m *AdminAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

// =====================
// Helper: error contains（HTTPErrorの実装詳細に依存しない）
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

// =====================
// Fixture
// =====================

type adminFixture struct {
	tx        *AdminTxManagerMock
	orders    *AdminOrderRepoMock
	items     *AdminOrderItemRepoMock
	inventory *AdminInventoryRepoMock
	audit     *AdminAuditRepoMock
	uc        *usecase.AdminOrderUsecase
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		orders:    new(AdminOrderRepoMock),
		items:     new(AdminOrderItemRepoMock),
		inventory: new(AdminInventoryRepoMock),
		audit:     new(AdminAuditRepoMock),
	}
	f.tx = &AdminTxManagerMock{Repos: &AdminTxReposMock{
		orders:     f.orders,
		orderItems: f.items,
		inventory:  f.inventory,
	}}
	f.tx.On("WithinTx", mock.Anything).Return(nil).Maybe()
	f.uc = usecase.NewAdminOrderUsecase(f.tx, f.audit)
	return f
}

// =====================
// List
// =====================

func TestAdminOrderList_InvalidPaging(t *testing.T) {
	f := newAdminFixture()

	_, err := f.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 0, Limit: 20})
	assertErrContains(t, err, "invalid page")

	_, err = f.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 101})
	assertErrContains(t, err, "invalid limit")
}

func TestAdminOrderList_Success(t *testing.T) {
	f := newAdminFixture()

	filter := repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "CONFIRMED"}
	f.orders.On("ListAdmin", mock.Anything, filter).Return([]model.Order{
		{ID: 1, UserID: 2, Status: model.OrderStatusConfirmed, PaymentStatus: model.PaymentStatusPaid},
	}, int64(1), nil)
	f.items.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{
		{ID: 10, OrderID: 1, ProductID: 100, Quantity: 2},
	}, nil)

	out, err := f.uc.List(context.Background(), filter)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out))
	assert.Equal(t, string(model.OrderStatusConfirmed), out[0].Status)
	assert.Equal(t, 1, len(out[0].Items))

	f.orders.AssertExpectations(t)
}

// =====================
// UpdateStatus
// =====================

func TestAdminUpdateStatus_InvalidStatus(t *testing.T) {
	f := newAdminFixture()

	err := f.uc.UpdateStatus(context.Background(), 1, 1, usecase.AdminUpdateOrderStatusInput{Status: "CANCELED"})
	assertErrContains(t, err, "invalid status")
}

func TestAdminUpdateStatus_NotFound(t *testing.T) {
	f := newAdminFixture()

	f.orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{}, repo.ErrNotFound)

	err := f.uc.UpdateStatus(context.Background(), 1, 1, usecase.AdminUpdateOrderStatusInput{Status: "REJECTED"})
	assertErrContains(t, err, "not found")
}

func TestAdminUpdateStatus_SameStatusNoop(t *testing.T) {
	f := newAdminFixture()

	f.orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID: 1, Status: model.OrderStatusRejected, PaymentStatus: model.PaymentStatusPaid,
	}, nil)

	err := f.uc.UpdateStatus(context.Background(), 1, 1, usecase.AdminUpdateOrderStatusInput{Status: "REJECTED"})
	assert.NoError(t, err)

	f.orders.AssertNotCalled(t, "UpdateStatuses", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminUpdateStatus_TerminalGuard(t *testing.T) {
	f := newAdminFixture()

	f.orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID: 1, Status: model.OrderStatusDelivered, PaymentStatus: model.PaymentStatusPaid,
	}, nil)

	err := f.uc.UpdateStatus(context.Background(), 1, 1, usecase.AdminUpdateOrderStatusInput{Status: "REJECTED"})
	assertErrContains(t, err, "cannot change delivered order")
}

func TestAdminUpdateStatus_DeliveredRequiresConfirmed(t *testing.T) {
	f := newAdminFixture()

	f.orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID: 1, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending,
	}, nil)

	err := f.uc.UpdateStatus(context.Background(), 1, 1, usecase.AdminUpdateOrderStatusInput{Status: "DELIVERED"})
	assertErrContains(t, err, "order not confirmed")
}

func TestAdminUpdateStatus_RejectConfirmed_ReturnsStock(t *testing.T) {
	f := newAdminFixture()

	f.orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID: 1, Status: model.OrderStatusConfirmed, PaymentStatus: model.PaymentStatusPaid,
	}, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{
		{ID: 10, OrderID: 1, ProductID: 100, Quantity: 2},
		{ID: 11, OrderID: 1, ProductID: 200, Quantity: 1},
	}, nil)
	f.inventory.On("IncreaseStock", mock.Anything, int64(100), int64(2)).Return(nil)
	f.inventory.On("IncreaseStock", mock.Anything, int64(200), int64(1)).Return(nil)
	//決済ステータスは変えない（PAIDのまま）
	f.orders.On("UpdateStatuses", mock.Anything, int64(1), model.OrderStatusRejected, model.PaymentStatusPaid).Return(nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == 7 && l.ResourceID == 1 &&
			strings.Contains(l.BeforeJSON, "CONFIRMED") &&
			strings.Contains(l.AfterJSON, "REJECTED")
	})).Return(nil)

	err := f.uc.UpdateStatus(context.Background(), 7, 1, usecase.AdminUpdateOrderStatusInput{Status: "REJECTED"})
	assert.NoError(t, err)

	f.inventory.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestAdminUpdateStatus_RejectPending_DoesNotTouchStock(t *testing.T) {
	f := newAdminFixture()

	//PENDINGは在庫をまだ減らしていないので戻さない
	f.orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID: 1, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending,
	}, nil)
	f.orders.On("UpdateStatuses", mock.Anything, int64(1), model.OrderStatusRejected, model.PaymentStatusPending).Return(nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := f.uc.UpdateStatus(context.Background(), 7, 1, usecase.AdminUpdateOrderStatusInput{Status: "REJECTED"})
	assert.NoError(t, err)

	f.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminUpdateStatus_Delivered_Success(t *testing.T) {
	f := newAdminFixture()

	f.orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID: 1, Status: model.OrderStatusConfirmed, PaymentStatus: model.PaymentStatusPaid,
	}, nil)
	f.orders.On("UpdateStatuses", mock.Anything, int64(1), model.OrderStatusDelivered, model.PaymentStatusPaid).Return(nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := f.uc.UpdateStatus(context.Background(), 7, 1, usecase.AdminUpdateOrderStatusInput{Status: "DELIVERED"})
	assert.NoError(t, err)

	f.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertExpectations(t)
}

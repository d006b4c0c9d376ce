package usecase_test

import (
	"context"
	"testing"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// ChkのTxManager/Repoモックを使い回す（同じ形のため）

func newOrderFixture() (*usecase.OrderUsecase, *ChkOrderRepoMock, *ChkOrderItemRepoMock) {
	orders := new(ChkOrderRepoMock)
	items := new(ChkOrderItemRepoMock)
	tx := &ChkTxManagerMock{Repos: &ChkTxReposMock{
		orders:     orders,
		orderItems: items,
	}}
	tx.On("WithinTx", mock.Anything).Return(nil).Maybe()
	return usecase.NewOrderUsecase(tx), orders, items
}

func TestListMyOrders_Success(t *testing.T) {
	uc, orders, items := newOrderFixture()

	orders.On("ListByUserID", mock.Anything, int64(1), 1, 50).Return([]model.Order{
		{ID: 1, UserID: 1, Status: model.OrderStatusConfirmed, PaymentStatus: model.PaymentStatusPaid, TotalPrice: 460},
	}, int64(1), nil)
	items.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{
		{ID: 10, OrderID: 1, ProductID: 100, ProductNameSnapshot: "Coffee", UnitPriceSnapshot: 80, Quantity: 2},
	}, nil)

	out, err := uc.ListMyOrders(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out))
	assert.Equal(t, int64(460), out[0].TotalPrice)
	assert.Equal(t, "Coffee", out[0].Items[0].Name)
}

func TestGetMyOrderDetail_OtherUsersOrder_LooksNotFound(t *testing.T) {
	uc, orders, _ := newOrderFixture()

	orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{ID: 1, UserID: 2}, nil)

	_, err := uc.GetMyOrderDetail(context.Background(), 1, 1)
	assertErrContains(t, err, "not found")
}

func TestGetMyOrderDetail_Success(t *testing.T) {
	uc, orders, items := newOrderFixture()

	orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID: 1, UserID: 1, AddressID: 9,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		TotalPrice:    300,
	}, nil)
	items.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{
		{ID: 10, OrderID: 1, ProductID: 100, ProductNameSnapshot: "Coffee", UnitPriceSnapshot: 300, Quantity: 1},
	}, nil)

	out, err := uc.GetMyOrderDetail(context.Background(), 1, 1)
	assert.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusPending), out.Status)
	assert.Equal(t, int64(9), out.AddressID)
	assert.Equal(t, 1, len(out.Items))
}

func TestGetMyOrderDetail_NotFound(t *testing.T) {
	uc, orders, _ := newOrderFixture()

	orders.On("FindByID", mock.Anything, int64(99)).Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.GetMyOrderDetail(context.Background(), 1, 99)
	assertErrContains(t, err, "not found")
}

package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page          int
	Limit         int
	Status        string
	PaymentStatus string
	UserID        *int64
	From          *time.Time
	To            *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	//注文ステータスと決済ステータスをまとめて更新する
	UpdateStatuses(ctx context.Context, orderID int64, status model.OrderStatus, paymentStatus model.PaymentStatus) error

	//決済ゲートウェイの取引IDを保存する
	SetExternalPaymentID(ctx context.Context, orderID int64, externalPaymentID string) error

	//レビュー資格チェック用。CONFIRMED/DELIVEREDの注文にその商品が含まれるか
	HasPurchasedProduct(ctx context.Context, userID int64, productID int64) (bool, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}

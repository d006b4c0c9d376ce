package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type ReviewRepository interface {
	Create(ctx context.Context, review model.Review) (model.Review, error)
	ListByProductID(ctx context.Context, productID int64, page int, limit int) ([]model.Review, int64, error)
	//同じユーザーが同じ商品に書いた既存レビューの有無
	ExistsByUserAndProduct(ctx context.Context, userID int64, productID int64) (bool, error)
}

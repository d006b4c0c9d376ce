package model

import "time"

// 商品レビュー。
// CONFIRMED/DELIVERED の注文で買った商品にだけ書ける。
// 重複チェックは (user_id, product_id) 単位。
type Review struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index;uniqueIndex:uq_user_product_review" json:"user_id"`
	ProductID int64     `gorm:"not null;index;uniqueIndex:uq_user_product_review" json:"product_id"`
	Rating    int64     `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

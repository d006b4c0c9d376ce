package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	//通常価格（最小通貨単位）
	Price int64 `gorm:"not null" json:"price"`

	//セール価格。0なら未設定でPriceをそのまま使う
	SalePrice int64 `gorm:"not null;default:0" json:"sale_price"`

	Stock       int64          `gorm:"not null" json:"stock"`
	Category    string         `gorm:"type:varchar(100);index" json:"category"`
	SubCategory string         `gorm:"type:varchar(100)" json:"sub_category"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// SalePriceが設定されていればそちらを優先する
func (p Product) EffectivePrice() int64 {
	if p.SalePrice > 0 {
		return p.SalePrice
	}
	return p.Price
}

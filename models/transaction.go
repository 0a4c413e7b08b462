package models

import (
	"time"
)

type Transaction struct {
	ID     uint      `gorm:"primaryKey;autoIncrement"`
	UserID uint      `gorm:"column:user_id;not null;index"`
	User   User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Date   time.Time `gorm:"column:date;type:date;not null"` // дата записи, выставляется при создании
	Amount float64   `gorm:"column:amount;not null"`         // положительная = доход, отрицательная = расход
}

func (Transaction) TableName() string {
	return "transactions"
}

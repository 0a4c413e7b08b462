package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint          `gorm:"primaryKey;autoIncrement"`
	Email        string        `gorm:"column:email;unique;not null;size:100;index"`
	Password     string        `gorm:"column:password;not null;size:100"`
	FirstName    string        `gorm:"column:first_name;not null;size:60"`
	LastName     string        `gorm:"column:last_name;not null;size:60"`
	DateJoined   time.Time     `gorm:"column:date_joined;default:CURRENT_TIMESTAMP"`
	LastLogin    time.Time     `gorm:"column:last_login;default:CURRENT_TIMESTAMP"`
	IsAdmin      bool          `gorm:"column:is_admin;not null;default:false"`
	IsActive     bool          `gorm:"column:is_active;not null;default:true"`
	IsStaff      bool          `gorm:"column:is_staff;not null;default:false"`
	IsSuperuser  bool          `gorm:"column:is_superuser;not null;default:false"`
	Transactions []Transaction `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate хук для валидации перед созданием
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if len(u.Email) < 3 || len(u.Email) > 100 {
		return errors.New("email must be between 3 and 100 characters")
	}
	if len(u.FirstName) > 60 {
		return errors.New("first name must be at most 60 characters")
	}
	if len(u.LastName) > 60 {
		return errors.New("last name must be at most 60 characters")
	}
	return nil
}

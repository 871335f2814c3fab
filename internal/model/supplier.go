package model

import "time"

// Supplier represents the supplier model stored in the database
type Supplier struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	Name          string    `json:"name" gorm:"type:varchar(200);index;not null"`
	ContactPerson string    `json:"contact_person" gorm:"type:varchar(100)"`
	Email         string    `json:"email" gorm:"type:varchar(150)"`
	Phone         string    `json:"phone" gorm:"type:varchar(20)"`
	Address       string    `json:"address" gorm:"type:text"`
	City          string    `json:"city" gorm:"type:varchar(100)"`
	Country       string    `json:"country" gorm:"type:varchar(100)"`
	CreatedAt     time.Time `json:"created_at"`
}

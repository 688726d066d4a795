package model

import "fmt"

type Vehicle struct {
	BaseModel
	Make         string        `gorm:"type:varchar(100);not null" json:"make" validate:"required"`
	Model        string        `gorm:"type:varchar(100);not null" json:"model" validate:"required"`
	Year         int           `gorm:"not null" json:"year" validate:"required,gte=1980"`
	PlateNumber  string        `gorm:"type:varchar(20);uniqueIndex;not null" json:"plate_number" validate:"required"`
	Type         string        `gorm:"type:varchar(50)" json:"type"`
	Transmission string        `gorm:"type:varchar(20)" json:"transmission" validate:"omitempty,oneof=manual automatic"`
	Capacity     int           `gorm:"default:4" json:"capacity" validate:"gte=1"`
	DailyRate    int64         `gorm:"not null" json:"daily_rate" validate:"required,gt=0"`
	Status       VehicleStatus `gorm:"type:varchar(20);default:'available';index" json:"status"`
	Description  string        `gorm:"type:text" json:"description,omitempty"`
}

// DisplayName is used as the payment line item, e.g. "Toyota Avanza Rental".
func (v *Vehicle) DisplayName() string {
	return fmt.Sprintf("%s %s Rental", v.Make, v.Model)
}

func (v *Vehicle) Available() bool {
	return v.Status == VehicleAvailable
}

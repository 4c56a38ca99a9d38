package model

import (
	"time"

	"github.com/careslot/careslot/internal/schedule"
)

type Doctor struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Gender         string
	Phone          string
	Age            int
	Specialization string
	Experience     int
	Schedule       schedule.Weekly
	Fees           float64
	Available      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

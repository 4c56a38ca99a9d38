package model

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Gender       string
	Phone        string
	Role         string
	Age          int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

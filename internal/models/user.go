package models

import "time"

type User struct {
	UserID    int64     `json:"user_id"` // telegram id
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

package repository

import (
	"context"

	"github.com/mkazakova/remindbot/internal/database"
	"github.com/mkazakova/remindbot/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate registers a user on first contact and refreshes the stored
// username on subsequent ones.
func (r *UserRepository) GetOrCreate(ctx context.Context, userID int64, username, firstName string) (*models.User, error) {
	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (user_id, username, first_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
		 RETURNING user_id, username, first_name, is_active, created_at`,
		userID, username, firstName,
	).Scan(&user.UserID, &user.Username, &user.FirstName, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

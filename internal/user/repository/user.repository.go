package repository

import (
	"database/sql"

	"cratetrack/internal/user/model"
	"cratetrack/pkg/logger"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(p *model.Profile) error {
	_, err := r.DB.Exec(
		`INSERT INTO users (id, name, email, role, created_at, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Email, p.Role, p.CreatedAt, p.PasswordHash)
	if err != nil {
		logger.Sugar.Errorf("Failed to create user %s: %v", p.Email, err)
	}
	return err
}

// GetByEmail returns sql.ErrNoRows untouched so the service can report
// "no account" separately from other failures.
func (r *UserRepository) GetByEmail(email string) (*model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRow(
		`SELECT id, name, email, role, created_at, password_hash FROM users WHERE email = $1`,
		email).Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.CreatedAt, &p.PasswordHash)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get user by email %s: %v", email, err)
		}
		return nil, err
	}
	return &p, nil
}

func (r *UserRepository) GetByID(id string) (*model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRow(
		`SELECT id, name, email, role, created_at, password_hash FROM users WHERE id = $1`,
		id).Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.CreatedAt, &p.PasswordHash)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get user %s: %v", id, err)
		}
		return nil, err
	}
	return &p, nil
}

func (r *UserRepository) UpdateRole(id, role string) (int64, error) {
	result, err := r.DB.Exec(`UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to update role for user %s: %v", id, err)
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) List() ([]model.Profile, error) {
	rows, err := r.DB.Query(`SELECT id, name, email, role, created_at FROM users`)
	if err != nil {
		logger.Sugar.Errorf("Failed to list users: %v", err)
		return nil, err
	}
	defer rows.Close()

	profiles := []model.Profile{}
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.CreatedAt); err != nil {
			logger.Sugar.Errorf("Failed to scan user row: %v", err)
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

func (r *Repository) CreateUser(user *domain.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, full_name, email, role, timezone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, version
	`
	params := []any{user.ID, user.FullName, user.Email, user.Role, user.Timezone, user.IsActive}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&user.CreatedAt, &user.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAllUsers() ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT id, full_name, email, role, timezone, is_active, created_at, version FROM users
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		dst := []any{&user.ID, &user.FullName, &user.Email, &user.Role, &user.Timezone, &user.IsActive, &user.CreatedAt, &user.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// FindMissingUsers 返回给定 ID 中数据库里不存在的那部分，
// 传播器用它来检查模板引用的老师和学生是否还在。
func (r *Repository) FindMissingUsers(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT id FROM users WHERE id = ANY($1)`

	rows, err := r.dbpool.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	missing := make([]string, 0)
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}

	return missing, nil
}

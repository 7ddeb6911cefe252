package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

func (r *Repository) CreateShiftTemplate(st *domain.ShiftTemplate) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}

	query := `
		INSERT INTO shift_templates (id, owner_id, local_start_time, local_end_time, timezone, horizon_days, subject, note, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, last_modified_at, version
	`
	params := []any{st.ID, st.OwnerID, st.LocalStartTime, st.LocalEndTime, st.Timezone, st.HorizonDays, st.Subject, st.Note, st.IsActive}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&st.CreatedAt, &st.LastModifiedAt, &st.Version); err != nil {
		return err
	}

	if err := insertShiftTemplateChildren(ctx, tx, st); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func insertShiftTemplateChildren(ctx context.Context, tx *sql.Tx, st *domain.ShiftTemplate) error {
	for _, weekday := range st.Weekdays {
		query := `
			INSERT INTO shift_template_weekdays (template_id, weekday)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, st.ID, weekday); err != nil {
			return err
		}
	}

	// position 保留参与者的展示顺序，正确性上顺序无关紧要
	for i, participantID := range st.ParticipantIDs {
		query := `
			INSERT INTO shift_template_participants (template_id, participant_id, position)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, st.ID, participantID, i); err != nil {
			return err
		}
	}

	for _, excludedDate := range st.ExcludedDates {
		query := `
			INSERT INTO shift_template_excluded_dates (template_id, excluded_date)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, st.ID, excludedDate); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) GetShiftTemplate(id string) (*domain.ShiftTemplate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT owner_id, local_start_time, local_end_time, timezone, horizon_days, subject, note, is_active, created_at, last_modified_at, version
		FROM shift_templates WHERE id = $1
	`

	st := &domain.ShiftTemplate{
		ID: id,
	}

	dst := []any{&st.OwnerID, &st.LocalStartTime, &st.LocalEndTime, &st.Timezone, &st.HorizonDays, &st.Subject, &st.Note, &st.IsActive, &st.CreatedAt, &st.LastModifiedAt, &st.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := r.loadShiftTemplateChildren(ctx, st); err != nil {
		return nil, err
	}

	return st, nil
}

func (r *Repository) loadShiftTemplateChildren(ctx context.Context, st *domain.ShiftTemplate) error {
	st.Weekdays = make([]int32, 0)
	st.ParticipantIDs = make([]string, 0)
	st.ExcludedDates = make([]string, 0)

	query := `SELECT weekday FROM shift_template_weekdays WHERE template_id = $1 ORDER BY weekday`
	rows, err := r.dbpool.QueryContext(ctx, query, st.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var weekday int32
		if err := rows.Scan(&weekday); err != nil {
			return err
		}
		st.Weekdays = append(st.Weekdays, weekday)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	query = `SELECT participant_id FROM shift_template_participants WHERE template_id = $1 ORDER BY position`
	rows, err = r.dbpool.QueryContext(ctx, query, st.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var participantID string
		if err := rows.Scan(&participantID); err != nil {
			return err
		}
		st.ParticipantIDs = append(st.ParticipantIDs, participantID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	query = `SELECT excluded_date FROM shift_template_excluded_dates WHERE template_id = $1 ORDER BY excluded_date`
	rows, err = r.dbpool.QueryContext(ctx, query, st.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var excludedDate string
		if err := rows.Scan(&excludedDate); err != nil {
			return err
		}
		st.ExcludedDates = append(st.ExcludedDates, excludedDate)
	}

	return rows.Err()
}

func (r *Repository) getShiftTemplates(where string, args ...any) ([]*domain.ShiftTemplate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT id, owner_id, local_start_time, local_end_time, timezone, horizon_days, subject, note, is_active, created_at, last_modified_at, version
		FROM shift_templates ` + where + ` ORDER BY created_at
	`

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sts := make([]*domain.ShiftTemplate, 0)
	for rows.Next() {
		st := &domain.ShiftTemplate{}
		dst := []any{&st.ID, &st.OwnerID, &st.LocalStartTime, &st.LocalEndTime, &st.Timezone, &st.HorizonDays, &st.Subject, &st.Note, &st.IsActive, &st.CreatedAt, &st.LastModifiedAt, &st.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		sts = append(sts, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, st := range sts {
		if err := r.loadShiftTemplateChildren(ctx, st); err != nil {
			return nil, err
		}
	}

	return sts, nil
}

func (r *Repository) GetAllShiftTemplates() ([]*domain.ShiftTemplate, error) {
	return r.getShiftTemplates("")
}

func (r *Repository) GetActiveShiftTemplates() ([]*domain.ShiftTemplate, error) {
	return r.getShiftTemplates("WHERE is_active = true")
}

// GetInactiveShiftTemplatesWithFutureShifts 返回已停用但仍然挂着
// 未来 scheduled 生成班次的模板。停用时的内联取消失败后，
// 调度器靠它找到需要补取消的模板。
func (r *Repository) GetInactiveShiftTemplatesWithFutureShifts(now time.Time) ([]*domain.ShiftTemplate, error) {
	return r.getShiftTemplates(`
		WHERE is_active = false AND EXISTS (
			SELECT 1 FROM teaching_shifts s
			WHERE s.template_id = shift_templates.id
				AND s.origin = $1 AND s.status = $2 AND s.start_at > $3
		)`,
		domain.ShiftOriginGenerated, domain.ShiftStatusScheduled, now,
	)
}

// UpdateShiftTemplate 以乐观锁的方式更新模板及其子表，
// 版本号不匹配时返回 sql.ErrNoRows，由调用方提示重试。
func (r *Repository) UpdateShiftTemplate(st *domain.ShiftTemplate) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE shift_templates
		SET
			owner_id = $1,
			local_start_time = $2,
			local_end_time = $3,
			timezone = $4,
			horizon_days = $5,
			subject = $6,
			note = $7,
			is_active = $8,
			last_modified_at = now(),
			version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING last_modified_at, version
	`
	params := []any{st.OwnerID, st.LocalStartTime, st.LocalEndTime, st.Timezone, st.HorizonDays, st.Subject, st.Note, st.IsActive, st.ID, st.Version}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&st.LastModifiedAt, &st.Version); err != nil {
		return err
	}

	// 子表直接重建，老的行对不上新的集合时没有保留价值
	for _, table := range []string{"shift_template_weekdays", "shift_template_participants", "shift_template_excluded_dates"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE template_id = $1`, st.ID); err != nil {
			return err
		}
	}
	if err := insertShiftTemplateChildren(ctx, tx, st); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

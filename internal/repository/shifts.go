package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

// CreateShiftIfAbsent 以 ON CONFLICT DO NOTHING 的方式写入班次。
// 生成班次的 ID 由 (模板 ID, 开始时刻) 确定性导出，所以这一步在并发
// 写入者同时尝试同一个 ID 时也是安全的，不需要额外的锁。
// 返回值表示这次调用是否真正插入了新行。
func (r *Repository) CreateShiftIfAbsent(s *domain.Shift) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO teaching_shifts (id, template_id, owner_id, subject, start_at, end_at, status, origin, template_version, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	params := []any{s.ID, s.TemplateID, s.OwnerID, s.Subject, s.StartAt, s.EndAt, s.Status, s.Origin, s.TemplateVersion, s.Note}
	res, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// 班次已存在，保持幂等，什么都不做
		return false, nil
	}

	for i, participantID := range s.ParticipantIDs {
		query := `
			INSERT INTO teaching_shift_participants (shift_id, participant_id, position)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, s.ID, participantID, i); err != nil {
			return false, err
		}
	}

	query = `SELECT created_at, last_modified_at, version FROM teaching_shifts WHERE id = $1`
	if err := tx.QueryRowContext(ctx, query, s.ID).Scan(&s.CreatedAt, &s.LastModifiedAt, &s.Version); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return true, nil
}

const shiftColumns = `id, template_id, owner_id, subject, start_at, end_at, status, origin, template_version, room_handle, note, created_at, last_modified_at, version`

func scanShift(rows *sql.Rows) (*domain.Shift, error) {
	s := &domain.Shift{}
	dst := []any{&s.ID, &s.TemplateID, &s.OwnerID, &s.Subject, &s.StartAt, &s.EndAt, &s.Status, &s.Origin, &s.TemplateVersion, &s.RoomHandle, &s.Note, &s.CreatedAt, &s.LastModifiedAt, &s.Version}
	if err := rows.Scan(dst...); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) getShifts(where string, args ...any) ([]*domain.Shift, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT ` + shiftColumns + ` FROM teaching_shifts ` + where + ` ORDER BY start_at, id`

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]*domain.Shift, 0)
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, s := range shifts {
		if err := r.loadShiftParticipants(ctx, s); err != nil {
			return nil, err
		}
	}

	return shifts, nil
}

func (r *Repository) loadShiftParticipants(ctx context.Context, s *domain.Shift) error {
	s.ParticipantIDs = make([]string, 0)

	query := `SELECT participant_id FROM teaching_shift_participants WHERE shift_id = $1 ORDER BY position`
	rows, err := r.dbpool.QueryContext(ctx, query, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var participantID string
		if err := rows.Scan(&participantID); err != nil {
			return err
		}
		s.ParticipantIDs = append(s.ParticipantIDs, participantID)
	}

	return rows.Err()
}

func (r *Repository) GetShift(id string) (*domain.Shift, error) {
	shifts, err := r.getShifts("WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, sql.ErrNoRows
	}
	return shifts[0], nil
}

// GetFutureScheduledGeneratedShifts 返回某模板所有还没开始且仍是
// scheduled 状态的生成班次，这是传播器唯一允许修改的集合。
func (r *Repository) GetFutureScheduledGeneratedShifts(templateID string, now time.Time) ([]*domain.Shift, error) {
	return r.getShifts(
		"WHERE template_id = $1 AND origin = $2 AND status = $3 AND start_at > $4",
		templateID, domain.ShiftOriginGenerated, domain.ShiftStatusScheduled, now,
	)
}

// GetScheduledShifts 返回所有 scheduled 状态的班次，供去重审计使用。
func (r *Repository) GetScheduledShifts() ([]*domain.Shift, error) {
	return r.getShifts("WHERE status = $1", domain.ShiftStatusScheduled)
}

type ShiftFilter struct {
	OwnerID       string
	ParticipantID string
	From          *time.Time
	To            *time.Time
}

func (r *Repository) QueryShifts(filter ShiftFilter) ([]*domain.Shift, error) {
	where := "WHERE 1 = 1"
	args := []any{}

	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where += " AND owner_id = $" + strconv.Itoa(len(args))
	}
	if filter.ParticipantID != "" {
		args = append(args, filter.ParticipantID)
		where += " AND id IN (SELECT shift_id FROM teaching_shift_participants WHERE participant_id = $" + strconv.Itoa(len(args)) + ")"
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += " AND start_at >= $" + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += " AND start_at < $" + strconv.Itoa(len(args))
	}

	return r.getShifts(where, args...)
}

// RescheduleShift 在模板的时间或时区被修改后原地更新班次的时刻。
// ID 需要一并换成由新开始时刻导出的值，这样班次的标识
// 和 (模板 ID, 开始时刻) 保持一致，后续的生成仍然幂等；
// 行本身不动，备注等无关字段全部保留。
func (r *Repository) RescheduleShift(oldID string, newID string, startAt time.Time, endAt time.Time, templateVersion int32) error {
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
		UPDATE teaching_shifts
		SET
			id = $1,
			start_at = $2,
			end_at = $3,
			template_version = $4,
			last_modified_at = now(),
			version = version + 1
		WHERE id = $5 AND status = $6
	`
	if _, err := tx.ExecContext(ctx, query, newID, startAt, endAt, templateVersion, oldID, domain.ShiftStatusScheduled); err != nil {
		return err
	}

	if oldID != newID {
		query = `UPDATE teaching_shift_participants SET shift_id = $1 WHERE shift_id = $2`
		if _, err := tx.ExecContext(ctx, query, newID, oldID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateShiftSnapshot 把模板上的负责人/参与者/科目快照刷新到班次上。
func (r *Repository) UpdateShiftSnapshot(id string, ownerID string, participantIDs []string, subject string, templateVersion int32) error {
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
		UPDATE teaching_shifts
		SET
			owner_id = $1,
			subject = $2,
			template_version = $3,
			last_modified_at = now(),
			version = version + 1
		WHERE id = $4 AND status = $5
	`
	if _, err := tx.ExecContext(ctx, query, ownerID, subject, templateVersion, id, domain.ShiftStatusScheduled); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM teaching_shift_participants WHERE shift_id = $1`, id); err != nil {
		return err
	}
	for i, participantID := range participantIDs {
		query = `
			INSERT INTO teaching_shift_participants (shift_id, participant_id, position)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, id, participantID, i); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// CancelShift 把班次标记为 cancelled 而不是删除，保留审计痕迹。
func (r *Repository) CancelShift(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		UPDATE teaching_shifts
		SET status = $1, last_modified_at = now(), version = version + 1
		WHERE id = $2 AND status = $3
	`
	_, err := r.dbpool.ExecContext(ctx, query, domain.ShiftStatusCancelled, id, domain.ShiftStatusScheduled)
	return err
}

// DeleteShift 删除一个从未开始、且新的循环规则已经不再覆盖的生成班次。
func (r *Repository) DeleteShift(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM teaching_shift_participants WHERE shift_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teaching_shifts WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) SetShiftRoomHandle(id string, handle string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		UPDATE teaching_shifts
		SET room_handle = $1, last_modified_at = now(), version = version + 1
		WHERE id = $2
	`
	res, err := r.dbpool.ExecContext(ctx, query, handle, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

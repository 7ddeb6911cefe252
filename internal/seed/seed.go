package seed

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/generator"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/utils"
)

// SeedUsers 插入随机的老师和学生。
func SeedUsers(r *repository.Repository, cfg *config.Config, teacherNum int, studentNum int) {
	inserted := 0

	for i := 0; i < teacherNum; i++ {
		user := utils.GenerateRandomUser(domain.RoleTeacher, "example.com", cfg.Seed.TemplateTimezones)
		if err := r.CreateUser(user); err != nil {
			slog.Error("无法插入老师", "error", err)
			continue
		}
		inserted++
	}

	for i := 0; i < studentNum; i++ {
		user := utils.GenerateRandomUser(domain.RoleStudent, "example.com", cfg.Seed.TemplateTimezones)
		if err := r.CreateUser(user); err != nil {
			slog.Error("无法插入学生", "error", err)
			continue
		}
		inserted++
	}

	slog.Info("用户插入完成", "inserted", inserted)
}

// SeedShiftTemplates 为库里已有的老师插入随机模板，
// 参与学生从已有学生里随机挑选。
func SeedShiftTemplates(r *repository.Repository, cfg *config.Config, n int) {
	users, err := r.GetAllUsers()
	if err != nil {
		slog.Error("无法获取用户", "error", err)
		return
	}

	teachers := make([]*domain.User, 0)
	students := make([]*domain.User, 0)
	for _, user := range users {
		switch user.Role {
		case domain.RoleTeacher:
			teachers = append(teachers, user)
		case domain.RoleStudent:
			students = append(students, user)
		}
	}

	if len(teachers) == 0 || len(students) == 0 {
		slog.Error("请先插入老师和学生")
		return
	}

	inserted := 0
	for i := 0; i < n; i++ {
		teacher := teachers[rand.Intn(len(teachers))]

		participantNum := min(rand.Intn(3)+1, len(students))
		rand.Shuffle(len(students), func(i, j int) {
			students[i], students[j] = students[j], students[i]
		})
		participantIDs := make([]string, 0, participantNum)
		for _, student := range students[:participantNum] {
			participantIDs = append(participantIDs, student.ID)
		}

		st := utils.GenerateRandomShiftTemplate(teacher.ID, participantIDs, cfg.Seed.TemplateTimezones)
		if err := utils.ValidateShiftTemplate(st, time.Now().UTC()); err != nil {
			slog.Error("生成的模板未通过校验", "error", err)
			continue
		}
		if err := r.CreateShiftTemplate(st); err != nil {
			slog.Error("无法插入模板", "error", err)
			continue
		}
		inserted++
	}

	slog.Info("模板插入完成", "inserted", inserted)
}

// SeedLegacyShifts 插入独立的手动班次，用来在开发环境里演练去重审计：
// 一部分手动班次会故意和模板生成的班次占用同一个 (老师, 开始时刻)。
func SeedLegacyShifts(r *repository.Repository, n int) {
	shifts, err := r.GetScheduledShifts()
	if err != nil {
		slog.Error("无法获取班次", "error", err)
		return
	}

	generated := make([]*domain.Shift, 0)
	for _, s := range shifts {
		if s.Origin == domain.ShiftOriginGenerated {
			generated = append(generated, s)
		}
	}
	if len(generated) == 0 {
		slog.Error("请先生成一些模板班次")
		return
	}

	inserted := 0
	for i := 0; i < n; i++ {
		source := generated[rand.Intn(len(generated))]

		duplicate := &domain.Shift{
			ID:             generator.NewManualShiftID(),
			TemplateID:     nil,
			OwnerID:        source.OwnerID,
			ParticipantIDs: source.ParticipantIDs,
			Subject:        source.Subject,
			StartAt:        source.StartAt,
			EndAt:          source.EndAt,
			Status:         domain.ShiftStatusScheduled,
			Origin:         domain.ShiftOriginManual,
			Note:           "历史遗留数据演示",
		}
		if _, err := r.CreateShiftIfAbsent(duplicate); err != nil {
			slog.Error("无法插入手动班次", "error", err)
			continue
		}
		inserted++
	}

	slog.Info("手动班次插入完成", "inserted", inserted)
}

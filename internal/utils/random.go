package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, p := range pinyinArray {
		length := rand.Intn(len(p)) + 1
		username += p[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(role domain.Role, emailDomainName string, timezones []string) *domain.User {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)

	timezone := "UTC"
	if len(timezones) > 0 {
		timezone = timezones[rand.Intn(len(timezones))]
	}

	return &domain.User{
		FullName: fullName,
		Email:    username + "@" + emailDomainName,
		Role:     role,
		Timezone: timezone,
		IsActive: true,
	}
}

// GenerateRandomWeekdays 用 Fisher-Yates 洗牌生成随机的星期集合
func GenerateRandomWeekdays() []int32 {
	weekdays := []int32{1, 2, 3, 4, 5, 6, 7}

	for i := len(weekdays) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		weekdays[i], weekdays[j] = weekdays[j], weekdays[i]
	}

	n := rand.Intn(3) + 1
	return weekdays[:n]
}

var subjects = []string{"数学", "英语", "物理", "化学", "语文", "编程"}

func GenerateRandomShiftTemplate(ownerID string, participantIDs []string, timezones []string) *domain.ShiftTemplate {
	startHour := rand.Intn(12) + 8 // 8 点到 19 点之间开始
	startMinute := []int{0, 30}[rand.Intn(2)]
	durationMinutes := []int{60, 90, 120}[rand.Intn(3)]

	endHour := startHour + (startMinute+durationMinutes)/60
	endMinute := (startMinute + durationMinutes) % 60

	timezone := "UTC"
	if len(timezones) > 0 {
		timezone = timezones[rand.Intn(len(timezones))]
	}

	return &domain.ShiftTemplate{
		OwnerID:        ownerID,
		ParticipantIDs: participantIDs,
		Weekdays:       GenerateRandomWeekdays(),
		LocalStartTime: fmt.Sprintf("%02d:%02d", startHour, startMinute),
		LocalEndTime:   fmt.Sprintf("%02d:%02d", endHour, endMinute),
		Timezone:       timezone,
		HorizonDays:    10,
		Subject:        subjects[rand.Intn(len(subjects))],
		IsActive:       true,
	}
}

// Package testutil 为各包测试提供内存数据库与 redis
package testutil

import (
	"exam_portal_backend/internal/model"
	"exam_portal_backend/pkg/database"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 打开内存 sqlite 并建表。只保留一个连接，事务之间串行执行
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

func CreateUser(t *testing.T, db *gorm.DB, schoolID string, role model.UserRole, password string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &model.User{
		SchoolID: schoolID,
		FullName: "User " + schoolID,
		Password: string(hash),
		Role:     role,
	}
	if role == model.Student {
		year := 1
		section := "A"
		u.YearLevel = &year
		u.Section = &section
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// QuestionSpec 测试用题目定义
type QuestionSpec struct {
	Type    model.QuestionType
	Correct string
	Points  int
}

// CreateActiveExam 创建一场 1 年级 A 班的已发布考试
func CreateActiveExam(t *testing.T, db *gorm.DB, facultyID uint, questions ...QuestionSpec) (*model.Exam, []model.Question) {
	t.Helper()

	exam := &model.Exam{
		Title:        "Midterm",
		Instructions: "Answer all questions",
		SubjectID:    1,
		YearLevel:    1,
		Section:      "A",
		CreatedBy:    facultyID,
		Status:       model.ExamActive,
		TimeLimit:    45,
	}
	if err := db.Create(exam).Error; err != nil {
		t.Fatalf("create exam: %v", err)
	}

	qs := make([]model.Question, 0, len(questions))
	for i, spec := range questions {
		q := model.Question{
			ExamID:        exam.ID,
			QuestionText:  "Question text",
			QuestionType:  spec.Type,
			CorrectAnswer: spec.Correct,
			Points:        spec.Points,
			QuestionOrder: i + 1,
		}
		if spec.Type == model.MultipleChoice {
			q.Options = []model.QuestionOption{
				{Label: "A", Text: "first"},
				{Label: "B", Text: "second"},
				{Label: "C", Text: "third"},
				{Label: "D", Text: "fourth"},
			}
		}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("create question: %v", err)
		}
		qs = append(qs, q)
	}
	return exam, qs
}

package repository

import (
	"context"
	"encoding/json"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamRepository struct {
	DB       *gorm.DB
	Redis    *redis.Client
	CacheTTL time.Duration
}

func NewExamRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *ExamRepository {
	return &ExamRepository{DB: db, Redis: rdb, CacheTTL: ttl}
}

// WithTx 返回绑定到事务的副本，缓存客户端共用
func (r *ExamRepository) WithTx(tx *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: tx, Redis: r.Redis, CacheTTL: r.CacheTTL}
}

func (r *ExamRepository) CreateExam(exam *model.Exam) error {
	return r.DB.Create(exam).Error
}

func (r *ExamRepository) FindByID(id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.First(&exam, id).Error
	return &exam, err
}

// FindByIDForUpdate 锁定考试行，题目写入与状态变更在同一把锁下串行
func (r *ExamRepository) FindByIDForUpdate(id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&exam, id).Error
	return &exam, err
}

func (r *ExamRepository) FindActiveByID(id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.Where("id = ? AND status = ?", id, model.ExamActive).First(&exam).Error
	return &exam, err
}

func (r *ExamRepository) ListByCreator(facultyID uint) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.Where("created_by = ?", facultyID).Order("created_at desc, id desc").Find(&exams).Error
	return exams, err
}

// ListActiveForClass 学生所在年级与班级的已发布考试，班级不区分大小写
func (r *ExamRepository) ListActiveForClass(yearLevel int, section string) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.Where("year_level = ? AND LOWER(section) = LOWER(?) AND status = ?", yearLevel, section, model.ExamActive).
		Order("created_at desc, id desc").
		Find(&exams).Error
	return exams, err
}

func (r *ExamRepository) UpdateStatus(examID uint, status model.ExamStatus) error {
	return r.DB.Model(&model.Exam{}).Where("id = ?", examID).Update("status", status).Error
}

func (r *ExamRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Create(q).Error
}

// ListQuestions 按作者录入顺序返回题目
func (r *ExamRepository) ListQuestions(examID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("exam_id = ?", examID).Order("question_order asc, id asc").Find(&qs).Error
	return qs, err
}

func (r *ExamRepository) CountQuestions(examID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("exam_id = ?", examID).Count(&count).Error
	return count, err
}

func (r *ExamRepository) NextQuestionOrder(examID uint) (int, error) {
	var maxOrder int
	err := r.DB.Model(&model.Question{}).
		Where("exam_id = ?", examID).
		Select("COALESCE(MAX(question_order), 0)").
		Scan(&maxOrder).Error
	if err != nil {
		return 0, err
	}
	return maxOrder + 1, nil
}

func questionsKey(examID uint) string {
	return fmt.Sprintf("exam:questions:%d", examID)
}

// ListQuestionsCached 已发布考试的题目不可修改，可以缓存到 redis；redis 不可用时直接查库
func (r *ExamRepository) ListQuestionsCached(ctx context.Context, examID uint) ([]model.Question, error) {
	if r.Redis == nil {
		return r.ListQuestions(examID)
	}

	key := questionsKey(examID)
	cached, err := r.Redis.Get(ctx, key).Bytes()
	if err == nil {
		var qs []model.Question
		if jsonErr := json.Unmarshal(cached, &qs); jsonErr == nil {
			monitoring.QuestionCacheLookups.WithLabelValues("hit").Inc()
			return qs, nil
		}
		r.Redis.Del(ctx, key)
	} else if err != redis.Nil {
		logger.Log.Warn("question cache read failed", zap.Uint("exam_id", examID), zap.Error(err))
	}
	monitoring.QuestionCacheLookups.WithLabelValues("miss").Inc()

	qs, err := r.ListQuestions(examID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(qs); err == nil {
		if err := r.Redis.Set(ctx, key, data, r.CacheTTL).Err(); err != nil {
			logger.Log.Warn("question cache write failed", zap.Uint("exam_id", examID), zap.Error(err))
		}
	}
	return qs, nil
}

func (r *ExamRepository) InvalidateQuestions(ctx context.Context, examID uint) {
	if r.Redis == nil {
		return
	}
	if err := r.Redis.Del(ctx, questionsKey(examID)).Err(); err != nil {
		logger.Log.Warn("question cache invalidate failed", zap.Uint("exam_id", examID), zap.Error(err))
	}
}

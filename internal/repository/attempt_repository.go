package repository

import (
	"exam_portal_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

// EnsureInProgress 不存在时插入 in_progress 记录，已存在则保持原样，然后加行锁读取。
// 并发插入由 (exam_id, student_id) 唯一索引裁决，不依赖应用层先查后写。
func (r *AttemptRepository) EnsureInProgress(examID, studentID uint, now time.Time) (*model.ExamAttempt, error) {
	attempt := &model.ExamAttempt{
		ExamID:    examID,
		StudentID: studentID,
		Status:    model.AttemptInProgress,
		StartedAt: now,
	}
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exam_id"}, {Name: "student_id"}},
		DoNothing: true,
	}).Create(attempt).Error
	if err != nil {
		return nil, err
	}
	return r.FindForUpdate(examID, studentID)
}

func (r *AttemptRepository) FindForUpdate(examID, studentID uint) (*model.ExamAttempt, error) {
	var a model.ExamAttempt
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindByExamAndStudent(examID, studentID uint) (*model.ExamAttempt, error) {
	var a model.ExamAttempt
	err := r.DB.Where("exam_id = ? AND student_id = ?", examID, studentID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByStudent 以 exam_id 为键返回学生在给定考试中的作答
func (r *AttemptRepository) ListByStudent(studentID uint, examIDs []uint) (map[uint]model.ExamAttempt, error) {
	result := make(map[uint]model.ExamAttempt, len(examIDs))
	if len(examIDs) == 0 {
		return result, nil
	}
	var attempts []model.ExamAttempt
	err := r.DB.Where("student_id = ? AND exam_id IN ?", studentID, examIDs).Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	for _, a := range attempts {
		result[a.ExamID] = a
	}
	return result, nil
}

// UpsertAnswer 同一作答同一题只保留一条，重复写入覆盖原答案
func (r *AttemptRepository) UpsertAnswer(answer *model.StudentAnswer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"student_answer", "is_correct", "points_earned", "answered_at"}),
	}).Create(answer).Error
}

func (r *AttemptRepository) ListAnswers(attemptID uint) ([]model.StudentAnswer, error) {
	var answers []model.StudentAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Order("id asc").Find(&answers).Error
	return answers, err
}

// Finalize 仅当记录仍为 in_progress 时更新，返回是否真正完成了状态迁移
func (r *AttemptRepository) Finalize(attemptID uint, score float64, totalPoints int, at time.Time) (bool, error) {
	res := r.DB.Model(&model.ExamAttempt{}).
		Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":       model.AttemptSubmitted,
			"score":        score,
			"total_points": totalPoints,
			"submitted_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

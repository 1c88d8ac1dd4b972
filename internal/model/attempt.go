package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
)

// Final 已提交或已评分的作答不可再次提交
func (s AttemptStatus) Final() bool {
	return s == AttemptSubmitted || s == AttemptGraded
}

// ExamAttempt 每个学生每场考试至多一条
type ExamAttempt struct {
	ID          uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	ExamID      uint          `gorm:"not null;uniqueIndex:uk_attempt_exam_student" json:"examId"`
	StudentID   uint          `gorm:"not null;uniqueIndex:uk_attempt_exam_student;index" json:"studentId"`
	Status      AttemptStatus `gorm:"type:varchar(20);not null;default:'in_progress'" json:"status"`
	Score       *float64      `gorm:"type:decimal(5,2)" json:"score"` // 百分制
	TotalPoints *int          `json:"totalPoints"`
	StartedAt   time.Time     `json:"startedAt"`
	SubmittedAt *time.Time    `json:"submittedAt"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// StudentAnswer 每次作答每题一条，按 (attempt_id, question_id) upsert
type StudentAnswer struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AttemptID     uint      `gorm:"not null;uniqueIndex:uk_answer_attempt_question" json:"attemptId"`
	QuestionID    uint      `gorm:"not null;uniqueIndex:uk_answer_attempt_question" json:"questionId"`
	StudentAnswer *string   `gorm:"type:text" json:"studentAnswer"`
	IsCorrect     bool      `gorm:"default:false" json:"isCorrect"`
	PointsEarned  float64   `gorm:"type:decimal(5,2);default:0" json:"pointsEarned"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

type ExamStatus string

const (
	ExamActive    ExamStatus = "active"
	ExamInactive  ExamStatus = "inactive"
	ExamCompleted ExamStatus = "completed"
)

func (s ExamStatus) Valid() bool {
	switch s {
	case ExamActive, ExamInactive, ExamCompleted:
		return true
	}
	return false
}

// swagger:model Exam
type Exam struct {
	BaseModel
	Title        string     `gorm:"size:200;not null" json:"title"`
	Instructions string     `gorm:"type:text" json:"instructions"`
	SubjectID    uint       `gorm:"index;not null" json:"subjectId"`
	YearLevel    int        `gorm:"not null;index:idx_exam_class" json:"yearLevel"`
	Section      string     `gorm:"size:10;not null;index:idx_exam_class" json:"section"`
	CreatedBy    uint       `gorm:"index;not null" json:"createdBy"`
	Status       ExamStatus `gorm:"type:varchar(20);default:'inactive';index" json:"status"`
	TimeLimit    int        `gorm:"default:60" json:"timeLimit"` // 分钟
}

func (Exam) TableName() string {
	return "exams"
}

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
)

// QuestionOption 选择题选项，按作者录入顺序保存
type QuestionOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// swagger:model Question
type Question struct {
	ID            uint                                `gorm:"primaryKey;autoIncrement" json:"id"`
	ExamID        uint                                `gorm:"index:idx_question_exam_order;not null" json:"examId"`
	QuestionText  string                              `gorm:"type:text;not null" json:"questionText"`
	QuestionType  QuestionType                        `gorm:"type:varchar(20);not null" json:"questionType"`
	Options       datatypes.JSONSlice[QuestionOption] `json:"options,omitempty"`
	CorrectAnswer string                              `gorm:"size:500;not null" json:"correctAnswer"`
	Points        int                                 `gorm:"default:1;not null" json:"points"`
	QuestionOrder int                                 `gorm:"index:idx_question_exam_order;default:1" json:"questionOrder"`
	CreatedAt     time.Time                           `json:"createdAt"`
	UpdatedAt     time.Time                           `json:"updatedAt"`
}

func (Question) TableName() string {
	return "questions"
}

package service

import (
	"context"
	"exam_portal_backend/internal/grading"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultTimeLimit  = 60
	maxTitleLength    = 200
	// points_earned 为 decimal(5,2)，满分 999.00
	maxQuestionPoints = 999
)

// Actor 发起操作的登录用户
type Actor struct {
	ID   uint
	Role model.UserRole
}

type ExamService struct {
	DB       *gorm.DB
	ExamRepo *repository.ExamRepository
}

func NewExamService(db *gorm.DB, examRepo *repository.ExamRepository) *ExamService {
	return &ExamService{DB: db, ExamRepo: examRepo}
}

type QuestionReq struct {
	QuestionText  string                 `json:"question_text"`
	QuestionType  model.QuestionType     `json:"question_type"`
	Options       []model.QuestionOption `json:"options"`
	CorrectAnswer string                 `json:"correct_answer"`
	Points        int                    `json:"points"`
}

type CreateExamReq struct {
	Title        string        `json:"title"`
	Instructions string        `json:"instructions"`
	SubjectID    uint          `json:"subject_id"`
	YearLevel    int           `json:"year_level"`
	Section      string        `json:"section"`
	TimeLimit    int           `json:"time_limit"`
	Questions    []QuestionReq `json:"questions"`
}

type ExamSummary struct {
	model.Exam
	QuestionCount int64 `json:"questionCount"`
}

// ExamDetail 出卷人查看的完整试卷，包含标准答案
type ExamDetail struct {
	model.Exam
	Questions []model.Question `json:"questions"`
}

func (s *ExamService) CreateExam(ctx context.Context, actor Actor, req CreateExamReq) (*ExamDetail, error) {
	exam, err := buildExam(actor.ID, req)
	if err != nil {
		return nil, err
	}
	questions := make([]model.Question, 0, len(req.Questions))
	for i, qr := range req.Questions {
		q, err := buildQuestion(qr)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		q.QuestionOrder = i + 1
		questions = append(questions, *q)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ExamRepo.WithTx(tx)
		if err := repo.CreateExam(exam); err != nil {
			return err
		}
		for i := range questions {
			questions[i].ExamID = exam.ID
			if err := repo.CreateQuestion(&questions[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	logger.Log.Info("Exam created",
		zap.Uint("exam_id", exam.ID),
		zap.Uint("created_by", actor.ID),
		zap.Int("questions", len(questions)),
	)
	return &ExamDetail{Exam: *exam, Questions: questions}, nil
}

// AddQuestion 考试发布后题目不可再修改
func (s *ExamService) AddQuestion(ctx context.Context, actor Actor, examID uint, req QuestionReq) (*model.Question, error) {
	q, err := buildQuestion(req)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ExamRepo.WithTx(tx)
		exam, err := s.ownedExam(repo.FindByIDForUpdate, actor, examID)
		if err != nil {
			return err
		}
		if exam.Status == model.ExamActive {
			return util.ErrExamLocked
		}
		order, err := repo.NextQuestionOrder(exam.ID)
		if err != nil {
			return err
		}
		q.ExamID = exam.ID
		q.QuestionOrder = order
		return repo.CreateQuestion(q)
	})
	if err != nil {
		return nil, err
	}

	s.ExamRepo.InvalidateQuestions(ctx, examID)
	return q, nil
}

// SetStatus 发布前至少要有一道题；状态变化后清除题目缓存
func (s *ExamService) SetStatus(ctx context.Context, actor Actor, examID uint, status model.ExamStatus) (*model.Exam, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown exam status %q", util.ErrValidation, status)
	}

	// 与 AddQuestion 持同一行锁，避免发布后仍有题目写入
	var exam *model.Exam
	var from model.ExamStatus
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ExamRepo.WithTx(tx)
		e, err := s.ownedExam(repo.FindByIDForUpdate, actor, examID)
		if err != nil {
			return err
		}
		exam, from = e, e.Status
		if status == model.ExamActive {
			count, err := repo.CountQuestions(examID)
			if err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("%w: an exam needs at least one question before it can be activated", util.ErrValidation)
			}
		}
		if from == status {
			return nil
		}
		if err := repo.UpdateStatus(examID, status); err != nil {
			return err
		}
		exam.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if from == status {
		return exam, nil
	}
	s.ExamRepo.InvalidateQuestions(ctx, examID)

	logger.Log.Info("Exam status changed",
		zap.Uint("exam_id", examID),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
		zap.Uint("actor_id", actor.ID),
	)
	return exam, nil
}

func (s *ExamService) ListMyExams(ctx context.Context, actor Actor) ([]ExamSummary, error) {
	exams, err := s.ExamRepo.WithTx(s.DB.WithContext(ctx)).ListByCreator(actor.ID)
	if err != nil {
		return nil, err
	}
	result := make([]ExamSummary, 0, len(exams))
	for _, e := range exams {
		count, err := s.ExamRepo.CountQuestions(e.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, ExamSummary{Exam: e, QuestionCount: count})
	}
	return result, nil
}

func (s *ExamService) GetExam(ctx context.Context, actor Actor, examID uint) (*ExamDetail, error) {
	repo := s.ExamRepo.WithTx(s.DB.WithContext(ctx))
	exam, err := s.ownedExam(repo.FindByID, actor, examID)
	if err != nil {
		return nil, err
	}
	questions, err := repo.ListQuestions(examID)
	if err != nil {
		return nil, err
	}
	return &ExamDetail{Exam: *exam, Questions: questions}, nil
}

// ownedExam 只有出卷人本人或管理员可以操作
func (s *ExamService) ownedExam(find func(uint) (*model.Exam, error), actor Actor, examID uint) (*model.Exam, error) {
	exam, err := find(examID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	if actor.Role != model.Admin && exam.CreatedBy != actor.ID {
		return nil, util.ErrPermissionDenied
	}
	return exam, nil
}

func buildExam(creatorID uint, req CreateExamReq) (*model.Exam, error) {
	title := strings.TrimSpace(req.Title)
	section := strings.TrimSpace(req.Section)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	case len(title) > maxTitleLength:
		return nil, fmt.Errorf("%w: title must be at most %d characters", util.ErrValidation, maxTitleLength)
	case req.SubjectID == 0:
		return nil, fmt.Errorf("%w: subject_id is required", util.ErrValidation)
	case req.YearLevel <= 0:
		return nil, fmt.Errorf("%w: year_level must be positive", util.ErrValidation)
	case section == "":
		return nil, fmt.Errorf("%w: section is required", util.ErrValidation)
	case req.TimeLimit < 0:
		return nil, fmt.Errorf("%w: time_limit must not be negative", util.ErrValidation)
	}

	timeLimit := req.TimeLimit
	if timeLimit == 0 {
		timeLimit = defaultTimeLimit
	}
	return &model.Exam{
		Title:        title,
		Instructions: strings.TrimSpace(req.Instructions),
		SubjectID:    req.SubjectID,
		YearLevel:    req.YearLevel,
		Section:      section,
		CreatedBy:    creatorID,
		Status:       model.ExamInactive,
		TimeLimit:    timeLimit,
	}, nil
}

func buildQuestion(req QuestionReq) (*model.Question, error) {
	text := strings.TrimSpace(req.QuestionText)
	correct := strings.TrimSpace(req.CorrectAnswer)
	if text == "" {
		return nil, fmt.Errorf("%w: question_text is required", util.ErrValidation)
	}
	if correct == "" {
		return nil, fmt.Errorf("%w: correct_answer is required", util.ErrValidation)
	}
	points := req.Points
	if points == 0 {
		points = 1
	}
	if points < 0 {
		return nil, fmt.Errorf("%w: points must be positive", util.ErrValidation)
	}
	if points > maxQuestionPoints {
		return nil, fmt.Errorf("%w: points must not exceed %d", util.ErrValidation, maxQuestionPoints)
	}

	q := &model.Question{
		QuestionText:  text,
		QuestionType:  req.QuestionType,
		CorrectAnswer: correct,
		Points:        points,
	}

	switch req.QuestionType {
	case model.MultipleChoice:
		if len(req.Options) < 2 {
			return nil, fmt.Errorf("%w: multiple choice questions need at least two options", util.ErrValidation)
		}
		seen := make(map[string]bool, len(req.Options))
		options := make([]model.QuestionOption, 0, len(req.Options))
		for _, o := range req.Options {
			label := strings.TrimSpace(o.Label)
			if label == "" {
				return nil, fmt.Errorf("%w: option label is required", util.ErrValidation)
			}
			key := grading.Normalize(label)
			if seen[key] {
				return nil, fmt.Errorf("%w: duplicate option label %q", util.ErrValidation, label)
			}
			seen[key] = true
			options = append(options, model.QuestionOption{Label: label, Text: strings.TrimSpace(o.Text)})
		}
		if !seen[grading.Normalize(correct)] {
			return nil, fmt.Errorf("%w: correct_answer must match one of the option labels", util.ErrValidation)
		}
		q.Options = options
	case model.TrueFalse:
		switch grading.Normalize(correct) {
		case "true", "false":
		default:
			return nil, fmt.Errorf("%w: correct_answer must be true or false", util.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported question_type %q", util.ErrValidation, req.QuestionType)
	}
	return q, nil
}

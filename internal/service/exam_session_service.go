package service

import (
	"context"
	"errors"
	"exam_portal_backend/internal/grading"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"
	"exam_portal_backend/pkg/tracing"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExamSessionService 学生端：取卷、交卷判分、查看成绩
type ExamSessionService struct {
	DB          *gorm.DB
	ExamRepo    *repository.ExamRepository
	AttemptRepo *repository.AttemptRepository
	UserRepo    *repository.UserRepository
}

func NewExamSessionService(db *gorm.DB, examRepo *repository.ExamRepository, attemptRepo *repository.AttemptRepository, userRepo *repository.UserRepository) *ExamSessionService {
	return &ExamSessionService{
		DB:          db,
		ExamRepo:    examRepo,
		AttemptRepo: attemptRepo,
		UserRepo:    userRepo,
	}
}

// ScoreResult 交卷结果
type ScoreResult struct {
	AttemptID    uint    `json:"attempt_id"`
	EarnedPoints float64 `json:"earned_points"`
	TotalPoints  int     `json:"total_points"`
	Percentage   float64 `json:"percentage"`
}

// PaperQuestion 下发给学生的题目，不含标准答案
type PaperQuestion struct {
	QuestionID uint                   `json:"question_id"`
	Text       string                 `json:"text"`
	Type       model.QuestionType     `json:"type"`
	Options    []model.QuestionOption `json:"options,omitempty"`
	Points     int                    `json:"points"`
}

type ExamPaper struct {
	ExamID        uint                `json:"exam_id"`
	ExamTitle     string              `json:"exam_title"`
	Instructions  string              `json:"instructions"`
	TimeLimit     int                 `json:"time_limit"` // 分钟
	AttemptID     uint                `json:"attempt_id"`
	AttemptStatus model.AttemptStatus `json:"attempt_status"`
	StartedAt     time.Time           `json:"started_at"`
	Questions     []PaperQuestion     `json:"questions"`
}

// AvailableExam 学生考试列表中的一项，Status 为 available / in_progress / submitted
type AvailableExam struct {
	ExamID       uint       `json:"exam_id"`
	Title        string     `json:"title"`
	Instructions string     `json:"instructions"`
	SubjectID    uint       `json:"subject_id"`
	TimeLimit    int        `json:"time_limit"`
	Status       string     `json:"status"`
	Score        *float64   `json:"score,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

type ResultAnswer struct {
	QuestionID    uint    `json:"question_id"`
	QuestionOrder int     `json:"question_order"`
	StudentAnswer *string `json:"student_answer"`
	IsCorrect     bool    `json:"is_correct"`
	PointsEarned  float64 `json:"points_earned"`
}

type MyResult struct {
	AttemptID    uint                `json:"attempt_id"`
	ExamID       uint                `json:"exam_id"`
	ExamTitle    string              `json:"exam_title"`
	Status       model.AttemptStatus `json:"status"`
	EarnedPoints float64             `json:"earned_points"`
	TotalPoints  int                 `json:"total_points"`
	Percentage   float64             `json:"percentage"`
	StartedAt    time.Time           `json:"started_at"`
	SubmittedAt  *time.Time          `json:"submitted_at"`
	Answers      []ResultAnswer      `json:"answers"`
}

// ParseAnswers 将请求中以字符串为键的答案转换为按题目 ID 索引。
// "7" 与 "07" 指向同一题，重复作答视为非法请求
func ParseAnswers(raw map[string]string) (map[uint]string, error) {
	answers := make(map[uint]string, len(raw))
	for key, value := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: invalid question id %q", util.ErrValidation, key)
		}
		if _, dup := answers[uint(id)]; dup {
			return nil, fmt.Errorf("%w: duplicate answer for question %d", util.ErrValidation, id)
		}
		answers[uint(id)] = value
	}
	return answers, nil
}

// SubmitExam 判分并在同一事务中写入作答记录与每题答案。
// 已交卷返回 ErrAlreadySubmitted；事务内其他失败整体回滚并返回 ErrPersistence。
func (s *ExamSessionService) SubmitExam(ctx context.Context, examID, studentID uint, answers map[uint]string) (result *ScoreResult, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "ExamSessionService.SubmitExam")
	span.SetAttributes(attribute.Int64("exam.id", int64(examID)), attribute.Int64("student.id", int64(studentID)))
	defer func() {
		monitoring.ExamSubmissions.WithLabelValues(submissionOutcome(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	if examID == 0 || studentID == 0 {
		return nil, fmt.Errorf("%w: exam id and student id are required", util.ErrValidation)
	}
	exam, user, err := s.loadAvailableExam(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if user.Role != model.Student {
		return nil, util.ErrPermissionDenied
	}

	var attemptID uint
	var tally grading.Tally
	now := time.Now()

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.AttemptRepo.WithTx(tx)
		exams := s.ExamRepo.WithTx(tx)

		attempt, err := attempts.EnsureInProgress(exam.ID, studentID, now)
		if err != nil {
			return err
		}
		attemptID = attempt.ID
		if attempt.Status.Final() {
			return util.ErrAlreadySubmitted
		}

		questions, err := exams.ListQuestions(exam.ID)
		if err != nil {
			return err
		}

		for _, q := range questions {
			var submitted *string
			if v, ok := answers[q.ID]; ok {
				submitted = &v
			}
			mark := grading.ScoreQuestion(q.Points, submitted, q.CorrectAnswer)
			tally.Add(q.Points, mark)

			if err := attempts.UpsertAnswer(&model.StudentAnswer{
				AttemptID:     attempt.ID,
				QuestionID:    q.ID,
				StudentAnswer: submitted,
				IsCorrect:     mark.IsCorrect,
				PointsEarned:  mark.PointsEarned,
				AnsweredAt:    now,
			}); err != nil {
				return err
			}
		}

		finalized, err := attempts.Finalize(attempt.ID, tally.Percentage(), tally.TotalPoints, now)
		if err != nil {
			return err
		}
		if !finalized {
			return util.ErrAlreadySubmitted
		}
		return nil
	})
	if txErr != nil {
		return nil, s.translateTxError(txErr, examID, studentID, attemptID)
	}

	monitoring.ExamScorePercentage.Observe(tally.Percentage())
	logger.Log.Info("Exam submitted",
		zap.Uint("exam_id", examID),
		zap.Uint("student_id", studentID),
		zap.Uint("attempt_id", attemptID),
		zap.Float64("earned_points", tally.EarnedPoints),
		zap.Int("total_points", tally.TotalPoints),
	)

	return &ScoreResult{
		AttemptID:    attemptID,
		EarnedPoints: tally.EarnedPoints,
		TotalPoints:  tally.TotalPoints,
		Percentage:   tally.Percentage(),
	}, nil
}

// GetQuestionsForAttempt 取卷时创建 in_progress 作答记录，已交卷的考试不可再查看题目
func (s *ExamSessionService) GetQuestionsForAttempt(ctx context.Context, examID, studentID uint) (paper *ExamPaper, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "ExamSessionService.GetQuestionsForAttempt")
	span.SetAttributes(attribute.Int64("exam.id", int64(examID)), attribute.Int64("student.id", int64(studentID)))
	defer func() { tracing.EndSpan(span, err) }()

	if examID == 0 || studentID == 0 {
		return nil, fmt.Errorf("%w: exam id and student id are required", util.ErrValidation)
	}
	exam, user, err := s.loadAvailableExam(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	// 教师与管理员预览试卷，不产生作答记录
	attempt := &model.ExamAttempt{}
	if user.Role != model.Student {
		return s.buildPaper(ctx, exam, attempt)
	}

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.AttemptRepo.WithTx(tx).EnsureInProgress(exam.ID, studentID, time.Now())
		if err != nil {
			return err
		}
		if a.Status.Final() {
			return util.ErrAlreadySubmitted
		}
		attempt = a
		return nil
	})
	if txErr != nil {
		return nil, s.translateTxError(txErr, examID, studentID, 0)
	}
	return s.buildPaper(ctx, exam, attempt)
}

func (s *ExamSessionService) buildPaper(ctx context.Context, exam *model.Exam, attempt *model.ExamAttempt) (*ExamPaper, error) {
	questions, err := s.ExamRepo.ListQuestionsCached(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	paper := &ExamPaper{
		ExamID:        exam.ID,
		ExamTitle:     exam.Title,
		Instructions:  exam.Instructions,
		TimeLimit:     exam.TimeLimit,
		AttemptID:     attempt.ID,
		AttemptStatus: attempt.Status,
		StartedAt:     attempt.StartedAt,
		Questions:     make([]PaperQuestion, 0, len(questions)),
	}
	for _, q := range questions {
		paper.Questions = append(paper.Questions, PaperQuestion{
			QuestionID: q.ID,
			Text:       q.QuestionText,
			Type:       q.QuestionType,
			Options:    q.Options,
			Points:     q.Points,
		})
	}
	return paper, nil
}

// ListAvailableExams 学生所在班级的已发布考试及本人作答状态
func (s *ExamSessionService) ListAvailableExams(ctx context.Context, studentID uint) ([]AvailableExam, error) {
	student, err := s.UserRepo.FindByID(studentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	result := make([]AvailableExam, 0)
	if student.YearLevel == nil || student.Section == nil {
		return result, nil
	}

	exams, err := s.ExamRepo.ListActiveForClass(*student.YearLevel, *student.Section)
	if err != nil {
		return nil, err
	}
	examIDs := make([]uint, 0, len(exams))
	for _, e := range exams {
		examIDs = append(examIDs, e.ID)
	}
	attempts, err := s.AttemptRepo.ListByStudent(studentID, examIDs)
	if err != nil {
		return nil, err
	}

	for _, e := range exams {
		item := AvailableExam{
			ExamID:       e.ID,
			Title:        e.Title,
			Instructions: e.Instructions,
			SubjectID:    e.SubjectID,
			TimeLimit:    e.TimeLimit,
			Status:       "available",
		}
		if a, ok := attempts[e.ID]; ok {
			if a.Status.Final() {
				item.Status = string(model.AttemptSubmitted)
				item.Score = a.Score
				item.SubmittedAt = a.SubmittedAt
			} else {
				item.Status = string(a.Status)
			}
		}
		result = append(result, item)
	}
	return result, nil
}

// GetMyResult 本人已交卷的成绩与逐题得分，不返回标准答案
func (s *ExamSessionService) GetMyResult(ctx context.Context, examID, studentID uint) (*MyResult, error) {
	attempt, err := s.AttemptRepo.FindByExamAndStudent(examID, studentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	if !attempt.Status.Final() {
		return nil, util.ErrNotFound
	}

	exam, err := s.ExamRepo.FindByID(examID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	questions, err := s.ExamRepo.ListQuestions(examID)
	if err != nil {
		return nil, err
	}
	answers, err := s.AttemptRepo.ListAnswers(attempt.ID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[uint]model.StudentAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	res := &MyResult{
		AttemptID:   attempt.ID,
		ExamID:      exam.ID,
		ExamTitle:   exam.Title,
		Status:      attempt.Status,
		StartedAt:   attempt.StartedAt,
		SubmittedAt: attempt.SubmittedAt,
		Answers:     make([]ResultAnswer, 0, len(questions)),
	}
	if attempt.Score != nil {
		res.Percentage = *attempt.Score
	}
	if attempt.TotalPoints != nil {
		res.TotalPoints = *attempt.TotalPoints
	}
	for _, q := range questions {
		a, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		res.EarnedPoints += a.PointsEarned
		res.Answers = append(res.Answers, ResultAnswer{
			QuestionID:    q.ID,
			QuestionOrder: q.QuestionOrder,
			StudentAnswer: a.StudentAnswer,
			IsCorrect:     a.IsCorrect,
			PointsEarned:  a.PointsEarned,
		})
	}
	res.EarnedPoints = grading.Round2(res.EarnedPoints)
	return res, nil
}

// loadAvailableExam 考试必须存在且已发布；学生只能参加本班级的考试
func (s *ExamSessionService) loadAvailableExam(ctx context.Context, examID, studentID uint) (*model.Exam, *model.User, error) {
	exam, err := s.ExamRepo.WithTx(s.DB.WithContext(ctx)).FindActiveByID(examID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, util.ErrExamUnavailable
		}
		return nil, nil, fmt.Errorf("load exam: %w", err)
	}

	user, err := s.UserRepo.FindByID(studentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, util.ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("load student: %w", err)
	}
	if user.Role != model.Student {
		return exam, user, nil
	}
	if user.YearLevel == nil || user.Section == nil ||
		*user.YearLevel != exam.YearLevel || !strings.EqualFold(*user.Section, exam.Section) {
		return nil, nil, util.ErrExamUnavailable
	}
	return exam, user, nil
}

func (s *ExamSessionService) translateTxError(err error, examID, studentID, attemptID uint) error {
	if errors.Is(err, util.ErrAlreadySubmitted) || repository.IsDuplicateKey(err) {
		return util.ErrAlreadySubmitted
	}
	logger.Log.Error("Exam attempt transaction failed",
		zap.Uint("exam_id", examID),
		zap.Uint("student_id", studentID),
		zap.Uint("attempt_id", attemptID),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %w", util.ErrPersistence, err)
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "graded"
	case errors.Is(err, util.ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, util.ErrExamUnavailable):
		return "exam_unavailable"
	case errors.Is(err, util.ErrValidation), errors.Is(err, util.ErrUserNotFound):
		return "invalid"
	default:
		return "persistence_error"
	}
}

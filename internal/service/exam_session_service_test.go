package service

import (
	"context"
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/testutil"
	"exam_portal_backend/internal/util"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sessionFixture struct {
	db      *gorm.DB
	svc     *ExamSessionService
	student *model.User
	faculty *model.User
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	svc := NewExamSessionService(db,
		repository.NewExamRepository(db, rdb, time.Minute),
		repository.NewAttemptRepository(db),
		repository.NewUserRepository(db),
	)
	return &sessionFixture{
		db:      db,
		svc:     svc,
		student: testutil.CreateUser(t, db, "S-1001", model.Student, "secret123"),
		faculty: testutil.CreateUser(t, db, "F-2001", model.Faculty, "secret123"),
	}
}

// 两题：1 分选择题答案 B，2 分判断题答案 True
func (f *sessionFixture) twoQuestionExam(t *testing.T) (*model.Exam, []model.Question) {
	return testutil.CreateActiveExam(t, f.db, f.faculty.ID,
		testutil.QuestionSpec{Type: model.MultipleChoice, Correct: "B", Points: 1},
		testutil.QuestionSpec{Type: model.TrueFalse, Correct: "True", Points: 2},
	)
}

func (f *sessionFixture) attempt(t *testing.T, examID uint) *model.ExamAttempt {
	t.Helper()
	var a model.ExamAttempt
	require.NoError(t, f.db.Where("exam_id = ? AND student_id = ?", examID, f.student.ID).First(&a).Error)
	return &a
}

func (f *sessionFixture) answers(t *testing.T, attemptID uint) []model.StudentAnswer {
	t.Helper()
	var rows []model.StudentAnswer
	require.NoError(t, f.db.Where("attempt_id = ?", attemptID).Order("question_id").Find(&rows).Error)
	return rows
}

func TestSubmitExamFullMarks(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)

	res, err := f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{
		qs[0].ID: "b",
		qs[1].ID: "true",
	})
	require.NoError(t, err)
	assert.InDelta(t, 3, res.EarnedPoints, 1e-9)
	assert.Equal(t, 3, res.TotalPoints)
	assert.InDelta(t, 100, res.Percentage, 1e-9)

	a := f.attempt(t, exam.ID)
	assert.Equal(t, res.AttemptID, a.ID)
	assert.Equal(t, model.AttemptSubmitted, a.Status)
	require.NotNil(t, a.Score)
	assert.InDelta(t, 100, *a.Score, 1e-9)
	require.NotNil(t, a.TotalPoints)
	assert.Equal(t, 3, *a.TotalPoints)
	assert.NotNil(t, a.SubmittedAt)

	rows := f.answers(t, a.ID)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.True(t, r.IsCorrect)
	}
}

func TestSubmitExamPartialAnswers(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)

	res, err := f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{qs[0].ID: "B"})
	require.NoError(t, err)
	assert.InDelta(t, 1, res.EarnedPoints, 1e-9)
	assert.Equal(t, 3, res.TotalPoints)
	assert.InDelta(t, 33.33, res.Percentage, 1e-9)

	rows := f.answers(t, res.AttemptID)
	require.Len(t, rows, 2)
	assert.Equal(t, qs[1].ID, rows[1].QuestionID)
	assert.Nil(t, rows[1].StudentAnswer)
	assert.False(t, rows[1].IsCorrect)
	assert.Zero(t, rows[1].PointsEarned)
}

func TestSubmitExamWhitespaceAndCase(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := testutil.CreateActiveExam(t, f.db, f.faculty.ID,
		testutil.QuestionSpec{Type: model.TrueFalse, Correct: "True", Points: 2},
	)

	res, err := f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{qs[0].ID: " true "})
	require.NoError(t, err)
	assert.InDelta(t, 2, res.EarnedPoints, 1e-9)
	assert.InDelta(t, 100, res.Percentage, 1e-9)

	rows := f.answers(t, res.AttemptID)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].StudentAnswer)
	assert.Equal(t, " true ", *rows[0].StudentAnswer)
	assert.True(t, rows[0].IsCorrect)
}

func TestSubmitExamEmptyAnswers(t *testing.T) {
	f := newSessionFixture(t)
	exam, _ := f.twoQuestionExam(t)

	res, err := f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{})
	require.NoError(t, err)
	assert.Zero(t, res.EarnedPoints)
	assert.Equal(t, 3, res.TotalPoints)
	assert.Zero(t, res.Percentage)
	assert.Equal(t, model.AttemptSubmitted, f.attempt(t, exam.ID).Status)
}

func TestSubmitExamIgnoresForeignQuestions(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)
	other, otherQs := testutil.CreateActiveExam(t, f.db, f.faculty.ID,
		testutil.QuestionSpec{Type: model.TrueFalse, Correct: "false", Points: 5},
	)
	require.NotEqual(t, exam.ID, other.ID)

	res, err := f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{
		qs[0].ID:      "B",
		otherQs[0].ID: "false",
		9999:          "A",
	})
	require.NoError(t, err)
	assert.InDelta(t, 1, res.EarnedPoints, 1e-9)
	assert.Equal(t, 3, res.TotalPoints)
	assert.Len(t, f.answers(t, res.AttemptID), 2)
}

func TestSubmitExamRejectsSecondSubmission(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)
	ctx := context.Background()

	first, err := f.svc.SubmitExam(ctx, exam.ID, f.student.ID, map[uint]string{qs[0].ID: "B"})
	require.NoError(t, err)
	before := f.attempt(t, exam.ID)
	beforeAnswers := f.answers(t, first.AttemptID)

	_, err = f.svc.SubmitExam(ctx, exam.ID, f.student.ID, map[uint]string{qs[0].ID: "B", qs[1].ID: "True"})
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)

	after := f.attempt(t, exam.ID)
	assert.Equal(t, *before.Score, *after.Score)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.SubmittedAt.Unix(), after.SubmittedAt.Unix())

	afterAnswers := f.answers(t, first.AttemptID)
	require.Len(t, afterAnswers, len(beforeAnswers))
	for i := range beforeAnswers {
		assert.Equal(t, beforeAnswers[i].StudentAnswer, afterAnswers[i].StudentAnswer)
		assert.Equal(t, beforeAnswers[i].IsCorrect, afterAnswers[i].IsCorrect)
		assert.Equal(t, beforeAnswers[i].PointsEarned, afterAnswers[i].PointsEarned)
	}
}

func TestSubmitExamGradedAttemptIsFinal(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)

	require.NoError(t, f.db.Create(&model.ExamAttempt{
		ExamID: exam.ID, StudentID: f.student.ID, Status: model.AttemptGraded, StartedAt: time.Now(),
	}).Error)

	_, err := f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{qs[0].ID: "B"})
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)

	_, err = f.svc.GetQuestionsForAttempt(context.Background(), exam.ID, f.student.ID)
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
}

func TestSubmitExamUnavailable(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)
	ctx := context.Background()

	require.NoError(t, f.db.Model(&model.Exam{}).Where("id = ?", exam.ID).Update("status", model.ExamInactive).Error)
	_, err := f.svc.SubmitExam(ctx, exam.ID, f.student.ID, map[uint]string{qs[0].ID: "B"})
	assert.ErrorIs(t, err, util.ErrExamUnavailable)

	_, err = f.svc.SubmitExam(ctx, exam.ID+100, f.student.ID, nil)
	assert.ErrorIs(t, err, util.ErrExamUnavailable)

	var count int64
	f.db.Model(&model.ExamAttempt{}).Count(&count)
	assert.Zero(t, count)
}

func TestSubmitExamOtherSection(t *testing.T) {
	f := newSessionFixture(t)
	exam, _ := f.twoQuestionExam(t)

	outsider := testutil.CreateUser(t, f.db, "S-3001", model.Student, "secret123")
	require.NoError(t, f.db.Model(outsider).Update("section", "B").Error)

	_, err := f.svc.SubmitExam(context.Background(), exam.ID, outsider.ID, nil)
	assert.ErrorIs(t, err, util.ErrExamUnavailable)
}

func TestSubmitExamValidation(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.SubmitExam(context.Background(), 0, f.student.ID, nil)
	assert.ErrorIs(t, err, util.ErrValidation)
	_, err = f.svc.SubmitExam(context.Background(), 1, 0, nil)
	assert.ErrorIs(t, err, util.ErrValidation)
}

// 测试库只有一个连接，并发提交在这里实际串行执行，后到者都走已交卷分支；
// 唯一键冲突与条件更新落空两条路径见 TestSubmitExamLostFinalizeRace 与 TestSubmitExamDuplicateAnswerRow
func TestSubmitExamConcurrent(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		successes int32
		rejected  int32
		others    int32
	)
	gate := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			_, err := f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{qs[0].ID: "B", qs[1].ID: "True"})
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, util.ErrAlreadySubmitted):
				atomic.AddInt32(&rejected, 1)
			default:
				atomic.AddInt32(&others, 1)
			}
		}()
	}
	close(gate)
	wg.Wait()

	assert.EqualValues(t, 1, successes)
	assert.EqualValues(t, workers-1, rejected)
	assert.Zero(t, others)

	var count int64
	f.db.Model(&model.ExamAttempt{}).Where("exam_id = ? AND student_id = ?", exam.ID, f.student.ID).Count(&count)
	assert.EqualValues(t, 1, count)
	assert.Len(t, f.answers(t, f.attempt(t, exam.ID).ID), 2)
}

// failNthAnswerInsert 在第 n 次写入 student_answers 时注入错误
func failNthAnswerInsert(t *testing.T, db *gorm.DB, n int32) *atomic.Bool {
	t.Helper()
	enabled := &atomic.Bool{}
	enabled.Store(true)
	var calls int32
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_answer_insert", func(tx *gorm.DB) {
		if !enabled.Load() || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "student_answers" {
			return
		}
		if atomic.AddInt32(&calls, 1) == n {
			tx.AddError(errors.New("injected write failure"))
		}
	})
	require.NoError(t, err)
	return enabled
}

// 在 Finalize 执行前抢先把作答记录改为 submitted，模拟另一事务先完成交卷
func TestSubmitExamLostFinalizeRace(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)

	err := f.db.Callback().Update().Before("gorm:update").Register("test:concurrent_finalize", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Table != "exam_attempts" {
			return
		}
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE exam_attempts SET status = ? WHERE exam_id = ?", model.AttemptSubmitted, exam.ID)
	})
	require.NoError(t, err)

	_, err = f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{qs[0].ID: "B"})
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
	assert.NotErrorIs(t, err, util.ErrPersistence)

	var answers int64
	f.db.Model(&model.StudentAnswer{}).Count(&answers)
	assert.Zero(t, answers)
}

func TestSubmitExamDuplicateAnswerRow(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)

	err := f.db.Callback().Create().Before("gorm:create").Register("test:duplicate_answer", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "student_answers" {
			tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	require.NoError(t, err)

	_, err = f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{qs[0].ID: "B"})
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
	assert.NotErrorIs(t, err, util.ErrPersistence)

	var attempts int64
	f.db.Model(&model.ExamAttempt{}).Count(&attempts)
	assert.Zero(t, attempts)
}

func TestSubmitExamAtomicity(t *testing.T) {
	f := newSessionFixture(t)
	defs := make([]testutil.QuestionSpec, 5)
	for i := range defs {
		defs[i] = testutil.QuestionSpec{Type: model.TrueFalse, Correct: "true", Points: 1}
	}
	exam, qs := testutil.CreateActiveExam(t, f.db, f.faculty.ID, defs...)
	ctx := context.Background()

	_, err := f.svc.GetQuestionsForAttempt(ctx, exam.ID, f.student.ID)
	require.NoError(t, err)
	before := f.attempt(t, exam.ID)

	answers := make(map[uint]string, len(qs))
	for _, q := range qs {
		answers[q.ID] = "true"
	}

	enabled := failNthAnswerInsert(t, f.db, 3)
	_, err = f.svc.SubmitExam(ctx, exam.ID, f.student.ID, answers)
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrPersistence)
	assert.NotErrorIs(t, err, util.ErrAlreadySubmitted)

	after := f.attempt(t, exam.ID)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, model.AttemptInProgress, after.Status)
	assert.Nil(t, after.Score)
	assert.Nil(t, after.SubmittedAt)
	assert.Empty(t, f.answers(t, after.ID))

	// 故障恢复后重试可以正常交卷
	enabled.Store(false)
	res, err := f.svc.SubmitExam(ctx, exam.ID, f.student.ID, answers)
	require.NoError(t, err)
	assert.InDelta(t, 100, res.Percentage, 1e-9)
	assert.Len(t, f.answers(t, after.ID), 5)
}

func TestSubmitExamAtomicityWithoutPriorAttempt(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)

	failNthAnswerInsert(t, f.db, 2)
	_, err := f.svc.SubmitExam(context.Background(), exam.ID, f.student.ID, map[uint]string{qs[0].ID: "B", qs[1].ID: "True"})
	assert.ErrorIs(t, err, util.ErrPersistence)

	var attempts, answers int64
	f.db.Model(&model.ExamAttempt{}).Count(&attempts)
	f.db.Model(&model.StudentAnswer{}).Count(&answers)
	assert.Zero(t, attempts)
	assert.Zero(t, answers)
}

func TestGetQuestionsForAttempt(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)
	ctx := context.Background()

	paper, err := f.svc.GetQuestionsForAttempt(ctx, exam.ID, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.Title, paper.ExamTitle)
	assert.Equal(t, exam.Instructions, paper.Instructions)
	assert.Equal(t, 45, paper.TimeLimit)
	assert.Equal(t, model.AttemptInProgress, paper.AttemptStatus)
	require.Len(t, paper.Questions, 2)
	assert.Equal(t, qs[0].ID, paper.Questions[0].QuestionID)
	assert.Len(t, paper.Questions[0].Options, 4)
	assert.Empty(t, paper.Questions[1].Options)

	// 再次取卷复用同一作答记录
	again, err := f.svc.GetQuestionsForAttempt(ctx, exam.ID, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, paper.AttemptID, again.AttemptID)
	assert.Equal(t, paper.StartedAt.Unix(), again.StartedAt.Unix())

	_, err = f.svc.SubmitExam(ctx, exam.ID, f.student.ID, map[uint]string{qs[0].ID: "A"})
	require.NoError(t, err)

	_, err = f.svc.GetQuestionsForAttempt(ctx, exam.ID, f.student.ID)
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
}

func TestNonStudentPreviewIsReadOnly(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, "A-9001", model.Admin, "secret123")

	for _, u := range []*model.User{f.faculty, admin} {
		paper, err := f.svc.GetQuestionsForAttempt(ctx, exam.ID, u.ID)
		require.NoError(t, err)
		assert.Zero(t, paper.AttemptID)
		assert.Empty(t, paper.AttemptStatus)
		assert.Len(t, paper.Questions, 2)

		_, err = f.svc.SubmitExam(ctx, exam.ID, u.ID, map[uint]string{qs[0].ID: "B"})
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	}

	var count int64
	f.db.Model(&model.ExamAttempt{}).Count(&count)
	assert.Zero(t, count)
}

func TestGetQuestionsForAttemptUnavailable(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.GetQuestionsForAttempt(context.Background(), 404, f.student.ID)
	assert.ErrorIs(t, err, util.ErrExamUnavailable)
}

func TestListAvailableExams(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	submitted, sq := f.twoQuestionExam(t)
	started, _ := f.twoQuestionExam(t)
	fresh, _ := f.twoQuestionExam(t)
	hidden, _ := f.twoQuestionExam(t)
	require.NoError(t, f.db.Model(&model.Exam{}).Where("id = ?", hidden.ID).Update("status", model.ExamInactive).Error)

	_, err := f.svc.SubmitExam(ctx, submitted.ID, f.student.ID, map[uint]string{sq[0].ID: "B"})
	require.NoError(t, err)
	_, err = f.svc.GetQuestionsForAttempt(ctx, started.ID, f.student.ID)
	require.NoError(t, err)

	list, err := f.svc.ListAvailableExams(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)

	byID := make(map[uint]AvailableExam, len(list))
	for _, e := range list {
		byID[e.ExamID] = e
	}
	assert.Equal(t, "submitted", byID[submitted.ID].Status)
	require.NotNil(t, byID[submitted.ID].Score)
	assert.InDelta(t, 33.33, *byID[submitted.ID].Score, 1e-9)
	assert.Equal(t, "in_progress", byID[started.ID].Status)
	assert.Equal(t, "available", byID[fresh.ID].Status)
	assert.Nil(t, byID[fresh.ID].Score)
	assert.NotContains(t, byID, hidden.ID)
}

func TestListAvailableExamsSectionCase(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	exam, _ := f.twoQuestionExam(t)
	require.NoError(t, f.db.Model(f.student).Update("section", "a").Error)

	_, err := f.svc.GetQuestionsForAttempt(ctx, exam.ID, f.student.ID)
	require.NoError(t, err)

	list, err := f.svc.ListAvailableExams(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, exam.ID, list[0].ExamID)
	assert.Equal(t, "in_progress", list[0].Status)
}

func TestGetMyResult(t *testing.T) {
	f := newSessionFixture(t)
	exam, qs := f.twoQuestionExam(t)
	ctx := context.Background()

	_, err := f.svc.GetMyResult(ctx, exam.ID, f.student.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = f.svc.GetQuestionsForAttempt(ctx, exam.ID, f.student.ID)
	require.NoError(t, err)
	_, err = f.svc.GetMyResult(ctx, exam.ID, f.student.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = f.svc.SubmitExam(ctx, exam.ID, f.student.ID, map[uint]string{qs[1].ID: "TRUE"})
	require.NoError(t, err)

	res, err := f.svc.GetMyResult(ctx, exam.ID, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSubmitted, res.Status)
	assert.InDelta(t, 2, res.EarnedPoints, 1e-9)
	assert.Equal(t, 3, res.TotalPoints)
	assert.InDelta(t, 66.67, res.Percentage, 1e-9)
	require.Len(t, res.Answers, 2)
	assert.Nil(t, res.Answers[0].StudentAnswer)
	assert.True(t, res.Answers[1].IsCorrect)
}

func TestParseAnswers(t *testing.T) {
	got, err := ParseAnswers(map[string]string{"12": "B", " 7 ": "true"})
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{12: "B", 7: "true"}, got)

	for _, key := range []string{"abc", "0", "-1", ""} {
		_, err := ParseAnswers(map[string]string{key: "A"})
		assert.ErrorIs(t, err, util.ErrValidation, "key %q", key)
	}

	// 同一题的不同写法不能同时出现
	for _, raw := range []map[string]string{
		{"7": "first", "07": "second"},
		{"7": "A", " 7": "A"},
	} {
		_, err := ParseAnswers(raw)
		assert.ErrorIs(t, err, util.ErrValidation, "answers %v", raw)
	}

	empty, err := ParseAnswers(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

package repository

import (
	"context"
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/testutil"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestEnsureInProgressIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAttemptRepository(db)
	start := time.Now().Add(-time.Hour)

	first, err := repo.EnsureInProgress(1, 2, start)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, first.Status)

	second, err := repo.EnsureInProgress(1, 2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.WithinDuration(t, start, second.StartedAt, time.Second)

	var count int64
	db.Model(&model.ExamAttempt{}).Where("exam_id = ? AND student_id = ?", 1, 2).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAttemptUniqueIndex(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, db.Create(&model.ExamAttempt{ExamID: 1, StudentID: 2, Status: model.AttemptInProgress, StartedAt: time.Now()}).Error)
	err := db.Create(&model.ExamAttempt{ExamID: 1, StudentID: 2, Status: model.AttemptInProgress, StartedAt: time.Now()}).Error
	assert.Error(t, err)
}

func TestUpsertAnswerOverwrites(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAttemptRepository(db)

	attempt, err := repo.EnsureInProgress(1, 2, time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.UpsertAnswer(&model.StudentAnswer{
		AttemptID: attempt.ID, QuestionID: 10, StudentAnswer: strPtr("A"), AnsweredAt: time.Now(),
	}))
	require.NoError(t, repo.UpsertAnswer(&model.StudentAnswer{
		AttemptID: attempt.ID, QuestionID: 10, StudentAnswer: strPtr("B"), IsCorrect: true, PointsEarned: 2, AnsweredAt: time.Now(),
	}))

	answers, err := repo.ListAnswers(attempt.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "B", *answers[0].StudentAnswer)
	assert.True(t, answers[0].IsCorrect)
	assert.InDelta(t, 2, answers[0].PointsEarned, 1e-9)
}

func TestFinalizeOnlyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAttemptRepository(db)

	attempt, err := repo.EnsureInProgress(1, 2, time.Now())
	require.NoError(t, err)

	ok, err := repo.Finalize(attempt.ID, 66.67, 3, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Finalize(attempt.ID, 100, 3, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByExamAndStudent(1, 2)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSubmitted, got.Status)
	require.NotNil(t, got.Score)
	assert.InDelta(t, 66.67, *got.Score, 1e-9)
	require.NotNil(t, got.TotalPoints)
	assert.Equal(t, 3, *got.TotalPoints)
	assert.NotNil(t, got.SubmittedAt)
}

func TestListByStudent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAttemptRepository(db)

	_, err := repo.EnsureInProgress(1, 5, time.Now())
	require.NoError(t, err)
	_, err = repo.EnsureInProgress(3, 5, time.Now())
	require.NoError(t, err)
	_, err = repo.EnsureInProgress(1, 6, time.Now())
	require.NoError(t, err)

	got, err := repo.ListByStudent(5, []uint{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, uint(1))
	assert.Contains(t, got, uint(3))

	empty, err := repo.ListByStudent(5, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKey(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicateKey(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
	assert.False(t, IsDuplicateKey(nil))
}

func TestListQuestionsOrdered(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewExamRepository(db, nil, time.Minute)

	exam := &model.Exam{Title: "Quiz", SubjectID: 1, YearLevel: 1, Section: "A", CreatedBy: 1}
	require.NoError(t, repo.CreateExam(exam))

	for _, order := range []int{3, 1, 2} {
		require.NoError(t, repo.CreateQuestion(&model.Question{
			ExamID: exam.ID, QuestionText: fmt.Sprintf("q%d", order), QuestionType: model.TrueFalse,
			CorrectAnswer: "true", Points: 1, QuestionOrder: order,
		}))
	}

	qs, err := repo.ListQuestions(exam.ID)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, []string{"q1", "q2", "q3"}, []string{qs[0].QuestionText, qs[1].QuestionText, qs[2].QuestionText})

	next, err := repo.NextQuestionOrder(exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	next, err = repo.NextQuestionOrder(exam.ID + 100)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestQuestionOptionsRoundTrip(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewExamRepository(db, nil, time.Minute)

	q := &model.Question{
		ExamID: 1, QuestionText: "Pick one", QuestionType: model.MultipleChoice,
		Options:       []model.QuestionOption{{Label: "A", Text: "alpha"}, {Label: "B", Text: "beta"}},
		CorrectAnswer: "B", Points: 2, QuestionOrder: 1,
	}
	require.NoError(t, repo.CreateQuestion(q))

	qs, err := repo.ListQuestions(1)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, []model.QuestionOption{{Label: "A", Text: "alpha"}, {Label: "B", Text: "beta"}}, []model.QuestionOption(qs[0].Options))
}

func TestListQuestionsCached(t *testing.T) {
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	repo := NewExamRepository(db, rdb, time.Minute)
	ctx := context.Background()

	faculty := testutil.CreateUser(t, db, "F-1", model.Faculty, "password")
	exam, _ := testutil.CreateActiveExam(t, db, faculty.ID,
		testutil.QuestionSpec{Type: model.MultipleChoice, Correct: "B", Points: 1},
	)

	qs, err := repo.ListQuestionsCached(ctx, exam.ID)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.True(t, mr.Exists(questionsKey(exam.ID)))
	assert.Equal(t, time.Minute, mr.TTL(questionsKey(exam.ID)))

	// 直接改库后缓存仍返回旧数据，说明命中的是 redis
	require.NoError(t, db.Model(&model.Question{}).Where("exam_id = ?", exam.ID).Update("question_text", "changed").Error)
	qs, err = repo.ListQuestionsCached(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, "Question text", qs[0].QuestionText)

	repo.InvalidateQuestions(ctx, exam.ID)
	assert.False(t, mr.Exists(questionsKey(exam.ID)))

	qs, err = repo.ListQuestionsCached(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", qs[0].QuestionText)
}

func TestListQuestionsCachedRedisDown(t *testing.T) {
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	repo := NewExamRepository(db, rdb, time.Minute)

	faculty := testutil.CreateUser(t, db, "F-1", model.Faculty, "password")
	exam, _ := testutil.CreateActiveExam(t, db, faculty.ID,
		testutil.QuestionSpec{Type: model.TrueFalse, Correct: "true", Points: 1},
	)

	mr.Close()
	qs, err := repo.ListQuestionsCached(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Len(t, qs, 1)
}

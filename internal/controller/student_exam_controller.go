package controller

import (
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudentExamController struct {
	Service *service.ExamSessionService
}

func NewStudentExamController(svc *service.ExamSessionService) *StudentExamController {
	return &StudentExamController{Service: svc}
}

// SubmitExamRequest answers 以题目ID（字符串）为键
// swagger:model SubmitExamRequest
type SubmitExamRequest struct {
	ExamID  uint              `json:"exam_id" binding:"required"`
	Answers map[string]string `json:"answers"`
}

// @Summary 学生可参加的考试列表
// @Tags 学生考试
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.AvailableExam}
// @Router /api/student/exams [get]
func (c *StudentExamController) ListExams(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	exams, err := c.Service.ListAvailableExams(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, exams)
}

// @Summary 获取考试题目
// @Description 首次获取时开始作答；不返回标准答案，已交卷的考试不可再查看
// @Tags 学生考试
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.ExamPaper}
// @Failure 404 {object} util.Response "考试不存在或未开放"
// @Failure 409 {object} util.Response "已交卷"
// @Router /api/student/exams/{id}/questions [get]
func (c *StudentExamController) GetQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	examID := util.MustParseUint(ctx.Param("id"))
	if examID == 0 {
		util.BadRequest(ctx, "Invalid exam ID")
		return
	}

	paper, err := c.Service.GetQuestionsForAttempt(ctx.Request.Context(), examID, user.UserID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, paper)
}

// @Summary 交卷
// @Description 判分并保存作答，每场考试只能提交一次
// @Tags 学生考试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SubmitExamRequest true "答案"
// @Success 200 {object} object "success, score, earned_points, total_points, percentage, attempt_id"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "考试不存在或未开放"
// @Failure 409 {object} util.Response "已交卷"
// @Failure 500 {object} util.Response "保存失败，可重试"
// @Router /api/student/exams/submit [post]
func (c *StudentExamController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "exam_id is required and answers must map question IDs to strings")
		return
	}
	answers, err := service.ParseAnswers(req.Answers)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	result, err := c.Service.SubmitExam(ctx.Request.Context(), req.ExamID, user.UserID, answers)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Flat(ctx, gin.H{
		"score":         result.EarnedPoints,
		"earned_points": result.EarnedPoints,
		"total_points":  result.TotalPoints,
		"percentage":    result.Percentage,
		"attempt_id":    result.AttemptID,
	})
}

// @Summary 查看本人成绩
// @Tags 学生考试
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.MyResult}
// @Failure 404 {object} util.Response
// @Router /api/student/exams/{id}/result [get]
func (c *StudentExamController) GetResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	examID := util.MustParseUint(ctx.Param("id"))
	if examID == 0 {
		util.BadRequest(ctx, "Invalid exam ID")
		return
	}

	result, err := c.Service.GetMyResult(ctx.Request.Context(), examID, user.UserID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

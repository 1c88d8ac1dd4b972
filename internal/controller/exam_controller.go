package controller

import (
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ExamController 教师出卷
type ExamController struct {
	Service *service.ExamService
}

func NewExamController(svc *service.ExamService) *ExamController {
	return &ExamController{Service: svc}
}

type SetStatusRequest struct {
	Status model.ExamStatus `json:"status" binding:"required"`
}

func actorFrom(claims *util.Claims) service.Actor {
	return service.Actor{ID: claims.UserID, Role: claims.Role}
}

// @Summary 创建考试
// @Description 可同时录入题目；新建考试为未发布状态
// @Tags 教师出卷
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateExamReq true "考试信息"
// @Success 201 {object} util.Response{data=service.ExamDetail}
// @Failure 400 {object} util.Response
// @Router /api/faculty/exams [post]
func (c *ExamController) CreateExam(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateExamReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.Service.CreateExam(ctx.Request.Context(), actorFrom(user), req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, exam)
}

// @Summary 我创建的考试
// @Tags 教师出卷
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.ExamSummary}
// @Router /api/faculty/exams [get]
func (c *ExamController) ListExams(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	exams, err := c.Service.ListMyExams(ctx.Request.Context(), actorFrom(user))
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, exams)
}

// @Summary 考试详情（含标准答案）
// @Tags 教师出卷
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.ExamDetail}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/faculty/exams/{id} [get]
func (c *ExamController) GetExam(ctx *gin.Context) {
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

	exam, err := c.Service.GetExam(ctx.Request.Context(), actorFrom(user), examID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// @Summary 添加题目
// @Description 已发布的考试不能再添加题目
// @Tags 教师出卷
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Param body body service.QuestionReq true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "考试已发布"
// @Router /api/faculty/exams/{id}/questions [post]
func (c *ExamController) AddQuestion(ctx *gin.Context) {
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

	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.AddQuestion(ctx.Request.Context(), actorFrom(user), examID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 修改考试状态
// @Description active / inactive / completed；发布前至少需要一道题
// @Tags 教师出卷
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Param body body SetStatusRequest true "状态"
// @Success 200 {object} util.Response{data=model.Exam}
// @Failure 400 {object} util.Response
// @Router /api/faculty/exams/{id}/status [put]
func (c *ExamController) SetStatus(ctx *gin.Context) {
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

	var req SetStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.Service.SetStatus(ctx.Request.Context(), actorFrom(user), examID, req.Status)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

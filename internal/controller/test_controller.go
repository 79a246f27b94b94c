package controller

import (
	"encoding/json"
	"errors"
	"strconv"

	"englishforyou_backend/internal/model"
	"englishforyou_backend/internal/service"
	"englishforyou_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	TestService *service.TestService
}

func NewTestController(testService *service.TestService) *TestController {
	return &TestController{TestService: testService}
}

// StartTest godoc
// @Summary Start a placement test session
// @Description Abandons any running session and opens a fresh one.
// @Tags assessment
// @Produce  json
// @Success 201 {object} util.Response{data=object}
// @Failure 409 {object} util.Response
// @Security BearerAuth
// @Router /api/assessment/start [post]
func (c *TestController) StartTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	session, err := c.TestService.Start(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrTestAlreadyRunning) {
			util.Conflict(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"sessionId":     session.ID,
		"maxQuestions":  c.TestService.Cfg.Assessment.MaxQuestions,
		"timeRemaining": session.TimeRemaining(session.StartedAt),
	})
}

// questionPayload shapes a question for the client, without the answer.
func questionPayload(q *model.Question) gin.H {
	return gin.H{
		"id":           q.ID,
		"questionText": q.QuestionText,
		"questionType": q.QuestionType,
		"options":      q.Options,
		"level":        q.Level,
		"topic":        q.Topic.Name,
	}
}

// CurrentQuestion godoc
// @Summary Get the next question of the running session
// @Tags assessment
// @Produce  json
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Security BearerAuth
// @Router /api/assessment/question [get]
func (c *TestController) CurrentQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	next, err := c.TestService.CurrentQuestion(ctx.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	if next.Finished {
		util.Success(ctx, gin.H{
			"finished":  true,
			"sessionId": next.Session.ID,
			"status":    next.Session.Status,
		})
		return
	}

	payload := gin.H{
		"finished":       false,
		"question":       questionPayload(next.Question),
		"questionNumber": next.QuestionNumber,
		"totalQuestions": c.TestService.Cfg.Assessment.MaxQuestions,
		"canFinish":      next.Session.TotalQuestions >= c.TestService.Cfg.Assessment.MinQuestions,
		"timeRemaining":  next.TimeRemaining,
	}
	if warning := model.TimeWarning(next.TimeRemaining); warning != "" {
		payload["timeWarning"] = warning
	}
	util.Success(ctx, payload)
}

// AnswerRequest is one submitted answer.
// swagger:model AnswerRequest
type AnswerRequest struct {
	QuestionID uint            `json:"questionId" binding:"required"`
	Answer     json.RawMessage `json:"answer" binding:"required"`
	TimeTaken  int             `json:"timeTaken"`
}

// SubmitAnswer godoc
// @Summary Submit an answer to the current question
// @Tags assessment
// @Accept  json
// @Produce  json
// @Param   body body AnswerRequest true "Answer payload"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Security BearerAuth
// @Router /api/assessment/answer [post]
func (c *TestController) SubmitAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.TestService.SubmitAnswer(claims.UserID, req.QuestionID, req.Answer, req.TimeTaken)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestNotFound), errors.Is(err, util.ErrQuestionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrTestExpired):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

// FinishTest godoc
// @Summary Finish the running session early
// @Description At least the minimum number of questions must be answered.
// @Tags assessment
// @Produce  json
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Security BearerAuth
// @Router /api/assessment/finish [post]
func (c *TestController) FinishTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	session, err := c.TestService.Finish(claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrTooFewQuestions), errors.Is(err, util.ErrTestExpired):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"sessionId":       session.ID,
		"score":           session.Score,
		"determinedLevel": session.DeterminedLevel,
	})
}

// Results godoc
// @Summary Get the analysis of a completed session
// @Tags assessment
// @Produce  json
// @Param   id path int true "Session ID"
// @Success 200 {object} util.Response{data=service.TestResults}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Security BearerAuth
// @Router /api/assessment/results/{id} [get]
func (c *TestController) Results(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	sessionID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid session id")
		return
	}

	results, err := c.TestService.Results(uint(sessionID), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrTestNotCompleted):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, results)
}

// QuestionStats godoc
// @Summary Question pool statistics
// @Description Pool size and most served questions with their correct rates.
// @Tags admin
// @Produce  json
// @Param   limit query int false "Number of questions to list" default(20)
// @Success 200 {object} util.Response{data=service.QuestionPoolStats}
// @Security BearerAuth
// @Router /api/admin/questions [get]
func (c *TestController) QuestionStats(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	stats, err := c.TestService.PoolStats(limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}

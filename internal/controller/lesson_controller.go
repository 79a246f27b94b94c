package controller

import (
	"encoding/json"
	"errors"
	"strconv"

	"englishforyou_backend/internal/service"
	"englishforyou_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService   *service.LessonService
	ProgressService *service.ProgressService
}

func NewLessonController(lessonService *service.LessonService, progressService *service.ProgressService) *LessonController {
	return &LessonController{
		LessonService:   lessonService,
		ProgressService: progressService,
	}
}

// GenerateBlock godoc
// @Summary Generate the next lesson block
// @Description Runs the AI pipeline; fails while the current block is unfinished.
// @Tags lessons
// @Produce  json
// @Success 201 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Security BearerAuth
// @Router /api/lessons/generate [post]
func (c *LessonController) GenerateBlock(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	block, err := c.LessonService.GenerateBlock(ctx.Request.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestRequired), errors.Is(err, util.ErrBlockInProgress):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrGenerationBusy):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrGenerationFailed):
			util.Error(ctx, 502, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, gin.H{
		"blockId":      block.ID,
		"title":        block.Title,
		"grammarTopic": block.GrammarTopic,
		"level":        block.Level,
		"order":        block.Order,
	})
}

// Board godoc
// @Summary List the learner's lesson blocks with progress
// @Tags lessons
// @Produce  json
// @Success 200 {object} util.Response{data=service.BoardView}
// @Security BearerAuth
// @Router /api/lessons/board [get]
func (c *LessonController) Board(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	board, err := c.LessonService.Board(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, board)
}

// GetLesson godoc
// @Summary Get one unlocked lesson for study
// @Tags lessons
// @Produce  json
// @Param   id path int true "Lesson ID"
// @Success 200 {object} util.Response{data=service.LessonView}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Security BearerAuth
// @Router /api/lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid lesson id")
		return
	}

	view, err := c.LessonService.GetLesson(claims.UserID, uint(lessonID))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrLessonNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrLessonLocked):
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, view)
}

// CheckExerciseRequest grades one exercise of a lesson.
// swagger:model CheckExerciseRequest
type CheckExerciseRequest struct {
	LessonID      uint            `json:"lessonId" binding:"required"`
	ExerciseIndex *int            `json:"exerciseIndex" binding:"required"`
	Answer        json.RawMessage `json:"answer" binding:"required"`
}

// CheckExercise godoc
// @Summary Check one exercise answer
// @Description Read only, progress state is untouched.
// @Tags lessons
// @Accept  json
// @Produce  json
// @Param   body body CheckExerciseRequest true "Exercise answer"
// @Success 200 {object} util.Response{data=service.ExerciseCheck}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Security BearerAuth
// @Router /api/lessons/check [post]
func (c *LessonController) CheckExercise(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CheckExerciseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	check, err := c.ProgressService.CheckExercise(claims.UserID, req.LessonID, *req.ExerciseIndex, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrLessonNotFound), errors.Is(err, util.ErrExerciseNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrLessonLocked):
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, check)
}

// CompleteLessonRequest carries the answer map of one finished attempt, keyed
// by exercise position. The score is computed server side from the map.
// swagger:model CompleteLessonRequest
type CompleteLessonRequest struct {
	LessonID  uint                       `json:"lessonId" binding:"required"`
	Exercises map[string]json.RawMessage `json:"exercises"`
}

// CompleteLesson godoc
// @Summary Record a lesson attempt
// @Description Scores the submitted exercises; a passing result completes the lesson and unlocks the next one.
// @Tags lessons
// @Accept  json
// @Produce  json
// @Param   body body CompleteLessonRequest true "Attempt result"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Security BearerAuth
// @Router /api/lessons/complete [post]
func (c *LessonController) CompleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CompleteLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.CompleteLesson(claims.UserID, req.LessonID, req.Exercises)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrLessonNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrLessonLocked):
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

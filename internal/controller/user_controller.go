package controller

import (
	"errors"

	"englishforyou_backend/internal/service"
	"englishforyou_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// Account godoc
// @Summary Get the current user's account and profile
// @Tags user
// @Produce  json
// @Success 200 {object} util.Response{data=service.AccountView}
// @Failure 404 {object} util.Response
// @Security BearerAuth
// @Router /api/user/account [get]
func (c *UserController) Account(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.UserService.Account(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, view)
}

// UpdateProfile godoc
// @Summary Update the editable profile fields
// @Tags user
// @Accept  json
// @Produce  json
// @Param   body body service.ProfileUpdate true "Profile fields"
// @Success 200 {object} util.Response{data=model.Profile}
// @Security BearerAuth
// @Router /api/user/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ProfileUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile, err := c.UserService.UpdateProfile(claims.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, profile)
}

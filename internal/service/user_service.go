package service

import (
	"errors"

	"englishforyou_backend/internal/model"
	"englishforyou_backend/internal/repository"
	"englishforyou_backend/internal/util"

	"gorm.io/gorm"
)

type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

// AccountView is the profile page payload.
type AccountView struct {
	User    *model.User    `json:"user"`
	Profile *model.Profile `json:"profile"`
}

func (s *UserService) Account(userID uint) (*AccountView, error) {
	user, err := s.UserRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	profile, err := s.UserRepo.GetOrCreateProfile(userID)
	if err != nil {
		return nil, err
	}
	return &AccountView{User: user, Profile: profile}, nil
}

// ProfileUpdate carries the learner editable profile fields.
type ProfileUpdate struct {
	About         *string `json:"about"`
	Interests     *string `json:"interests"`
	LearningGoals *string `json:"learningGoals"`
}

func (s *UserService) UpdateProfile(userID uint, update ProfileUpdate) (*model.Profile, error) {
	profile, err := s.UserRepo.GetOrCreateProfile(userID)
	if err != nil {
		return nil, err
	}
	if update.About != nil {
		profile.About = *update.About
	}
	if update.Interests != nil {
		profile.Interests = *update.Interests
	}
	if update.LearningGoals != nil {
		profile.LearningGoals = *update.LearningGoals
	}
	if err := s.UserRepo.SaveProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

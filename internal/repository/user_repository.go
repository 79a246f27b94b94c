package repository

import (
	"errors"
	"time"

	"englishforyou_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// WithTx rebinds the repository to a running transaction.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) UpdateLastLogin(id uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", id).
		Update("last_login", time.Now()).Error
}

// GetOrCreateProfile returns the user's profile, creating an empty one on
// first access.
func (r *UserRepository) GetOrCreateProfile(userID uint) (*model.Profile, error) {
	var profile model.Profile
	err := r.DB.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = model.Profile{UserID: userID, LanguageLevel: model.CEFRLevels[0]}
		err = r.DB.Create(&profile).Error
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *UserRepository) SaveProfile(profile *model.Profile) error {
	return r.DB.Save(profile).Error
}

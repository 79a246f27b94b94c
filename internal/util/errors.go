package util

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailRegistered = errors.New("email already registered")
	ErrBadCredentials  = errors.New("invalid email or password")

	ErrTestNotFound       = errors.New("test session not found")
	ErrTestNotCompleted   = errors.New("test session is not completed")
	ErrTestExpired        = errors.New("test session has timed out")
	ErrTestAlreadyRunning = errors.New("another test session is already running")
	ErrTooFewQuestions    = errors.New("not enough questions answered to finish")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrNoQuestions        = errors.New("no suitable questions available")

	ErrBlockInProgress  = errors.New("current lesson block is not completed yet")
	ErrGenerationBusy   = errors.New("lesson generation already running")
	ErrGenerationFailed = errors.New("lesson generation failed")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrLessonLocked     = errors.New("lesson is locked")
	ErrExerciseNotFound = errors.New("exercise not found in lesson")
	ErrTestRequired     = errors.New("placement test must be completed first")
)

package service

import "errors"

var (
	ErrAccountNotFound       = errors.New("personal account not found")
	ErrRecordingNotFound     = errors.New("recording not found")
	ErrActiveRecordingExists = errors.New("an active recording already exists")
	ErrInvalidState          = errors.New("invalid recording state")
	ErrInvalidInput          = errors.New("invalid input")
)

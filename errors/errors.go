package errors

import "fmt"

var (
	ErrNotFound           = fmt.Errorf("not found")
	ErrNameTaken          = fmt.Errorf("conversation name already taken")
	ErrUnauthorized       = fmt.Errorf("caller is not the conversation admin")
	ErrForbidden          = fmt.Errorf("caller is not a member of the conversation")
	ErrValidation         = fmt.Errorf("validation failed")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("username already taken")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrStorage            = fmt.Errorf("storage failure")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)

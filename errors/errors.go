package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrInvalidCredentials = fmt.Errorf("invalid user name or password")
	ErrInvalidToken       = fmt.Errorf("invalid or expired session token")
	ErrNameTaken          = fmt.Errorf("name already taken")
	ErrMalformedMessage   = fmt.Errorf("malformed message")
	ErrUnexpectedMessage  = fmt.Errorf("unexpected message type")
)

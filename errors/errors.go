package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrConfirmTimeout = fmt.Errorf("duplicate confirmation timed out")
)

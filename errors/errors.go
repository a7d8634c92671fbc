package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrSourceUnavailable = fmt.Errorf("snapshot source unavailable")
	ErrAuth              = fmt.Errorf("vision api authentication failed")
	ErrRemote            = fmt.Errorf("vision api request failed")
	ErrInvalidImage      = fmt.Errorf("image payload cannot be decoded")
	ErrDelivery          = fmt.Errorf("webhook delivery failed")
)

package scheduler

import "errors"

var ErrSchedulerUnavailable = errors.New("notification scheduler unavailable")

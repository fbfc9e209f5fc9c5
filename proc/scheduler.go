package proc

import "time"

// Stopper cancels a scheduled task. Stop reports whether the call prevented
// the task from running.
type Stopper interface {
	Stop() bool
}

// Scheduler creates cancelable delayed tasks. Tests inject a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// SystemScheduler runs tasks on the wall clock via time.AfterFunc.
var SystemScheduler Scheduler = wallScheduler{}

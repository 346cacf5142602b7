package storage

import "time"

// Observer receives storage events, typically to record metrics
type Observer interface {
	DocumentOpened(readOnly bool, failedLines int)
	DocumentClosed(written bool)
	LockWait(d time.Duration)
	LockTimeout()
	IntegrityFailure()
}

type nopObserver struct{}

func (nopObserver) DocumentOpened(bool, int) {}
func (nopObserver) DocumentClosed(bool)      {}
func (nopObserver) LockWait(time.Duration)   {}
func (nopObserver) LockTimeout()             {}
func (nopObserver) IntegrityFailure()        {}

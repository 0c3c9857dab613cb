package logging

import (
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation defaults: a new file every hour, a day of history.
const (
	DefaultRotateEvery = time.Hour
	DefaultKeepFiles   = 24
)

// rotatingFile is a lumberjack file that is also rotated on wall-clock
// boundaries of every.
type rotatingFile struct {
	*lumberjack.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func openRotating(path string, every time.Duration, keep int) *rotatingFile {
	f := &rotatingFile{
		Logger: &lumberjack.Logger{
			Filename:   path,
			MaxBackups: keep,
			LocalTime:  true,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go f.loop(every)
	return f
}

func (f *rotatingFile) loop(every time.Duration) {
	defer close(f.done)
	for {
		next := time.Now().Truncate(every).Add(every)
		t := time.NewTimer(time.Until(next))
		select {
		case <-f.stop:
			t.Stop()
			return
		case <-t.C:
			// errors surface again on the next write
			_ = f.Rotate()
		}
	}
}

// Close stops the rotation timer and closes the current file.
func (f *rotatingFile) Close() error {
	f.once.Do(func() { close(f.stop) })
	<-f.done
	return f.Logger.Close()
}

var _ io.WriteCloser = (*rotatingFile)(nil)

// internal/executor/input.go
package executor

import (
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"
)

// Input abstracts the OS input layer so the executor can be exercised in
// tests without a display.
type Input interface {
	Move(x, y int) error
	Click() error
	TypeText(text string, delay time.Duration) error
	KeyTap(key string, mods ...string) error
}

// RobotgoInput drives the real pointer and keyboard.
type RobotgoInput struct{}

var _ Input = (*RobotgoInput)(nil)

// robotgo panics instead of erroring on a missing or locked display, so
// every call converts panics back into errors.
func guard(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", op, r)
		}
	}()
	fn()
	return nil
}

func (RobotgoInput) Move(x, y int) error {
	return guard("move", func() { robotgo.Move(x, y) })
}

func (RobotgoInput) Click() error {
	return guard("click", func() { robotgo.Click("left", false) })
}

func (RobotgoInput) TypeText(text string, delay time.Duration) error {
	return guard("type", func() { robotgo.TypeStr(text, delay.Seconds()) })
}

func (RobotgoInput) KeyTap(key string, mods ...string) error {
	args := make([]interface{}, len(mods))
	for i, m := range mods {
		args[i] = m
	}
	var tapErr error
	if err := guard("keytap", func() { tapErr = robotgo.KeyTap(key, args...) }); err != nil {
		return err
	}
	return tapErr
}

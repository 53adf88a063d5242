package tasks

import (
	"errors"
	"fmt"
)

var ErrTaskNotFound = errors.New("task not found")

// MissingTaskError names the requested source that matched no task.
type MissingTaskError struct {
	Source string
}

func (e *MissingTaskError) Error() string {
	return fmt.Sprintf("%s is not exists!", e.Source)
}

func (e *MissingTaskError) Unwrap() error {
	return ErrTaskNotFound
}

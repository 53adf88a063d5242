// Package storage reads task frame images from the frame store.
package storage

import (
	"errors"
	"fmt"
	"io"
	"path"
)

var (
	ErrFrameNotFound = errors.New("frame not found")
	ErrInvalidPath   = errors.New("invalid path")
)

type FrameStore interface {
	OpenFrame(dataDir string, frame int) (io.ReadCloser, error)
}

// FramePath is the location of a frame's watershed image inside a task data
// directory: <dir>/<frame/10000>/<frame/100>/<frame>_w.png.
func FramePath(dataDir string, frame int) string {
	return path.Join(dataDir,
		fmt.Sprint(frame/10000),
		fmt.Sprint(frame/100),
		fmt.Sprintf("%d_w.png", frame))
}

package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

var ErrNoCamera = errors.New("no camera configured")

// Camera captures a still for a credential presentation and returns a
// reference to it (typically a file path). Image capture itself lives
// outside this module.
type Camera interface {
	Capture(ctx context.Context, uid string, at time.Time) (string, error)
}

// CameraFunc adapts a plain function to Camera.
type CameraFunc func(ctx context.Context, uid string, at time.Time) (string, error)

func (f CameraFunc) Capture(ctx context.Context, uid string, at time.Time) (string, error) {
	return f(ctx, uid, at)
}

// SnapshotNamer is a Camera that only names the snapshot the frame grabber
// will write: <dir>/<uid>_<YYYYMMDD_HHMMSS>.jpg.
type SnapshotNamer struct {
	Dir string
}

func (n SnapshotNamer) Capture(_ context.Context, uid string, at time.Time) (string, error) {
	if strings.TrimSpace(n.Dir) == "" {
		return "", ErrNoCamera
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		uid = "unknown"
	}
	// keep a path separator in a PIN or uid from escaping Dir
	uid = strings.NewReplacer("/", "_", `\`, "_").Replace(uid)
	return filepath.Join(n.Dir, uid+"_"+at.Format("20060102_150405")+".jpg"), nil
}

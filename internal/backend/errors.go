package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"pkt.systems/tabedit/schema"
)

// ServiceError reports a command the service rejected.
type ServiceError struct {
	ExitCode int
	Stderr   string
}

func (e *ServiceError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	switch {
	case e.ExitCode != 0 && msg != "":
		return fmt.Sprintf("store service error: exit %d: %s", e.ExitCode, msg)
	case e.ExitCode != 0:
		return fmt.Sprintf("store service error: exit %d", e.ExitCode)
	case msg != "":
		return fmt.Sprintf("store service error: %s", msg)
	default:
		return "store service error"
	}
}

// Unwrap lets errors.Is match schema.ErrService.
func (e *ServiceError) Unwrap() error {
	return schema.ErrService
}

// resolveBinary fails fast when the service executable is absent.
func resolveBinary(path string) (string, error) {
	if strings.ContainsRune(path, os.PathSeparator) {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", schema.ErrServiceNotFound, path)
			}
			return "", fmt.Errorf("%w: %v", schema.ErrTransport, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", schema.ErrServiceNotFound, path)
		}
		return path, nil
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", schema.ErrServiceNotFound, path)
	}
	return resolved, nil
}

// classify maps an invocation failure onto the error taxonomy.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", schema.ErrTimeout, err)
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", schema.ErrServiceNotFound, err)
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	if errors.Is(err, schema.ErrTimeout) || errors.Is(err, schema.ErrTransport) || errors.Is(err, schema.ErrServiceNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", schema.ErrTransport, err)
}

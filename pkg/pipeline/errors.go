package pipeline

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrNotReady             = errors.New("pipeline is not started")
	ErrAlreadyStarted       = errors.New("already started")
	ErrTerminated           = errors.New("terminated")
	ErrEmptyPackage         = errors.New("package has no layers")
	ErrLayerOutOfRange      = errors.New("layer out of range")
	ErrLayerNotFound        = errors.New("layer not found")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrStageDead            = errors.New("stage is dead")
	ErrConstructorMustBeSet = errors.New("constructor must be set")
	ErrUnknownProcessor     = errors.New("unknown processor")
	ErrInvalidParam         = errors.New("invalid parameter")
	ErrDuplicateStageName   = errors.New("stage name is used more than once")
	ErrReservedStageName    = errors.New("stage name is reserved")
)

// StageError is the failure of a stage worker on a given package.
type StageError struct {
	Err       error
	Stage     string
	PackageID string
	Index     int
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (%d): package %s: %v", e.Stage, e.Index, e.PackageID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Cause() error { return e.Err }

// failureLog keeps every failure reported by a stage.
type failureLog struct {
	mu   sync.Mutex
	list []error
}

func (fl *failureLog) add(err error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.list = append(fl.list, err)
}

func (fl *failureLog) all() []error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	res := make([]error, len(fl.list))
	copy(res, fl.list)

	return res
}

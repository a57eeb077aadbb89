package affection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Label is a sentiment class.
type Label string

const (
	LabelPositive Label = "POS"
	LabelNegative Label = "NEG"
	LabelNeutral  Label = "NEU"
)

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelPositive, LabelNegative, LabelNeutral:
		return true
	}
	return false
}

type Classification struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels a batch of texts. The result has the same length and order as texts.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]Classification, error)
}

// Loader prepares a Classifier, reporting progress as it goes.
type Loader interface {
	Load(ctx context.Context, progress ProgressFunc) (Classifier, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, progress ProgressFunc) (Classifier, error)

func (f LoaderFunc) Load(ctx context.Context, progress ProgressFunc) (Classifier, error) {
	return f(ctx, progress)
}

// State is the lifecycle of a ClassifierHandle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// ClassifierHandle lazily loads a classifier once and shares it between analyses.
// Concurrent callers of Get share a single in-flight load. A failed load is retried on the
// next call.
type ClassifierHandle struct {
	name   string
	loader Loader

	group singleflight.Group

	mu         sync.Mutex
	state      State
	classifier Classifier
	lastErr    error
}

// NewClassifierHandle returns a handle that loads through loader. name labels progress events.
func NewClassifierHandle(name string, loader Loader) *ClassifierHandle {
	return &ClassifierHandle{name: name, loader: loader, state: StateUninitialized}
}

// ReadyHandle returns a handle that already holds c.
func ReadyHandle(name string, c Classifier) *ClassifierHandle {
	return &ClassifierHandle{name: name, state: StateReady, classifier: c}
}

func (h *ClassifierHandle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the error of the most recent failed load.
func (h *ClassifierHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// Get returns the classifier, loading it if needed. Cancelling ctx abandons the wait but not
// a load already in flight.
func (h *ClassifierHandle) Get(ctx context.Context, progress ProgressFunc) (Classifier, error) {
	h.mu.Lock()
	switch h.state {
	case StateReady:
		c := h.classifier
		h.mu.Unlock()
		progress.emit(Progress{Status: StatusDone, Name: h.name, Progress: 100})
		return c, nil
	case StateLoading:
		h.mu.Unlock()
		progress.emit(Progress{Status: StatusPending, Name: h.name})
	default:
		if h.loader == nil {
			h.mu.Unlock()
			return nil, errors.New("ClassifierHandle.Get: no loader configured")
		}
		h.state = StateLoading
		h.mu.Unlock()
		progress.emit(Progress{Status: StatusInitializing, Name: h.name})
	}

	ch := h.group.DoChan(h.name, func() (any, error) {
		return h.load(context.WithoutCancel(ctx), progress)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			progress.emit(Progress{Status: StatusError, Name: h.name, Error: res.Err.Error()})
			return nil, res.Err
		}
		progress.emit(Progress{Status: StatusDone, Name: h.name, Progress: 100})
		return res.Val.(Classifier), nil
	}
}

func (h *ClassifierHandle) load(ctx context.Context, progress ProgressFunc) (Classifier, error) {
	h.mu.Lock()
	if h.state == StateReady {
		c := h.classifier
		h.mu.Unlock()
		return c, nil
	}
	h.state = StateLoading
	h.mu.Unlock()

	c, err := h.loader.Load(ctx, progress)
	if err == nil && c == nil {
		err = errors.New("loader returned no classifier")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.state = StateFailed
		h.lastErr = fmt.Errorf("load classifier %q: %w", h.name, err)
		return nil, h.lastErr
	}
	h.state = StateReady
	h.classifier = c
	h.lastErr = nil
	return c, nil
}

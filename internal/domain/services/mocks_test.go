package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/siteforge/siteforge/internal/domain/entities"
	"github.com/siteforge/siteforge/internal/domain/ports"
)

// Mock implementations shared by the service tests

type MockToolRunner struct {
	mock.Mock
}

func (m *MockToolRunner) Run(ctx context.Context, dir string, args ...string) (*ports.RunResult, error) {
	callArgs := m.Called(ctx, dir, args)
	if r := callArgs.Get(0); r != nil {
		return r.(*ports.RunResult), callArgs.Error(1)
	}
	return nil, callArgs.Error(1)
}

func (m *MockToolRunner) Start(ctx context.Context, dir string, args ...string) (ports.PreviewProcess, error) {
	callArgs := m.Called(ctx, dir, args)
	if p := callArgs.Get(0); p != nil {
		return p.(ports.PreviewProcess), callArgs.Error(1)
	}
	return nil, callArgs.Error(1)
}

// fakeProcess is a controllable PreviewProcess
type fakeProcess struct {
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{done: make(chan struct{})}
}

func (p *fakeProcess) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		close(p.done)
	}
	return nil
}

func (p *fakeProcess) Done() <-chan struct{} {
	return p.done
}

func (p *fakeProcess) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// fakeWatcher hands out one channel per Watch call
type fakeWatcher struct {
	mu       sync.Mutex
	channels []chan ports.FileChangeEvent
}

func (w *fakeWatcher) Watch(ctx context.Context, root string) (<-chan ports.FileChangeEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan ports.FileChangeEvent, 4)
	w.channels = append(w.channels, ch)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (w *fakeWatcher) latest() chan ports.FileChangeEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.channels) == 0 {
		return nil
	}
	return w.channels[len(w.channels)-1]
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (*entities.StructureDocument, error) {
	callArgs := m.Called(ctx, prompt)
	if d := callArgs.Get(0); d != nil {
		return d.(*entities.StructureDocument), callArgs.Error(1)
	}
	return nil, callArgs.Error(1)
}

type MockScaffolder struct {
	mock.Mock
}

func (m *MockScaffolder) PathFor(name string) string {
	return m.Called(name).String(0)
}

func (m *MockScaffolder) Materialize(ctx context.Context, dir string, doc *entities.StructureDocument) error {
	return m.Called(ctx, dir, doc).Error(0)
}

func (m *MockScaffolder) Remove(dir string) error {
	return m.Called(dir).Error(0)
}

// eventRecorder captures bus traffic for assertions
type eventRecorder struct {
	mu     sync.Mutex
	events []entities.Event
}

func recordEvents(bus *EventBus) *eventRecorder {
	rec := &eventRecorder{}
	bus.Subscribe(func(e entities.Event) {
		rec.mu.Lock()
		rec.events = append(rec.events, e)
		rec.mu.Unlock()
	})
	return rec
}

func (r *eventRecorder) typesSeen() []entities.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *eventRecorder) count(typ entities.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

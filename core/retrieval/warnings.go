package retrieval

import (
	"context"
	"sync"
)

type warningsKey struct{}

// Warnings collects non fatal problems of one retrieval call
type Warnings struct {
	mutex    sync.Mutex
	messages []string
}

// WithWarnings returns a context carrying a new warnings collector
func WithWarnings(ctx context.Context) (context.Context, *Warnings) {
	w := &Warnings{}
	return context.WithValue(ctx, warningsKey{}, w), w
}

// Warn records err on the collector of ctx, if there is one
func Warn(ctx context.Context, err error) {
	if err == nil {
		return
	}
	w, ok := ctx.Value(warningsKey{}).(*Warnings)
	if !ok {
		return
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.messages = append(w.messages, err.Error())
}

// Messages returns a copy of the recorded warnings
func (w *Warnings) Messages() []string {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if len(w.messages) == 0 {
		return nil
	}
	return append([]string(nil), w.messages...)
}

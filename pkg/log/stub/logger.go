package stub

import (
	"context"
	"sync"

	"github.com/klwxsrx/go-auth-client/pkg/log"
)

type (
	Entry struct {
		Level   log.Level
		Message string
		Fields  log.Fields
	}

	// Recorder keeps every logged entry in memory.
	Recorder struct {
		mu      *sync.Mutex
		entries *[]Entry
		fields  log.Fields
	}
)

func NewRecorder() *Recorder {
	return &Recorder{
		mu:      &sync.Mutex{},
		entries: &[]Entry{},
		fields:  log.Fields{},
	}
}

func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Entry, len(*r.entries))
	copy(result, *r.entries)
	return result
}

func (r *Recorder) EntriesWithLevel(level log.Level) []Entry {
	var result []Entry
	for _, entry := range r.Entries() {
		if entry.Level == level {
			result = append(result, entry)
		}
	}
	return result
}

func (r *Recorder) With(fields log.Fields) log.Logger {
	merged := make(log.Fields, len(r.fields)+len(fields))
	for key, value := range r.fields {
		merged[key] = value
	}
	for key, value := range fields {
		merged[key] = value
	}

	return &Recorder{mu: r.mu, entries: r.entries, fields: merged}
}

func (r *Recorder) WithField(name string, value any) log.Logger {
	return r.With(log.Fields{name: value})
}

func (r *Recorder) WithError(err error) log.Logger {
	if err == nil {
		return r
	}
	return r.With(log.Fields{"error": err.Error()})
}

func (r *Recorder) WithContext(ctx context.Context, _ log.Fields) context.Context {
	return ctx
}

func (r *Recorder) Log(_ context.Context, level log.Level, msg string) {
	if level == log.LevelDisabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, Entry{Level: level, Message: msg, Fields: r.fields})
}

func (r *Recorder) Debug(ctx context.Context, msg string) {
	r.Log(ctx, log.LevelDebug, msg)
}

func (r *Recorder) Info(ctx context.Context, msg string) {
	r.Log(ctx, log.LevelInfo, msg)
}

func (r *Recorder) Warn(ctx context.Context, msg string) {
	r.Log(ctx, log.LevelWarn, msg)
}

func (r *Recorder) Error(ctx context.Context, msg string) {
	r.Log(ctx, log.LevelError, msg)
}

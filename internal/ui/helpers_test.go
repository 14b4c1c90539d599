package ui

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// capHandler — slog.Handler, собирающий сообщения и атрибуты записей.
type capHandler struct {
	mu      sync.Mutex
	records []capRecord
}

type capRecord struct {
	msg   string
	lvl   slog.Level
	attrs map[string]any
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := map[string]any{}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, capRecord{msg: r.Message, lvl: r.Level, attrs: attrs})
	return nil
}

func (h *capHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capHandler) WithGroup(string) slog.Handler      { return h }

func (h *capHandler) last(msg string) (capRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i].msg == msg {
			return h.records[i], true
		}
	}
	return capRecord{}, false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeWindow — окно с прокруткой, которое помнит все ScrollTo.
type fakeWindow struct {
	mu      sync.Mutex
	y       float64
	top     float64
	hasTop  bool
	targets []float64
	// onScroll эмулирует событие scroll после ScrollTo.
	onScroll func(y float64)
}

func (w *fakeWindow) ScrollY() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.y
}

func (w *fakeWindow) ResultsTop() (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.top, w.hasTop
}

func (w *fakeWindow) ScrollTo(y float64) {
	w.mu.Lock()
	// Блок результатов сдвигается вместе с прокруткой.
	w.top -= y - w.y
	w.y = y
	w.targets = append(w.targets, y)
	cb := w.onScroll
	w.mu.Unlock()

	if cb != nil {
		cb(y)
	}
}

func (w *fakeWindow) scrolls() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]float64(nil), w.targets...)
}

// fakeFrames — планировщик кадров, которые запускаются вручную.
type fakeFrames struct {
	mu      sync.Mutex
	pending []*fakeFrame
}

type fakeFrame struct {
	fn       func(time.Time)
	canceled bool
}

func (f *fakeFrames) RequestFrame(fn func(time.Time)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	fr := &fakeFrame{fn: fn}
	f.pending = append(f.pending, fr)

	return func() {
		f.mu.Lock()
		fr.canceled = true
		f.mu.Unlock()
	}
}

// fire запускает накопленные неотменённые кадры; возвращает их число.
func (f *fakeFrames) fire(now time.Time) int {
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()

	n := 0
	for _, fr := range batch {
		f.mu.Lock()
		canceled := fr.canceled
		f.mu.Unlock()
		if canceled {
			continue
		}
		fr.fn(now)
		n++
	}
	return n
}

func (f *fakeFrames) waiting() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, fr := range f.pending {
		if !fr.canceled {
			n++
		}
	}
	return n
}

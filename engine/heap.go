package engine

import (
	"runtime"

	"go.uber.org/zap"
)

// HeapStats reports memory usage. goja allocates on the Go heap, so the
// byte counts are process-wide; the object counts are per engine.
type HeapStats struct {
	HeapAlloc     uint64
	HeapSys       uint64
	HeapInuse     uint64
	MaxYoungSpace int64
	MaxOldSpace   int64
	NumGC         uint32
	Contexts      int
	Proxies       int
	Handles       int
}

// HeapStats returns current memory statistics.
func (e *Engine) HeapStats() HeapStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	e.mu.RLock()
	contexts := len(e.contexts)
	e.mu.RUnlock()

	return HeapStats{
		HeapAlloc:     ms.HeapAlloc,
		HeapSys:       ms.HeapSys,
		HeapInuse:     ms.HeapInuse,
		NumGC:         ms.NumGC,
		MaxYoungSpace: e.cfg.MaxYoungSpace,
		MaxOldSpace:   e.cfg.MaxOldSpace,
		Contexts:      contexts,
		Proxies:       e.proxies.len(),
		Handles:       e.handles.Len(),
	}
}

// DumpHeapStats forces a collection and logs the resulting statistics.
func (e *Engine) DumpHeapStats() HeapStats {
	runtime.GC()
	s := e.HeapStats()
	fields := []zap.Field{
		zap.Uint64("heap_alloc", s.HeapAlloc),
		zap.Uint64("heap_sys", s.HeapSys),
		zap.Uint64("heap_inuse", s.HeapInuse),
		zap.Uint32("num_gc", s.NumGC),
		zap.Int("contexts", s.Contexts),
		zap.Int("proxies", s.Proxies),
		zap.Int("handles", s.Handles),
	}
	if s.MaxOldSpace > 0 {
		fields = append(fields, zap.Int64("max_old_space", s.MaxOldSpace))
		if int64(s.HeapAlloc) > s.MaxOldSpace {
			e.log.Warn("heap above configured old space limit", fields...)
			return s
		}
	}
	if s.MaxYoungSpace > 0 {
		fields = append(fields, zap.Int64("max_young_space", s.MaxYoungSpace))
	}
	e.log.Info("heap stats", fields...)
	return s
}

package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// FieldRecord is one surface rebuild, written to field.csv.
type FieldRecord struct {
	Frame      uint64 `csv:"frame"`
	Balls      int    `csv:"balls"`
	Triangles  int    `csv:"triangles"`
	Vertices   int    `csv:"vertices"`
	Truncated  bool   `csv:"truncated"`
	DurationUS int64  `csv:"duration_us"`
}

// WindowStats holds aggregated surface statistics for a window of rebuilds.
type WindowStats struct {
	WindowEnd  uint64 `csv:"window_end"`
	Bodies     int    `csv:"bodies"`
	Resolution int    `csv:"resolution"`
	Rebuilds   int    `csv:"rebuilds"`
	Truncated  int    `csv:"truncated"`

	TrianglesMean float64 `csv:"triangles_mean"`
	TrianglesP50  float64 `csv:"triangles_p50"`
	TrianglesP90  float64 `csv:"triangles_p90"`

	RebuildMeanUS float64 `csv:"rebuild_mean_us"`
	RebuildStdUS  float64 `csv:"rebuild_std_us"`
	RebuildP10US  float64 `csv:"rebuild_p10_us"`
	RebuildP50US  float64 `csv:"rebuild_p50_us"`
	RebuildP90US  float64 `csv:"rebuild_p90_us"`
}

// FieldWindow accumulates rebuild records between flushes.
type FieldWindow struct {
	records []FieldRecord
}

// NewFieldWindow creates an empty window.
func NewFieldWindow() *FieldWindow {
	return &FieldWindow{}
}

// Record adds a rebuild to the window.
func (w *FieldWindow) Record(r FieldRecord) {
	w.records = append(w.records, r)
}

// Len returns the number of rebuilds since the last flush.
func (w *FieldWindow) Len() int {
	return len(w.records)
}

// Flush summarizes the window and starts a new one.
func (w *FieldWindow) Flush(frame uint64, bodies, resolution int) WindowStats {
	s := WindowStats{
		WindowEnd:  frame,
		Bodies:     bodies,
		Resolution: resolution,
		Rebuilds:   len(w.records),
	}
	if len(w.records) == 0 {
		return s
	}

	tris := make([]float64, len(w.records))
	durs := make([]float64, len(w.records))
	for i, r := range w.records {
		tris[i] = float64(r.Triangles)
		durs[i] = float64(r.DurationUS)
		if r.Truncated {
			s.Truncated++
		}
	}
	s.TrianglesMean, _, _, s.TrianglesP50, s.TrianglesP90 = ComputeStats(tris)
	s.RebuildMeanUS, s.RebuildStdUS, s.RebuildP10US, s.RebuildP50US, s.RebuildP90US = ComputeStats(durs)

	w.records = w.records[:0]
	return s
}

// NewFieldRecord builds a record from rebuild measurements.
func NewFieldRecord(frame uint64, balls, triangles, vertices int, truncated bool, d time.Duration) FieldRecord {
	return FieldRecord{
		Frame:      frame,
		Balls:      balls,
		Triangles:  triangles,
		Vertices:   vertices,
		Truncated:  truncated,
		DurationUS: d.Microseconds(),
	}
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeStats calculates mean, sample standard deviation and percentiles.
// values is sorted in place.
func ComputeStats(values []float64) (mean, std, p10, p50, p90 float64) {
	switch len(values) {
	case 0:
		return 0, 0, 0, 0, 0
	case 1:
		v := values[0]
		return v, 0, v, v, v
	}

	mean, std = stat.MeanStdDev(values, nil)

	sort.Float64s(values)
	p10 = Percentile(values, 0.10)
	p50 = Percentile(values, 0.50)
	p90 = Percentile(values, 0.90)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_end", s.WindowEnd),
		slog.Int("bodies", s.Bodies),
		slog.Int("resolution", s.Resolution),
		slog.Int("rebuilds", s.Rebuilds),
		slog.Int("truncated", s.Truncated),
		slog.Float64("triangles_mean", s.TrianglesMean),
		slog.Float64("rebuild_mean_us", s.RebuildMeanUS),
		slog.Float64("rebuild_p90_us", s.RebuildP90US),
	)
}

// LogStats logs the window stats to logger, or the default logger if nil.
func (s WindowStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("field",
		"window_end", s.WindowEnd,
		"bodies", s.Bodies,
		"resolution", s.Resolution,
		"rebuilds", s.Rebuilds,
		"truncated", s.Truncated,
		"triangles_p50", s.TrianglesP50,
		"rebuild_mean_us", int64(s.RebuildMeanUS),
		"rebuild_p90_us", int64(s.RebuildP90US),
	)
}

package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/isosurface"
)

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir        string
	perfFile   *os.File
	fieldFile  *os.File
	windowFile *os.File

	// Track if headers have been written
	perfHeaderWritten   bool
	fieldHeaderWritten  bool
	windowHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **os.File
	}{
		{"perf.csv", &om.perfFile},
		{"field.csv", &om.fieldFile},
		{"windows.csv", &om.windowFile},
	}
	for _, f := range files {
		file, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = file
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	records := []PerfStatsCSV{stats.ToCSV(windowEnd)}
	if err := writeRecords(records, om.perfFile, &om.perfHeaderWritten); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteField writes a rebuild record to field.csv.
func (om *OutputManager) WriteField(r FieldRecord) error {
	if om == nil {
		return nil
	}
	if err := writeRecords([]FieldRecord{r}, om.fieldFile, &om.fieldHeaderWritten); err != nil {
		return fmt.Errorf("writing field: %w", err)
	}
	return nil
}

// WriteWindow writes a summarized window to windows.csv.
func (om *OutputManager) WriteWindow(s WindowStats) error {
	if om == nil {
		return nil
	}
	if err := writeRecords([]WindowStats{s}, om.windowFile, &om.windowHeaderWritten); err != nil {
		return fmt.Errorf("writing window: %w", err)
	}
	return nil
}

// WriteMesh saves the mesh as a Wavefront OBJ file in the output directory.
func (om *OutputManager) WriteMesh(name string, m *isosurface.Mesh, scale float64) error {
	if om == nil || m == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if err := isosurface.WriteOBJ(f, m, scale); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeRecords marshals records, emitting the header only on the first write.
func writeRecords(records interface{}, w io.Writer, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, w); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, w)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.perfFile, om.fieldFile, om.windowFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

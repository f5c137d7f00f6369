package recorder

import "StockScanner/internal/scan"

// Recorder persists the history of batch runs for later analysis. History is
// write-only from the scanner's point of view.
type Recorder interface {
	RecordRun(job string, report *scan.Report) (int64, error)
	Close() error
}

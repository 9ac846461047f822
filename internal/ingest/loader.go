// Package ingest loads record exports from disk into a store.
package ingest

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/finscore/internal/model"
	"github.com/theirongolddev/finscore/internal/source"
)

// LoadResult holds the output of the full data loading pipeline.
type LoadResult struct {
	Records     model.RecordSet `json:"-"`
	TotalFiles  int             `json:"total_files"`
	ParsedFiles int             `json:"parsed_files"`
	ParseErrors int             `json:"parse_errors"`
	FileErrors  int             `json:"file_errors"`
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers and parses every record file under path.
// It uses a bounded worker pool for parallel parsing.
func Load(path string, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanPath(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	result := &LoadResult{TotalFiles: len(files)}
	if len(files) == 0 {
		return result, nil
	}

	for _, pr := range parseAll(files, func(n int) {
		if progressFn != nil {
			progressFn(n, len(files))
		}
	}) {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors
		result.Records.Append(pr.Records)
	}
	return result, nil
}

// parseAll parses files in parallel and returns results in input order.
// done is called with the running count of finished files.
func parseAll(files []source.DiscoveredFile, done func(int)) []source.ParseResult {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				done(int(processed.Add(1)))
			}
		}()
	}

	wg.Wait()
	return results
}

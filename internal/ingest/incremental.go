package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/finscore/internal/model"
	"github.com/theirongolddev/finscore/internal/source"
	"github.com/theirongolddev/finscore/internal/store"
)

// Target is where ImportChanged writes. *store.Store satisfies it.
type Target interface {
	ReplaceFile(ctx context.Context, userID, path string, records model.RecordSet) error
	TrackedFiles(ctx context.Context, userID string) (map[string]store.FileInfo, error)
	TrackFile(ctx context.Context, userID, path string, fi store.FileInfo) error
	UntrackFile(ctx context.Context, userID, path string) error
}

// ImportResult extends LoadResult with file tracker metadata.
type ImportResult struct {
	LoadResult
	Unchanged int `json:"unchanged"`
	Reparsed  int `json:"reparsed"`
	Imported  int `json:"imported"`
	// Untracked counts tracked files under path that no longer exist.
	Untracked int `json:"untracked"`
}

// ImportChanged discovers files under path, skips those whose mtime and
// size match the tracker, and replaces the user's records from each of the
// rest with what the file holds now. Each file is imported and tracked on
// its own, so a failure leaves the earlier files recorded.
func ImportChanged(ctx context.Context, path, userID string, dst Target, force bool, progressFn ProgressFunc) (*ImportResult, error) {
	files, err := source.ScanPath(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	result := &ImportResult{LoadResult: LoadResult{TotalFiles: len(files)}}

	tracked, err := dst.TrackedFiles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading file tracker: %w", err)
	}
	if err := untrackMissing(ctx, userID, path, files, tracked, dst, result); err != nil {
		return result, err
	}

	var toParse []source.DiscoveredFile
	var infos []store.FileInfo
	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			result.FileErrors++
			continue
		}
		fi := store.FileInfo{MtimeNs: info.ModTime().UnixNano(), SizeBytes: info.Size()}
		if cached, ok := tracked[f.Path]; ok && !force && cached == fi {
			result.Unchanged++
			continue
		}
		toParse = append(toParse, f)
		infos = append(infos, fi)
	}
	result.Reparsed = len(toParse)
	if len(toParse) == 0 {
		return result, nil
	}

	results := parseAll(toParse, func(n int) {
		if progressFn != nil {
			progressFn(n+result.Unchanged, result.TotalFiles)
		}
	})

	for i, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors

		if err := dst.ReplaceFile(ctx, userID, toParse[i].Path, pr.Records); err != nil {
			return result, fmt.Errorf("importing %s: %w", toParse[i].Path, err)
		}
		if err := dst.TrackFile(ctx, userID, toParse[i].Path, infos[i]); err != nil {
			return result, fmt.Errorf("tracking %s: %w", toParse[i].Path, err)
		}
		result.Imported += pr.Records.Len()
		result.Records.Append(pr.Records)
	}
	return result, nil
}

// untrackMissing forgets tracked files under root that the scan no longer
// found. Their records stay in the store.
func untrackMissing(ctx context.Context, userID, root string, files []source.DiscoveredFile, tracked map[string]store.FileInfo, dst Target, result *ImportResult) error {
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
	}
	root = filepath.Clean(root)
	for p := range tracked {
		if seen[p] || (p != root && !strings.HasPrefix(p, root+string(filepath.Separator))) {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			continue
		}
		if err := dst.UntrackFile(ctx, userID, p); err != nil {
			return fmt.Errorf("untracking %s: %w", p, err)
		}
		result.Untracked++
	}
	return nil
}

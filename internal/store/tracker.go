package store

import "context"

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// TrackedFiles returns file_path -> FileInfo for the files userID imported.
func (s *Store) TrackedFiles(ctx context.Context, userID string) (map[string]FileInfo, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT file_path, mtime_ns, size_bytes FROM file_tracker WHERE user_id = ?"), userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// TrackFile records that userID imported path at the given mtime and size.
func (s *Store) TrackFile(ctx context.Context, userID, path string, fi FileInfo) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO file_tracker (user_id, file_path, mtime_ns, size_bytes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, file_path) DO UPDATE SET mtime_ns = excluded.mtime_ns, size_bytes = excluded.size_bytes`),
		userID, path, fi.MtimeNs, fi.SizeBytes)
	return err
}

// UntrackFile removes a file tracking entry.
func (s *Store) UntrackFile(ctx context.Context, userID, path string) error {
	_, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM file_tracker WHERE user_id = ? AND file_path = ?"), userID, path)
	return err
}

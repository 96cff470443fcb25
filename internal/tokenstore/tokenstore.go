// Package tokenstore persists the OAuth2 token set to a user-scoped JSON
// file. It is the sole writer of the on-disk representation; the lifecycle
// manager in spauth/ holds the in-memory instance. A missing or corrupt
// file is "not authenticated", never a fatal error — that keeps startup
// working on first run and after manual file edits.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the token directory.
const DirPerms = 0o700

// TokenSet is the on-disk and in-memory token representation.
// AccessToken and ExpiresAt are always set together; RefreshToken may be
// empty when the provider did not issue one.
type TokenSet struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType,omitempty"`
	SavedAt      time.Time `json:"savedAt"`
}

// Store reads and writes the token file at a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a Store backed by the given path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, logger: logger}
}

// Path returns the token file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted token set. Returns nil if the file is absent,
// unreadable, or unparsable — failures are logged, not propagated, because
// the caller's remediation is identical in every case: re-authenticate.
func (s *Store) Load() *TokenSet {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		s.logger.Warn("reading token file failed, treating as unauthenticated",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return nil
	}

	var ts TokenSet
	if err := json.Unmarshal(data, &ts); err != nil {
		s.logger.Warn("token file is corrupt, treating as unauthenticated",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return nil
	}

	s.logger.Debug("loaded tokens from disk",
		slog.String("path", s.path),
		slog.Time("expires_at", ts.ExpiresAt),
	)

	return &ts
}

// Save writes the token set atomically (write-to-temp + rename) with 0600
// permissions and a fresh SavedAt stamp. Never logs token values.
func (s *Store) Save(ts *TokenSet) error {
	stamped := *ts
	stamped.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(&stamped, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenstore: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenstore: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: writing: %w", err)
	}

	// Flush to stable storage before rename so a crash between close and
	// rename cannot leave an empty or partial file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("tokenstore: renaming: %w", err)
	}

	success = true

	s.logger.Debug("saved tokens to disk",
		slog.String("path", s.path),
		slog.Time("expires_at", stamped.ExpiresAt),
	)

	return nil
}

// Clear deletes the token file. A missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("tokenstore: removing %s: %w", s.path, err)
	}

	s.logger.Info("cleared token file", slog.String("path", s.path))

	return nil
}

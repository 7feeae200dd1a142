package provider

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// fileTokenSource persists the tokens of base to path so short-lived CLI runs
// reuse a still-valid token instead of hitting the token endpoint each time.
type fileTokenSource struct {
	path string
	base oauth2.TokenSource
	log  zerolog.Logger

	mu sync.Mutex
}

// cachedTokenSource wraps base with an on-disk cache at path.
func cachedTokenSource(path string, base oauth2.TokenSource, log zerolog.Logger) oauth2.TokenSource {
	fts := &fileTokenSource{path: path, base: base, log: log}
	tok, err := fts.load()
	if err != nil {
		// Corrupt cache: warn and fetch a fresh token.
		log.Warn().Err(err).Msg("ignoring token cache")
		tok = nil
	}
	return oauth2.ReuseTokenSource(tok, fts)
}

// Token is called by ReuseTokenSource only when its token is missing or
// expired.
func (s *fileTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok, err := s.load(); err == nil && tok.Valid() {
		return tok, nil
	}
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if err := s.save(tok); err != nil {
		s.log.Warn().Err(err).Msg("could not save token")
	}
	return tok, nil
}

// load reads the cached token. A missing file yields (nil, nil).
func (s *fileTokenSource) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file %s: %w", s.path, err)
	}
	return &tok, nil
}

// save writes the token atomically with owner-only permissions.
func (s *fileTokenSource) save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

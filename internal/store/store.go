// Package store persists the user's desired block list as a JSON file.
// The file is user-editable; every reconciliation pass reads it fresh.
package store

import (
	stdjson "encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"

	"github.com/focusshield/blockd/internal/domain"
)

// DefaultDomains is the block list seeded when no config file exists.
var DefaultDomains = []string{
	"www.tiktok.com",
	"tiktok.com",
	"www.youtube.com",
	"youtube.com",
	"m.youtube.com",
	"www.instagram.com",
	"instagram.com",
	"www.facebook.com",
	"facebook.com",
	"www.twitter.com",
	"twitter.com",
	"x.com",
	"www.x.com",
	"www.reddit.com",
	"reddit.com",
}

// DefaultApps is the app block list seeded when no config file exists.
var DefaultApps = []string{
	"TikTok.exe",
	"Instagram.exe",
}

// specFile is the on-disk JSON shape.
type specFile struct {
	BlockedSites []string `koanf:"blocked_sites" json:"blocked_sites"`
	BlockedURLs  []string `koanf:"blocked_urls" json:"blocked_urls"`
	BlockedApps  []string `koanf:"blocked_apps" json:"blocked_apps"`
}

// FileStore implements domain.SpecStore over a single JSON file.
type FileStore struct {
	path string
}

// New creates a store at the given path.
func New(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the config file location (for status output).
func (s *FileStore) Path() string {
	return s.path
}

// Load reads a fresh BlockSpec. A missing file is seeded with the
// default block list first, so the defaults are what gets enforced on
// a fresh install.
func (s *FileStore) Load() (domain.BlockSpec, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		seed := domain.BlockSpec{
			Domains:      append([]string(nil), DefaultDomains...),
			ProcessNames: append([]string(nil), DefaultApps...),
		}
		if err := s.Save(seed); err != nil {
			return domain.BlockSpec{}, fmt.Errorf("seeding default block list: %w", err)
		}
		return seed, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(s.path), kjson.Parser()); err != nil {
		return domain.BlockSpec{}, fmt.Errorf("loading block list: %w", err)
	}

	var f specFile
	if err := k.Unmarshal("", &f); err != nil {
		return domain.BlockSpec{}, fmt.Errorf("unmarshalling block list: %w", err)
	}

	return domain.BlockSpec{
		Domains:      f.BlockedSites,
		URLPatterns:  f.BlockedURLs,
		ProcessNames: f.BlockedApps,
	}, nil
}

// Save persists the spec, creating the parent directory if needed.
// Write-temp-then-rename so a concurrent Load never sees a torn file.
func (s *FileStore) Save(spec domain.BlockSpec) error {
	f := specFile{
		BlockedSites: emptyIfNil(spec.Domains),
		BlockedURLs:  emptyIfNil(spec.URLPatterns),
		BlockedApps:  emptyIfNil(spec.ProcessNames),
	}

	data, err := stdjson.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// AddDomain appends domain (lowercased) and its www. pair when absent.
// Returns true if the list changed.
func (s *FileStore) AddDomain(d string) (bool, error) {
	spec, err := s.Load()
	if err != nil {
		return false, err
	}

	d = strings.ToLower(d)
	changed := false
	if !contains(spec.Domains, d) {
		spec.Domains = append(spec.Domains, d)
		changed = true
	}
	if !strings.HasPrefix(d, "www.") {
		www := "www." + d
		if !contains(spec.Domains, www) {
			spec.Domains = append(spec.Domains, www)
			changed = true
		}
	}

	if !changed {
		return false, nil
	}
	return true, s.Save(spec)
}

// RemoveDomain drops domain and its www. counterpart.
// Returns true if the list changed.
func (s *FileStore) RemoveDomain(d string) (bool, error) {
	spec, err := s.Load()
	if err != nil {
		return false, err
	}

	d = strings.ToLower(d)
	pair := "www." + d
	if strings.HasPrefix(d, "www.") {
		pair = strings.TrimPrefix(d, "www.")
	}

	kept := spec.Domains[:0]
	changed := false
	for _, existing := range spec.Domains {
		if existing == d || existing == pair {
			changed = true
			continue
		}
		kept = append(kept, existing)
	}
	spec.Domains = kept

	if !changed {
		return false, nil
	}
	return true, s.Save(spec)
}

// AddURL appends a URL pattern when absent.
func (s *FileStore) AddURL(pattern string) (bool, error) {
	spec, err := s.Load()
	if err != nil {
		return false, err
	}
	if contains(spec.URLPatterns, pattern) {
		return false, nil
	}
	spec.URLPatterns = append(spec.URLPatterns, pattern)
	return true, s.Save(spec)
}

// RemoveURL drops a URL pattern.
func (s *FileStore) RemoveURL(pattern string) (bool, error) {
	spec, err := s.Load()
	if err != nil {
		return false, err
	}
	kept := spec.URLPatterns[:0]
	changed := false
	for _, existing := range spec.URLPatterns {
		if existing == pattern {
			changed = true
			continue
		}
		kept = append(kept, existing)
	}
	spec.URLPatterns = kept
	if !changed {
		return false, nil
	}
	return true, s.Save(spec)
}

// AddApp appends a process name when absent (case-insensitive check,
// original casing preserved).
func (s *FileStore) AddApp(name string) (bool, error) {
	spec, err := s.Load()
	if err != nil {
		return false, err
	}
	if spec.HasProcess(name) {
		return false, nil
	}
	spec.ProcessNames = append(spec.ProcessNames, name)
	return true, s.Save(spec)
}

// RemoveApp drops a process name (case-insensitive).
func (s *FileStore) RemoveApp(name string) (bool, error) {
	spec, err := s.Load()
	if err != nil {
		return false, err
	}
	kept := spec.ProcessNames[:0]
	changed := false
	for _, existing := range spec.ProcessNames {
		if strings.EqualFold(existing, name) {
			changed = true
			continue
		}
		kept = append(kept, existing)
	}
	spec.ProcessNames = kept
	if !changed {
		return false, nil
	}
	return true, s.Save(spec)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// Ensure FileStore implements domain.SpecStore.
var _ domain.SpecStore = (*FileStore)(nil)

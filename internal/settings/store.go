// Package settings persists the server's key/value configuration (saved
// path lists, webhook URL, git passphrase) to a local YAML file.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Chailang/appPack/internal/secrets"
)

// ErrUnknownPathKind is returned for AddPath kinds other than project/output.
var ErrUnknownPathKind = errors.New("unknown path kind")

// Settings is the persisted configuration document. GitPassphrase holds
// age ciphertext when the secrets service can encrypt, plaintext otherwise.
type Settings struct {
	ProjectBasePath     string   `yaml:"project_base_path" json:"projectBasePath"`
	OutputBasePath      string   `yaml:"output_base_path" json:"outputBasePath"`
	ProjectPaths        []string `yaml:"project_paths" json:"projectPaths"`
	OutputPaths         []string `yaml:"output_paths" json:"outputPaths"`
	WebhookURL          string   `yaml:"webhook_url" json:"webhookURL"`
	DefaultEnv          string   `yaml:"default_env" json:"defaultEnv"`
	GitPassphrase       string   `yaml:"git_passphrase" json:"-"`
	PassphraseEncrypted bool     `yaml:"git_passphrase_encrypted" json:"-"`
}

// clone returns a deep copy so callers never alias the store's state.
func (s Settings) clone() Settings {
	out := s
	out.ProjectPaths = append([]string(nil), s.ProjectPaths...)
	out.OutputPaths = append([]string(nil), s.OutputPaths...)
	return out
}

// Store is a concurrent-safe, file-backed settings store.
type Store struct {
	mu      sync.RWMutex
	path    string
	secrets *secrets.Service
	logger  *slog.Logger
	current Settings
}

// NewStore loads the settings file at path, creating an empty document if
// the file does not exist yet.
func NewStore(path string, sec *secrets.Service, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st := &Store{path: path, secrets: sec, logger: logger}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &st.current); err != nil {
			return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// First run; the file is created on the first save.
	default:
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	if sec != nil && !sec.CanEncrypt() {
		logger.Warn("secrets encryption not configured, git passphrase will be stored in plaintext")
	}

	return st, nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Update replaces the editable fields and persists. The stored passphrase is
// kept unless the update carries a new one.
func (s *Store) Update(in Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	passphrase := s.current.GitPassphrase
	encrypted := s.current.PassphraseEncrypted

	s.current = in.clone()
	s.current.GitPassphrase = passphrase
	s.current.PassphraseEncrypted = encrypted

	if err := s.saveLocked(); err != nil {
		return Settings{}, err
	}
	return s.current.clone(), nil
}

// AddPath appends a path to the project or output list, deduplicating.
func (s *Store) AddPath(kind, path string) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case "project":
		s.current.ProjectPaths = appendUnique(s.current.ProjectPaths, path)
	case "output":
		s.current.OutputPaths = appendUnique(s.current.OutputPaths, path)
	default:
		return Settings{}, fmt.Errorf("%w: %q", ErrUnknownPathKind, kind)
	}

	if err := s.saveLocked(); err != nil {
		return Settings{}, err
	}
	return s.current.clone(), nil
}

// SetPassphrase stores the git credential passphrase, encrypting it at rest
// when the secrets service is configured for encryption.
func (s *Store) SetPassphrase(plaintext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if plaintext == "" {
		s.current.GitPassphrase = ""
		s.current.PassphraseEncrypted = false
		return s.saveLocked()
	}

	if s.secrets != nil && s.secrets.CanEncrypt() {
		ciphertext, err := s.secrets.EncryptString(plaintext)
		if err != nil {
			return fmt.Errorf("encrypting passphrase: %w", err)
		}
		s.current.GitPassphrase = ciphertext
		s.current.PassphraseEncrypted = true
	} else {
		s.current.GitPassphrase = plaintext
		s.current.PassphraseEncrypted = false
	}
	return s.saveLocked()
}

// Passphrase returns the stored passphrase in plaintext, or "" when none is
// stored or it cannot be decrypted on this host.
func (s *Store) Passphrase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current.GitPassphrase == "" {
		return ""
	}
	if !s.current.PassphraseEncrypted {
		return s.current.GitPassphrase
	}
	if s.secrets == nil || !s.secrets.CanDecrypt() {
		s.logger.Warn("stored passphrase is encrypted but no decryption key is configured")
		return ""
	}
	plaintext, err := s.secrets.DecryptString(s.current.GitPassphrase)
	if err != nil {
		s.logger.Warn("decrypting stored passphrase failed", "error", err)
		return ""
	}
	return plaintext
}

// WebhookURL returns the configured notification webhook, if any.
func (s *Store) WebhookURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.WebhookURL
}

// saveLocked writes the settings atomically. Callers hold s.mu.
func (s *Store) saveLocked() error {
	data, err := yaml.Marshal(&s.current)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("restricting settings permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing settings file: %w", err)
	}
	return nil
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

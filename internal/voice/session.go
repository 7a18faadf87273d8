package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Session holds the persisted agent→voice assignments for the current
// session, shared by every invocation on this host.
type Session struct {
	Agents     map[string]string `json:"agents"`
	UsedVoices []string          `json:"usedVoices"`
}

// NewSession returns an empty session state.
func NewSession() *Session {
	return &Session{
		Agents:     make(map[string]string),
		UsedVoices: []string{},
	}
}

// Store persists session state between process invocations.
type Store interface {
	Load() *Session
	Save(*Session) error
	Reset() error
}

// DefaultSessionPath is the well-known session file location under the
// host's temp directory.
func DefaultSessionPath() string {
	return filepath.Join(os.TempDir(), "trace_voice_session.json")
}

// FileStore keeps the session in a JSON file.
//
// Load-mutate-save is not transactional across processes: two agents
// resolving for the first time at the same instant may both read the same
// availability and one update can be lost. The assignment is still always a
// valid pool voice, so the race is accepted rather than guarded.
type FileStore struct {
	Path string
}

// NewFileStore creates a store at the given path, or at the default
// session path when path is empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultSessionPath()
	}
	return &FileStore{Path: path}
}

// Load reads the session file. An absent, unreadable or malformed file
// yields a fresh empty session; corruption self-heals on the next Save.
func (s *FileStore) Load() *Session {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug("Could not read session file, starting fresh", "path", s.Path, "err", err)
		}
		return NewSession()
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		log.Debug("Session file is malformed, starting fresh", "path", s.Path, "err", err)
		return NewSession()
	}
	if session.Agents == nil {
		session.Agents = make(map[string]string)
	}
	if session.UsedVoices == nil {
		session.UsedVoices = []string{}
	}
	return &session
}

// Save writes the session atomically: the state goes to a temp file in the
// same directory first, then replaces the session file by rename, so a
// concurrent Load never observes a partial write.
func (s *FileStore) Save(session *Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".trace_voice_session-*.json")
	if err != nil {
		return fmt.Errorf("unable to create session temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to close session temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to replace session file: %w", err)
	}
	return nil
}

// Reset deletes the persisted session. Agents pick new voices on next use.
func (s *FileStore) Reset() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to remove session file: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	session *Session
}

// Load returns the stored session, or a fresh one if nothing was saved.
func (m *MemoryStore) Load() *Session {
	if m.session == nil {
		return NewSession()
	}
	return m.session
}

// Save keeps the session in memory.
func (m *MemoryStore) Save(session *Session) error {
	m.session = session
	return nil
}

// Reset drops the stored session.
func (m *MemoryStore) Reset() error {
	m.session = nil
	return nil
}

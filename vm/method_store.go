package vm

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"
)

var storeLog = commonlog.GetLogger("garnet.store")

// ---------------------------------------------------------------------------
// MethodStore: content-addressed persistence for compiled methods
// ---------------------------------------------------------------------------

// MethodStore keeps compiled methods in SQLite keyed by the SHA-256 of
// their canonical encoding. It backs image distribution and lets a
// loader fetch methods by hash instead of recompiling.
type MethodStore struct {
	db   *sql.DB
	syms *SymbolTable
	mu   sync.Mutex
}

// OpenMethodStore opens (creating if needed) the store at path.
func OpenMethodStore(path string, syms *SymbolTable) (*MethodStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening method store: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS methods (
		hash TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		serial INTEGER NOT NULL,
		body BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating methods table: %w", err)
	}

	storeLog.Debugf("method store open at %s", path)
	return &MethodStore{db: db, syms: syms}, nil
}

// Close closes the underlying database.
func (s *MethodStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put persists cm and returns its content hash. Re-putting the same
// content is idempotent.
func (s *MethodStore) Put(cm *CompiledMethod) ([32]byte, error) {
	wm, err := methodToWire(cm, s.syms)
	if err != nil {
		return [32]byte{}, fmt.Errorf("storing method %s: %w", cm.Name(), err)
	}
	body, err := cborEncMode.Marshal(&wm)
	if err != nil {
		return [32]byte{}, fmt.Errorf("storing method %s: %w", cm.Name(), err)
	}
	hash, err := ContentHash(cm, s.syms)
	if err != nil {
		return [32]byte{}, fmt.Errorf("storing method %s: %w", cm.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO methods (hash, name, serial, body) VALUES (?, ?, ?, ?)",
		hex.EncodeToString(hash[:]), cm.Name(), cm.Serial, body,
	)
	if err != nil {
		return [32]byte{}, fmt.Errorf("storing method %s: %w", cm.Name(), err)
	}
	return hash, nil
}

// Get fetches the method with the given content hash. The second
// result reports presence; an unknown hash is not an error.
func (s *MethodStore) Get(hash [32]byte) (*CompiledMethod, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body []byte
	err := s.db.QueryRow(
		"SELECT body FROM methods WHERE hash = ?",
		hex.EncodeToString(hash[:]),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading method: %w", err)
	}

	var wm wireMethod
	if err := cbor.Unmarshal(body, &wm); err != nil {
		return nil, false, fmt.Errorf("loading method: %w", err)
	}
	cm, err := methodFromWire(wm, s.syms)
	if err != nil {
		return nil, false, fmt.Errorf("loading method: %w", err)
	}
	return cm, true, nil
}

// Count returns the number of stored methods.
func (s *MethodStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM methods").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting methods: %w", err)
	}
	return n, nil
}

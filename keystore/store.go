// Package keystore persists sealed public keys and ciphertext matrices in a
// Badger database, and secret keys in standalone files.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"medhe/bfv"
	"medhe/codec"
	"medhe/pkg/logger"
)

const (
	publicKeyPrefix = "pk/"
	matrixPrefix    = "ct/"
)

// ErrNotFound is returned when a key or a matrix is not in the store.
var ErrNotFound = errors.New("not found")

// Config configures the Badger database of a Store.
type Config struct {
	Dir        string
	InMemory   bool
	SyncWrites bool
	Logger     *log.Logger
}

// Store is a Badger-backed store of sealed public keys and ciphertext matrices.
// It is safe for concurrent use.
type Store struct {
	db  *badger.DB
	log *log.Logger
}

// MatrixRecord is a stored ciphertext matrix with the fingerprint of the public
// key it was encrypted under and the parameters needed to decrypt it.
type MatrixRecord struct {
	KeyID  string                  `json:"key_id"`
	Params bfv.ParametersLiteral   `json:"params"`
	Matrix *codec.CiphertextMatrix `json:"-"`
	Data   []byte                  `json:"matrix"`
}

// Open opens, or creates, the store described by cfg.
func Open(cfg Config) (*Store, error) {

	l := logger.OrDiscard(cfg.Logger)

	opts := badger.DefaultOptions(cfg.Dir).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{l})

	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cannot Open: %w", err)
	}

	return &Store{db: db, log: l}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutPublicKey stores the sealed public key under its fingerprint and returns it.
func (s *Store) PutPublicKey(sealed *SealedPublicKey) (fingerprint string, err error) {

	if fingerprint, err = sealed.Fingerprint(); err != nil {
		return "", fmt.Errorf("cannot PutPublicKey: %w", err)
	}

	data, err := json.Marshal(sealed)
	if err != nil {
		return "", fmt.Errorf("cannot PutPublicKey: %w", err)
	}

	if err = s.put(publicKeyPrefix+fingerprint, data); err != nil {
		return "", fmt.Errorf("cannot PutPublicKey: %w", err)
	}

	s.log.Printf("stored public key %s", fingerprint)
	return fingerprint, nil
}

// GetPublicKey returns the sealed public key with the given fingerprint. The
// signature is not checked: see OpenPublicKey.
func (s *Store) GetPublicKey(fingerprint string) (*SealedPublicKey, error) {

	data, err := s.get(publicKeyPrefix + fingerprint)
	if err != nil {
		return nil, fmt.Errorf("cannot GetPublicKey: public key %s: %w", fingerprint, err)
	}

	sealed := new(SealedPublicKey)
	if err = json.Unmarshal(data, sealed); err != nil {
		return nil, fmt.Errorf("cannot GetPublicKey: public key %s: %w", fingerprint, err)
	}
	return sealed, nil
}

// ListPublicKeys returns the fingerprints of the stored public keys, sorted.
func (s *Store) ListPublicKeys() ([]string, error) {
	return s.list(publicKeyPrefix)
}

// PutMatrix stores the ciphertext matrix under name, replacing any previous one.
func (s *Store) PutMatrix(name, keyID string, params bfv.Parameters, cm *codec.CiphertextMatrix) error {

	if name == "" {
		return fmt.Errorf("cannot PutMatrix: empty name")
	}
	if err := cm.Validate(params); err != nil {
		return fmt.Errorf("cannot PutMatrix: %w", err)
	}

	matrix, err := cm.MarshalBinary()
	if err != nil {
		return fmt.Errorf("cannot PutMatrix: %w", err)
	}

	data, err := json.Marshal(MatrixRecord{KeyID: keyID, Params: params.ParametersLiteral(), Data: matrix})
	if err != nil {
		return fmt.Errorf("cannot PutMatrix: %w", err)
	}

	if err = s.put(matrixPrefix+name, data); err != nil {
		return fmt.Errorf("cannot PutMatrix: %w", err)
	}

	s.log.Printf("stored matrix %q (%dx%d, key %s)", name, cm.Rows, cm.Cols, keyID)
	return nil
}

// GetMatrix returns the matrix stored under name, decoded and checked against
// its parameters.
func (s *Store) GetMatrix(name string) (*MatrixRecord, error) {

	data, err := s.get(matrixPrefix + name)
	if err != nil {
		return nil, fmt.Errorf("cannot GetMatrix: matrix %q: %w", name, err)
	}

	rec := new(MatrixRecord)
	if err = json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("cannot GetMatrix: matrix %q: %w", name, err)
	}

	params, err := bfv.NewParametersFromLiteral(rec.Params)
	if err != nil {
		return nil, fmt.Errorf("cannot GetMatrix: matrix %q: %w", name, err)
	}

	rec.Matrix = new(codec.CiphertextMatrix)
	if err = rec.Matrix.UnmarshalBinary(rec.Data); err != nil {
		return nil, fmt.Errorf("cannot GetMatrix: matrix %q: %w", name, err)
	}
	if err = rec.Matrix.Validate(params); err != nil {
		return nil, fmt.Errorf("cannot GetMatrix: matrix %q: %w", name, err)
	}
	rec.Data = nil

	return rec, nil
}

// DeleteMatrix removes the matrix stored under name.
func (s *Store) DeleteMatrix(name string) error {
	key := []byte(matrixPrefix + name)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("cannot DeleteMatrix: matrix %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("cannot DeleteMatrix: %w", err)
	}
	return nil
}

// ListMatrices returns the names of the stored matrices, sorted.
func (s *Store) ListMatrices() ([]string, error) {
	return s.list(matrixPrefix)
}

func (s *Store) put(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (s *Store) get(key string) (value []byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *Store) list(prefix string) (names []string, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", prefix, err)
	}
	sort.Strings(names)
	return names, nil
}

// badgerLogger routes the messages of Badger to a standard logger. Debug
// messages are dropped.
type badgerLogger struct {
	*log.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.Printf("badger: ERROR: "+strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Printf("badger: WARNING: "+strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.Printf("badger: "+strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Debugf(string, ...interface{}) {}

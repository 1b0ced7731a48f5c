package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const fileFormatVersion = 1

// SealConfig tunes the argon2id key derivation used to seal values at rest.
type SealConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
}

// DefaultSealConfig returns the derivation parameters used when none are given.
func DefaultSealConfig() SealConfig {
	return SealConfig{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
	}
}

func (c SealConfig) validate() error {
	if c.Memory < 8*1024 {
		return errors.New("seal Memory must be >= 8192 KB")
	}
	if c.Time < 1 {
		return errors.New("seal Time must be >= 1")
	}
	if c.Parallelism < 1 {
		return errors.New("seal Parallelism must be >= 1")
	}
	if c.SaltLength < 16 {
		return errors.New("seal SaltLength must be >= 16")
	}
	return nil
}

type fileDocument struct {
	Version int               `json:"version"`
	Sealed  bool              `json:"sealed,omitempty"`
	Salt    string            `json:"salt,omitempty"`
	Values  map[string]string `json:"values"`
}

// File persists values as a JSON document. Every write replaces the file through a
// temporary file and rename, so a crash never leaves a truncated document behind.
type File struct {
	path       string
	passphrase []byte
	seal       SealConfig
	logger     *slog.Logger

	mu       sync.Mutex
	aead     cipher.AEAD
	aeadSalt string
}

// FileOption customizes a File storage.
type FileOption func(*File)

// WithPassphrase seals every value with a key derived from passphrase.
func WithPassphrase(passphrase string) FileOption {
	return func(f *File) {
		if passphrase != "" {
			f.passphrase = []byte(passphrase)
		}
	}
}

// WithSealConfig overrides the key derivation parameters.
func WithSealConfig(cfg SealConfig) FileOption {
	return func(f *File) {
		f.seal = cfg
	}
}

// WithFileLogger sets the logger used to report unreadable documents.
func WithFileLogger(l *slog.Logger) FileOption {
	return func(f *File) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFile creates a File storage at path. The file and its directory are created on
// first write.
func NewFile(path string, opts ...FileOption) (*File, error) {
	if path == "" {
		return nil, errors.New("storage file path is empty")
	}
	f := &File{
		path:   path,
		seal:   DefaultSealConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.passphrase != nil {
		if err := f.seal.validate(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Path returns the document location.
func (f *File) Path() string {
	return f.path
}

// Get implements Storage. An unreadable document or a value that fails to unseal is
// reported as absent.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return "", false, err
	}
	raw, ok := doc.Values[key]
	if !ok {
		return "", false, nil
	}
	if !doc.Sealed {
		return raw, true, nil
	}
	v, err := f.open(doc, raw)
	if err != nil {
		f.logger.Warn("storage: sealed value could not be opened", slog.String("key", key), slog.Any("err", err))
		return "", false, nil
	}
	return v, true, nil
}

// Set implements Storage.
func (f *File) Set(ctx context.Context, key, value string) error {
	return f.SetMany(ctx, map[string]string{key: value})
}

// SetMany implements BatchSetter with a single file replacement.
func (f *File) SetMany(_ context.Context, values map[string]string) error {
	for k := range values {
		if k == "" {
			return ErrEmptyKey
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	for k, v := range values {
		if doc.Sealed {
			sealed, err := f.sealValue(doc, v)
			if err != nil {
				return err
			}
			v = sealed
		}
		doc.Values[k] = v
	}
	return f.write(doc)
}

// Delete implements Storage.
func (f *File) Delete(_ context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := doc.Values[k]; ok {
			delete(doc.Values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.write(doc)
}

func (f *File) emptyDocument() (*fileDocument, error) {
	doc := &fileDocument{Version: fileFormatVersion, Values: map[string]string{}}
	if f.passphrase != nil {
		salt := make([]byte, f.seal.SaltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, err
		}
		doc.Sealed = true
		doc.Salt = base64.StdEncoding.EncodeToString(salt)
	}
	return doc, nil
}

func (f *File) load() (*fileDocument, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f.emptyDocument()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Version != fileFormatVersion {
		f.logger.Warn("storage: discarding unreadable document", slog.String("path", f.path))
		return f.emptyDocument()
	}
	if doc.Values == nil {
		doc.Values = map[string]string{}
	}
	if doc.Sealed != (f.passphrase != nil) {
		// sealing mode changed: previous values cannot be interpreted
		f.logger.Warn("storage: sealing mode changed, starting empty", slog.String("path", f.path))
		return f.emptyDocument()
	}
	return &doc, nil
}

func (f *File) write(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".mkclient-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (f *File) cipherFor(doc *fileDocument) (cipher.AEAD, error) {
	if f.aead != nil && f.aeadSalt == doc.Salt {
		return f.aead, nil
	}
	salt, err := base64.StdEncoding.DecodeString(doc.Salt)
	if err != nil {
		return nil, errors.New("invalid seal salt encoding")
	}
	key := argon2.IDKey(f.passphrase, salt, f.seal.Time, f.seal.Memory, f.seal.Parallelism, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	f.aead = aead
	f.aeadSalt = doc.Salt
	return aead, nil
}

func (f *File) sealValue(doc *fileDocument, value string) (string, error) {
	aead, err := f.cipherFor(doc)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (f *File) open(doc *fileDocument, sealed string) (string, error) {
	aead, err := f.cipherFor(doc)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

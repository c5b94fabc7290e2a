package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	// GenesisHash is the initial hash for the first event in the chain.
	GenesisHash = "sha256:genesis"

	// HashPrefix is prepended to all hash values.
	HashPrefix = "sha256:"
)

// FileWriter writes audit events to a JSONL file with hash chaining.
type FileWriter struct {
	mu       sync.Mutex
	file     *os.File
	lastHash string
	path     string
}

var _ Writer = (*FileWriter)(nil)

// NewFileWriter opens path for appending. An existing log is continued
// from its last hash.
func NewFileWriter(path string) (*FileWriter, error) {
	lastHash := GenesisHash
	if existing, err := os.ReadFile(path); err == nil && len(existing) > 0 {
		hash, err := readLastHash(existing)
		if err != nil {
			return nil, fmt.Errorf("failed to read last hash from existing log: %w", err)
		}
		lastHash = hash
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &FileWriter{
		file:     file,
		lastHash: lastHash,
		path:     path,
	}, nil
}

// readLastHash returns the hash of the last event in a JSONL log.
func readLastHash(data []byte) (string, error) {
	var lastLine string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lastLine = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if lastLine == "" {
		return GenesisHash, nil
	}

	var event struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal([]byte(lastLine), &event); err != nil {
		return "", fmt.Errorf("failed to parse last event: %w", err)
	}
	if event.Hash == "" {
		return "", fmt.Errorf("last event has no hash")
	}
	return event.Hash, nil
}

// Write logs an audit event with hash chaining and syncs the file.
func (w *FileWriter) Write(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("audit log %s is closed", w.path)
	}
	if err := chain(event, w.lastHash); err != nil {
		return err
	}

	eventJSON, err := event.JSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if _, err := w.file.Write(append(eventJSON, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}

	w.lastHash = event.Hash
	return nil
}

// Close closes the audit log file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// LastHash returns the hash of the last written event.
func (w *FileWriter) LastHash() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastHash
}

// Path returns the file path of the audit log.
func (w *FileWriter) Path() string {
	return w.path
}

// calculateHash computes SHA256(data || prevHash).
func calculateHash(data []byte, prevHash string) string {
	h := sha256.New()
	_, _ = h.Write(data)
	_, _ = h.Write([]byte(prevHash))
	return HashPrefix + hex.EncodeToString(h.Sum(nil))
}

// VerifyChain verifies the hash chain of an audit log file and returns the
// number of valid events.
func VerifyChain(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read audit log: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	expectedPrev := GenesisHash
	lineNum, valid := 0, 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return valid, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		if err := verifyEvent(&event, expectedPrev); err != nil {
			return valid, fmt.Errorf("line %d: %w", lineNum, err)
		}
		expectedPrev = event.Hash
		valid++
	}

	if err := scanner.Err(); err != nil {
		return valid, fmt.Errorf("scan error: %w", err)
	}
	return valid, nil
}

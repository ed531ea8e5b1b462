package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"swapguard/internal/model"
)

// JsonlSink appends change events and decision records to a JSONL audit
// file. Each line carries a kind discriminator so the two record types can
// share one file.
type JsonlSink struct {
	path string
	mu   sync.Mutex
}

func NewJsonlSink(path string) *JsonlSink {
	return &JsonlSink{path: path}
}

type jsonlLine struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// PutChangeEvent appends one change event line.
func (s *JsonlSink) PutChangeEvent(ev model.ChangeEvent) error {
	return s.append(jsonlLine{Kind: "change", Payload: ev})
}

// PutDecision appends one evaluation outcome line.
func (s *JsonlSink) PutDecision(rec model.DecisionRecord) error {
	return s.append(jsonlLine{Kind: "decision", Payload: rec})
}

func (s *JsonlSink) append(line jsonlLine) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal audit line: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("write audit line: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush audit file: %w", err)
	}

	return nil
}

package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"swapguard/internal/model"
)

func TestJsonlSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.jsonl")
	sink := NewJsonlSink(path)

	if err := sink.PutChangeEvent(model.ChangeEvent{PoolID: "0xabc", Field: "buy_fee_ppm", Old: "0", New: "3000"}); err != nil {
		t.Fatalf("PutChangeEvent failed: %v", err)
	}
	if err := sink.PutDecision(model.DecisionRecord{PoolID: "0xabc", Allowed: true, FeePPM: 3000}); err != nil {
		t.Fatalf("PutDecision failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer file.Close()

	var kinds []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		kinds = append(kinds, line.Kind)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan audit file: %v", err)
	}

	if len(kinds) != 2 || kinds[0] != "change" || kinds[1] != "decision" {
		t.Fatalf("kinds = %v, want [change decision]", kinds)
	}
}

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRingBufferBasicWrite(t *testing.T) {
	rb := NewRingBuffer(64)

	n, err := rb.Write([]byte("scan_started"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len("scan_started") {
		t.Errorf("expected n=%d, got %d", len("scan_started"), n)
	}

	if got := rb.Bytes(); string(got) != "scan_started" {
		t.Errorf("expected 'scan_started', got %q", string(got))
	}
}

func TestRingBufferWrap(t *testing.T) {
	rb := NewRingBuffer(10)

	_, _ = rb.Write([]byte("abcdefghij")) // fills exactly
	_, _ = rb.Write([]byte("12345"))      // wraps

	// Last 10 bytes in chronological order.
	if got := rb.Bytes(); string(got) != "fghij12345" {
		t.Errorf("expected 'fghij12345', got %q", string(got))
	}
}

func TestRingBufferLargerThanCapacity(t *testing.T) {
	rb := NewRingBuffer(5)

	_, _ = rb.Write([]byte("0123456789"))

	if got := rb.Bytes(); string(got) != "56789" {
		t.Errorf("expected '56789', got %q", string(got))
	}
}

func TestRingBufferMultipleSmallWrites(t *testing.T) {
	rb := NewRingBuffer(8)

	_, _ = rb.Write([]byte("AA"))
	_, _ = rb.Write([]byte("BB"))
	_, _ = rb.Write([]byte("CC"))
	_, _ = rb.Write([]byte("DD"))
	if got := rb.Bytes(); string(got) != "AABBCCDD" {
		t.Errorf("expected 'AABBCCDD', got %q", string(got))
	}

	// One more write overwrites the oldest data.
	_, _ = rb.Write([]byte("EE"))
	if got := rb.Bytes(); string(got) != "BBCCDDEE" {
		t.Errorf("expected 'BBCCDDEE', got %q", string(got))
	}
}

func TestRingBufferDumpToFile(t *testing.T) {
	rb := NewRingBuffer(32)
	_, _ = rb.Write([]byte("crash_dump_payload"))

	path := filepath.Join(t.TempDir(), "crash.log")
	if err := rb.DumpToFile(path); err != nil {
		t.Fatalf("DumpToFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read dump: %v", err)
	}
	if !bytes.Equal(data, []byte("crash_dump_payload")) {
		t.Errorf("expected 'crash_dump_payload', got %q", string(data))
	}
}

func TestRingBufferConcurrent(t *testing.T) {
	rb := NewRingBuffer(1024)
	done := make(chan struct{})

	for i := 0; i < 10; i++ {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_, _ = rb.Write([]byte("x"))
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if got := rb.Bytes(); len(got) != 1000 {
		t.Errorf("expected 1000 bytes, got %d", len(got))
	}
}

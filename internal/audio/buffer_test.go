package audio

import (
	"bytes"
	"testing"
)

func TestRingBuffer_WriteRead(t *testing.T) {
	rb := NewRingBuffer(16)

	data := []byte{1, 2, 3, 4, 5}
	written := rb.Write(data)
	if written != 5 {
		t.Errorf("Expected 5 bytes written, got %d", written)
	}

	out := make([]byte, 5)
	read := rb.Read(out)
	if read != 5 {
		t.Errorf("Expected 5 bytes read, got %d", read)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("Read data mismatch: got %v, want %v", out, data)
	}
}

func TestRingBuffer_FullDropsExcess(t *testing.T) {
	rb := NewRingBuffer(8) // Usable capacity is size-1

	written := rb.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	if written != 7 {
		t.Errorf("Expected 7 bytes written into full buffer, got %d", written)
	}

	if rb.Space() != 0 {
		t.Errorf("Expected no space in full buffer, got %d", rb.Space())
	}
}

func TestRingBuffer_Wraparound(t *testing.T) {
	rb := NewRingBuffer(8)

	// Fill partially, drain, then fill again across the boundary
	rb.Write([]byte{1, 2, 3, 4, 5})
	out := make([]byte, 5)
	rb.Read(out)

	data := []byte{6, 7, 8, 9, 10}
	if written := rb.Write(data); written != 5 {
		t.Fatalf("Expected 5 bytes written across wraparound, got %d", written)
	}

	got := rb.Drain()
	if !bytes.Equal(got, data) {
		t.Errorf("Drain after wraparound: got %v, want %v", got, data)
	}
}

func TestRingBuffer_Drain(t *testing.T) {
	rb := NewRingBuffer(16)

	if got := rb.Drain(); got != nil {
		t.Errorf("Drain of empty buffer should return nil, got %v", got)
	}

	rb.Write([]byte{1, 2, 3})
	got := rb.Drain()
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Drain mismatch: got %v", got)
	}
	if !rb.IsEmpty() {
		t.Error("Buffer should be empty after Drain")
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer(16)
	rb.Write([]byte{1, 2, 3})
	rb.Clear()

	if !rb.IsEmpty() {
		t.Error("Buffer should be empty after Clear")
	}
	if rb.Available() != 0 {
		t.Errorf("Expected 0 available after Clear, got %d", rb.Available())
	}
}

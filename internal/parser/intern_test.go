package parser

import (
	"sync"
	"testing"
)

func TestStringIntern(t *testing.T) {
	si := NewStringIntern()

	s1 := si.Intern("hello")
	s2 := si.Intern("hello")
	if s1 != s2 {
		t.Error("Expected same value for interned strings")
	}

	si.Intern("world")
	if si.Len() != 2 {
		t.Errorf("Expected pool size 2, got %d", si.Len())
	}

	si.Clear()
	if si.Len() != 0 {
		t.Errorf("Expected pool size 0 after clear, got %d", si.Len())
	}
}

func TestStringInternEmpty(t *testing.T) {
	si := NewStringIntern()
	if si.Intern("") != "" {
		t.Error("Expected empty string to round-trip")
	}
}

func TestStringInternConcurrent(t *testing.T) {
	si := NewStringIntern()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				si.Intern("shared")
			}
		}()
	}
	wg.Wait()

	if si.Len() != 1 {
		t.Errorf("Expected pool size 1, got %d", si.Len())
	}
}

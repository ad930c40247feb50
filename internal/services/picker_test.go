package services_test

import (
	"testing"

	"github.com/quizroom/gachadb/internal/services"
)

func TestPickerStaysInRange(t *testing.T) {
	picker, err := services.NewPicker()
	if err != nil {
		t.Fatalf("NewPicker failed: %v", err)
	}

	for i := 0; i < 10000; i++ {
		id := picker.Pick(80)
		if id < 1 || id > 80 {
			t.Fatalf("Pick out of range: %d", id)
		}
	}
}

func TestPickerCoversRange(t *testing.T) {
	picker, err := services.NewPicker()
	if err != nil {
		t.Fatalf("NewPicker failed: %v", err)
	}

	seen := make(map[int64]bool)
	for i := 0; i < 10000; i++ {
		seen[picker.Pick(10)] = true
	}
	// Ten values in ten thousand draws; missing one would be astronomically unlikely
	if len(seen) != 10 {
		t.Errorf("Expected all 10 values drawn, got %d", len(seen))
	}
}

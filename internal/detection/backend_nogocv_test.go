//go:build !gocv

package detection

import (
	"strings"
	"testing"
)

func TestNewBackend_OpenCVNeedsTag(t *testing.T) {
	_, err := NewBackend(BackendOpenCV)
	if err == nil {
		t.Fatal("opencv backend should be unavailable without the gocv tag")
	}
	if !strings.Contains(err.Error(), "-tags gocv") {
		t.Errorf("error should name the build tag: %v", err)
	}
}

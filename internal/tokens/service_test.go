package tokens

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(ErrNotFound) {
		t.Fatal("IsNotFound(ErrNotFound) should be true")
	}
	if !IsNotFound(fmt.Errorf("delete token: %w", ErrNotFound)) {
		t.Fatal("IsNotFound should see through wrapping")
	}
	if IsNotFound(errors.New("connection refused")) {
		t.Fatal("IsNotFound should reject unrelated errors")
	}
}

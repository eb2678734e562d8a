package trading

import "fmt"

// StorageError wraps any failure reading or writing persisted state inside
// a trade transaction. The transaction is rolled back before it surfaces.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("trading: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

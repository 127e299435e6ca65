package mailbox

import (
	"errors"
	"fmt"
)

// ConnectionError indicates that a live mailbox session could not be
// established or confirmed.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("mailbox connection: %v", e.Err)
	}
	return fmt.Sprintf("mailbox connection to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is a
// ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// FolderError indicates that a mailbox folder could not be opened, listed,
// or closed.
type FolderError struct {
	Folder string
	Op     string
	Err    error
}

func (e *FolderError) Error() string {
	return fmt.Sprintf("folder %s: %s: %v", e.Folder, e.Op, e.Err)
}

func (e *FolderError) Unwrap() error { return e.Err }

// IsFolderError reports whether err (or any error in its chain) is a
// FolderError.
func IsFolderError(err error) bool {
	var folderErr *FolderError
	return errors.As(err, &folderErr)
}

// DecodeAnomaly describes the fields of one message that could not be
// fully decoded and were replaced by sentinel or empty values.
type DecodeAnomaly struct {
	SeqNum  uint32
	Reasons []string
}

func (e *DecodeAnomaly) Error() string {
	return fmt.Sprintf("message %d decoded with anomalies: %v", e.SeqNum, e.Reasons)
}

// IsDecodeAnomaly reports whether err (or any error in its chain) is a
// DecodeAnomaly.
func IsDecodeAnomaly(err error) bool {
	var anomaly *DecodeAnomaly
	return errors.As(err, &anomaly)
}

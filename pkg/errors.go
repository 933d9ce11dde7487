package decoder

import "fmt"

// BindError represents a failure acquiring the bytes of a file.
type BindError struct {
	Path string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("error binding file %q: %v", e.Path, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// FormatError represents a magic number that does not match the structure
// expected at Offset.
type FormatError struct {
	Stage  string
	Offset int
	Magic  uint64
	Reason string
}

func (e *FormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s at offset %d: %s", e.Stage, e.Offset, e.Reason)
	}
	return fmt.Sprintf("invalid magic 0x%016x in %s at offset %d", e.Magic, e.Stage, e.Offset)
}

// TruncationError represents a required structure that does not fit in the
// remaining bytes of the buffer.
type TruncationError struct {
	Stage  string
	Offset int
	Need   uint64
	Have   int
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("not enough data for %s at offset %d: need %d bytes, have %d",
		e.Stage, e.Offset, e.Need, e.Have)
}

// StateError represents an operation not allowed in the current reader state.
type StateError struct {
	Op    string
	State ReaderState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed: reader is %v", e.Op, e.State)
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error { return e.Err }

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error { return e.Err }

// ErrOpenFile represents an error when creating the output file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

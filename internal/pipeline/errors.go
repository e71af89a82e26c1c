package pipeline

import "fmt"

// MigrationError wraps a transport rejection of a generated migration
// script. It carries the whole submitted script and the server's own message;
// the pipeline never retries a MigrationError.
type MigrationError struct {
	SQL   string
	Cause error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration failed: %v\nstatement: %s", e.Cause, e.SQL)
}

func (e *MigrationError) Unwrap() error { return e.Cause }

// ConfirmationRequired is returned by Push when the computed diff is
// destructive and the caller did not pass Force. It carries the diff's
// human-readable summary so the UI can present it and re-invoke with Force
// once the user confirms.
type ConfirmationRequired struct {
	Summary []string
}

func (e *ConfirmationRequired) Error() string {
	return "destructive changes require confirmation: pass Force to proceed"
}

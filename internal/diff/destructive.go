package diff

// DestructiveChanges returns the subset of Changes that can lose data:
// dropped tables, dropped columns, column type changes, dropped enums.
// The pipeline uses this to build the summary attached to
// ConfirmationRequired.
func (d *SchemaDiff) DestructiveChanges() []Change {
	if d == nil {
		return nil
	}
	var out []Change
	for _, c := range d.Changes {
		if c.Destructive {
			out = append(out, c)
		}
	}
	return out
}

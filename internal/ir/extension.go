package ir

// Extension is an installed PostgreSQL extension.
type Extension struct {
	Name    string
	Schema  string
	Version string
}

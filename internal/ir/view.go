package ir

// CheckOption is a view's WITH CHECK OPTION clause.
type CheckOption string

const (
	CheckOptionNone    CheckOption = ""
	CheckOptionLocal   CheckOption = "LOCAL"
	CheckOptionCascaded CheckOption = "CASCADED"
)

// View is a regular or materialized view.
type View struct {
	Schema        string
	Name          string
	Definition    string // the SELECT text
	IsMaterialized bool
	WithOptions   []string // e.g. "security_barrier=true"
	CheckOption   CheckOption
	Comment       string
	Extension     string
}

func (v *View) clone() *View {
	if v == nil {
		return nil
	}
	cp := *v
	cp.WithOptions = append([]string(nil), v.WithOptions...)
	return &cp
}

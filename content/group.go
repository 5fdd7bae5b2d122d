package content

// Group is a node of the rooted task group tree. The root is the sentinel
// id 0 and is never stored.
type Group struct {
	Id     int    `json:"id"`
	Name   string `json:"name"`
	Parent int    `json:"parent"`
	Seed   string `json:"seed"`
	// GenConfig is an opaque generation config inherited by tasks in this
	// group that have none of their own. Empty means "inherit further up".
	GenConfig string `json:"generation_config,omitempty"`
}

func (g *Group) Validate() error {
	if g.Id <= 0 {
		return &ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	if g.Parent < 0 {
		return &ValidationError{Field: "parent", Reason: "must be a group id or 0"}
	}
	if g.Parent == g.Id {
		return &ValidationError{Field: "parent", Reason: "group cannot be its own parent"}
	}
	return validateSeed(g.Seed)
}

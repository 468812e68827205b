package protocol

// Action is one coping action the user can pick during a reset session.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Trigger is one tag the user can attach to an outcome to note what set
// the urge off.
type Trigger struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Catalog is the read-only reference data a session validates against.
// It is constructed once and injected, never mutated, so sessions can read
// it without coordination.
type Catalog struct {
	actions  map[string]Action
	triggers map[string]Trigger
}

// NewCatalog builds a catalog from explicit action and trigger lists.
func NewCatalog(actions []Action, triggers []Trigger) *Catalog {
	c := &Catalog{
		actions:  make(map[string]Action, len(actions)),
		triggers: make(map[string]Trigger, len(triggers)),
	}
	for _, a := range actions {
		c.actions[a.ID] = a
	}
	for _, t := range triggers {
		c.triggers[t.ID] = t
	}
	return c
}

// DefaultCatalog returns the built-in coping actions and trigger tags.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		[]Action{
			{ID: "breathing", Label: "Deep breathing"},
			{ID: "walk", Label: "Short walk"},
			{ID: "pushups", Label: "Ten push-ups"},
			{ID: "water", Label: "Glass of water"},
			{ID: "journal", Label: "Write it down"},
		},
		[]Trigger{
			{ID: "boredom", Label: "Bored"},
			{ID: "stress", Label: "Stressed"},
			{ID: "loneliness", Label: "Lonely"},
			{ID: "habit", Label: "Just habit"},
			{ID: "ad", Label: "Saw an ad"},
		},
	)
}

// HasAction reports whether the catalog contains the action id.
func (c *Catalog) HasAction(id string) bool {
	_, ok := c.actions[id]
	return ok
}

// HasTrigger reports whether the catalog contains the trigger id.
func (c *Catalog) HasTrigger(id string) bool {
	_, ok := c.triggers[id]
	return ok
}

// Actions returns the catalog's actions in an unspecified order.
func (c *Catalog) Actions() []Action {
	out := make([]Action, 0, len(c.actions))
	for _, a := range c.actions {
		out = append(out, a)
	}
	return out
}

// Triggers returns the catalog's triggers in an unspecified order.
func (c *Catalog) Triggers() []Trigger {
	out := make([]Trigger, 0, len(c.triggers))
	for _, t := range c.triggers {
		out = append(out, t)
	}
	return out
}

package domain

// Transition defines a rule to move from one screen to another.
type Transition struct {
	Trigger Trigger `json:"trigger" yaml:"trigger"`
	From    State   `json:"from" yaml:"from"`
	To      State   `json:"to" yaml:"to"`
}

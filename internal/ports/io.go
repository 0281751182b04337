package ports

// InputPin is the active-low control input with internal pull-up.
type InputPin interface {
	// Pressed samples the pin once; true when the level is low.
	Pressed() bool
}

// LED is the single status indicator.
type LED interface {
	Set(on bool)
}

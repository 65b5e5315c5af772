package input

// KeyNames maps buttons to evdev key names such as "KEY_LEFT".
type KeyNames struct {
	Left   string
	Middle string
	Right  string
}

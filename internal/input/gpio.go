package input

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOPins names the header pins wired to the buttons, e.g. "GPIO17".
type GPIOPins struct {
	Left   string
	Middle string
	Right  string
}

// GPIOSource reads three active-low buttons with internal pull-ups.
type GPIOSource struct {
	pins    []gpio.PinIn
	buttons []Button
}

var _ Source = (*GPIOSource)(nil)

// OpenGPIO initialises the host drivers and configures the named pins as
// pulled-up inputs.
func OpenGPIO(names GPIOPins) (*GPIOSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}
	pins := make(map[Button]gpio.PinIn, 3)
	for b, name := range map[Button]string{Left: names.Left, Middle: names.Middle, Right: names.Right} {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("gpio pin for %s button not configured", b)
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		pins[b] = p
	}
	return newGPIOSource(pins)
}

func newGPIOSource(pins map[Button]gpio.PinIn) (*GPIOSource, error) {
	s := &GPIOSource{}
	for _, b := range []Button{Left, Middle, Right} {
		p, ok := pins[b]
		if !ok {
			return nil, fmt.Errorf("gpio pin for %s button missing", b)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("configure %s pin %s: %w", b, p.Name(), err)
		}
		s.pins = append(s.pins, p)
		s.buttons = append(s.buttons, b)
	}
	return s, nil
}

// Sample returns the first pin pulled low, in Left, Middle, Right order.
func (s *GPIOSource) Sample() Button {
	for i, p := range s.pins {
		if p.Read() == gpio.Low {
			return s.buttons[i]
		}
	}
	return None
}

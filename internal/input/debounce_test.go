package input

import (
	"testing"
	"time"
)

type sample struct {
	at     time.Duration
	button Button
}

func run(d *Debouncer, samples []sample) []Button {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var out []Button
	for _, s := range samples {
		if b, ok := d.Step(base.Add(s.at), s.button); ok {
			out = append(out, b)
		}
	}
	return out
}

func TestDebouncer(t *testing.T) {
	ms := time.Millisecond

	tests := []struct {
		name    string
		samples []sample
		want    []Button
	}{
		{
			name:    "first press dispatches immediately",
			samples: []sample{{0, Right}},
			want:    []Button{Right},
		},
		{
			name: "sustained press dispatches once",
			samples: []sample{
				{0, Right}, {20 * ms, Right}, {600 * ms, Right}, {2000 * ms, Right},
			},
			want: []Button{Right},
		},
		{
			name: "re-press inside cooldown is swallowed",
			samples: []sample{
				{0, Left}, {40 * ms, None}, {100 * ms, Left}, {140 * ms, None}, {200 * ms, None},
			},
			want: []Button{Left},
		},
		{
			name: "press after cooldown dispatches again",
			samples: []sample{
				{0, Left}, {40 * ms, None}, {540 * ms, Left}, {560 * ms, None},
			},
			want: []Button{Left, Left},
		},
		{
			name: "button held from inside the window fires once the window ends",
			samples: []sample{
				{0, Middle}, {40 * ms, None}, {100 * ms, Middle}, {300 * ms, Middle}, {540 * ms, Middle}, {800 * ms, Middle},
			},
			want: []Button{Middle, Middle},
		},
		{
			name: "switching buttons without release is one press",
			samples: []sample{
				{0, Left}, {20 * ms, Right}, {40 * ms, Middle},
			},
			want: []Button{Left},
		},
		{
			name:    "idle samples never dispatch",
			samples: []sample{{0, None}, {1000 * ms, None}},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(NewDebouncer(500*ms), tt.samples)
			if len(got) != len(tt.want) {
				t.Fatalf("dispatched %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("dispatched %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNewDebouncerDefaultsCooldown(t *testing.T) {
	if got := NewDebouncer(0).Cooldown(); got != DefaultCooldown {
		t.Fatalf("Cooldown() = %v, want %v", got, DefaultCooldown)
	}
}

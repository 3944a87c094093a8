package screen

import "testing"

func TestInitialScreen(t *testing.T) {
	c := NewController()
	if got := c.Current(); got != ScreenMap {
		t.Fatalf("initial screen = %s; want %s", got, ScreenMap)
	}
}

func TestTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    Screen
		to      Screen
		allowed bool
	}{
		{"preview loaded", ScreenMap, ScreenResult, true},
		{"upload started", ScreenResult, ScreenProcessing, true},
		{"upload succeeded", ScreenProcessing, ScreenResults, true},
		{"upload failed reverts", ScreenProcessing, ScreenResult, true},
		{"back from preview", ScreenResult, ScreenMap, true},
		{"done back to map", ScreenResults, ScreenMap, true},
		{"skip preview", ScreenMap, ScreenProcessing, false},
		{"skip processing", ScreenResult, ScreenResults, false},
		{"video without upload", ScreenMap, ScreenResults, false},
		{"processing cannot jump to map", ScreenProcessing, ScreenMap, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Controller{current: tc.from}
			err := c.Show(tc.to)
			if tc.allowed {
				if err != nil {
					t.Fatalf("Show(%s) from %s returned error: %v", tc.to, tc.from, err)
				}
				if c.Current() != tc.to {
					t.Fatalf("current = %s; want %s", c.Current(), tc.to)
				}
			} else {
				if err == nil {
					t.Fatalf("Show(%s) from %s should be rejected", tc.to, tc.from)
				}
				if c.Current() != tc.from {
					t.Fatalf("rejected transition changed screen to %s", c.Current())
				}
			}
		})
	}
}

func TestShowSameScreenIsNoop(t *testing.T) {
	c := NewController()
	if err := c.Show(ScreenMap); err != nil {
		t.Fatalf("Show(current) returned error: %v", err)
	}
}

func TestResetFromAnywhere(t *testing.T) {
	for _, from := range []Screen{ScreenMap, ScreenResult, ScreenProcessing, ScreenResults} {
		c := &Controller{current: from}
		c.Reset()
		if c.Current() != ScreenMap {
			t.Fatalf("Reset from %s left screen %s", from, c.Current())
		}
	}
}

func TestOnShowCallback(t *testing.T) {
	c := NewController()
	var seen []Screen
	c.SetOnShow(func(s Screen) { seen = append(seen, s) })

	if err := c.Show(ScreenResult); err != nil {
		t.Fatalf("Show returned error: %v", err)
	}
	c.Reset()

	if len(seen) != 2 || seen[0] != ScreenResult || seen[1] != ScreenMap {
		t.Fatalf("callback sequence = %v; want [result map]", seen)
	}
}

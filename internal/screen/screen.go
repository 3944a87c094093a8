package screen

import (
	"fmt"
	"sync"
)

// Screen identifies one of the mutually exclusive UI panels.
// Exactly one screen is current at any time.
type Screen string

const (
	ScreenMap        Screen = "map"
	ScreenResult     Screen = "result"
	ScreenProcessing Screen = "processing"
	ScreenResults    Screen = "results-display"
)

// transitions is the set of legal screen changes. Anything not listed
// is rejected; callers are not trusted to sequence panels correctly.
var transitions = map[Screen][]Screen{
	ScreenMap:        {ScreenResult},
	ScreenResult:     {ScreenProcessing, ScreenMap},
	ScreenProcessing: {ScreenResults, ScreenResult},
	ScreenResults:    {ScreenMap},
}

// Controller tracks the current screen and enforces the transition table.
type Controller struct {
	mu      sync.Mutex
	current Screen
	onShow  func(Screen) // Callback for UI notification
}

// NewController creates a controller showing the initial map screen.
func NewController() *Controller {
	return &Controller{current: ScreenMap}
}

// SetOnShow sets the callback invoked after every successful transition.
func (c *Controller) SetOnShow(callback func(Screen)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onShow = callback
}

// Current returns the screen that is currently visible.
func (c *Controller) Current() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Show transitions to the target screen. It returns an error and leaves
// the current screen unchanged if the transition is not in the table.
func (c *Controller) Show(target Screen) error {
	c.mu.Lock()
	if target == c.current {
		c.mu.Unlock()
		return nil
	}
	allowed := false
	for _, next := range transitions[c.current] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		current := c.current
		c.mu.Unlock()
		return fmt.Errorf("invalid screen transition: %s -> %s", current, target)
	}
	c.current = target
	callback := c.onShow
	c.mu.Unlock()

	if callback != nil {
		callback(target)
	}
	return nil
}

// Reset returns to the initial map screen from anywhere.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.current = ScreenMap
	callback := c.onShow
	c.mu.Unlock()

	if callback != nil {
		callback(ScreenMap)
	}
}

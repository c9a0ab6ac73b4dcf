// internal/executor/hotkeys.go
package executor

// chord is a primary key plus its modifiers in robotgo vocabulary.
type chord struct {
	key  string
	mods []string
}

// hotkeys maps the symbolic names the planner is allowed to emit to macOS
// key chords. The table is data, not behavior: adding a name here is the
// only change needed to teach the planner a new hotkey.
var hotkeys = map[string]chord{
	"copy":            {key: "c", mods: []string{"command"}},
	"paste":           {key: "v", mods: []string{"command"}},
	"cut":             {key: "x", mods: []string{"command"}},
	"save":            {key: "s", mods: []string{"command"}},
	"undo":            {key: "z", mods: []string{"command"}},
	"redo":            {key: "z", mods: []string{"command", "shift"}},
	"select_all":      {key: "a", mods: []string{"command"}},
	"find":            {key: "f", mods: []string{"command"}},
	"new_tab":         {key: "t", mods: []string{"command"}},
	"close_tab":       {key: "w", mods: []string{"command"}},
	"switch_app":      {key: "tab", mods: []string{"command"}},
	"screenshot_area": {key: "4", mods: []string{"command", "shift"}},
	"spotlight":       {key: "space", mods: []string{"command"}},
	"mission_control": {key: "up", mods: []string{"control"}},
	"app_windows":     {key: "down", mods: []string{"control"}},
	"switch_window":   {key: "`", mods: []string{"command"}},
	"focus_window":    {key: "`", mods: []string{"command"}},
	"focus_app":       {key: "tab", mods: []string{"command"}},
	"focus_next":      {key: "tab"},
	"focus_prev":      {key: "tab", mods: []string{"shift"}},
	"escape":          {key: "esc"},
	"enter":           {key: "enter"},
}

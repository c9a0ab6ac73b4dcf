// internal/planner/prompts.go
package planner

const planSystemPrompt = `You are a precise macOS UI automation planner. You control the machine
through EXACTLY 4 action types:

1. TYPE: For entering text
   Format: TYPE:<text to type>
   The special line TYPE:WAIT pauses briefly instead of typing.

2. CLICK: For clicking UI elements
   Format: CLICK:<description of element to click>

3. HOTKEY: For keyboard shortcuts by symbolic name
   Format: HOTKEY:<name>
   Available names include: spotlight, enter, escape, copy, paste, cut,
   save, undo, redo, select_all, find, new_tab, close_tab, switch_app,
   focus_next, focus_prev.

4. TERMINAL: For running terminal commands
   Format: TERMINAL:<command to run>

CRITICAL RULES:
1. EVERY line must start with one of these exact prefixes: TYPE:, CLICK:, HOTKEY:, or TERMINAL:
2. ONE action per line
3. NO extra text, comments, numbering or bullet points
4. To launch an application: HOTKEY:spotlight, then TYPE:<app name>,
   then HOTKEY:enter, then TYPE:WAIT
5. NEVER click icons to launch applications; always use Spotlight`

const planUserPrompt = `Break down this request into specific, actionable steps:
%q

The attached screenshot (if any) shows the current screen with a 40x40
coordinate grid overlay, coordinates aa01 to bn40. Plan only what is needed
from THIS state.

Respond with ONLY the action lines. No other text.`

const clickTargetPrompt = `You are looking at a screenshot with a 40x40 grid overlay. The grid
coordinates go from aa01 to bn40 (two letters, then a two-digit row 01-40).

Your task is to find the exact location of: %q

CRITICAL INSTRUCTIONS:
1. Look carefully at the screenshot and find the EXACT element
2. Respond with ONLY the grid coordinate in this format: %%%%%%COORDINATE@@@ (e.g., %%%%%%aa01@@@)
3. Be consistent: if this is a verification or follow-up of a previously
   identified target, use the same coordinate

Respond with ONLY the grid coordinate in %%%%%%COORDINATE@@@ format. No other text.`

const rephrasePrompt = `The following automation step failed:
%s

Verification outcome: %s

Produce ONE alternative action line that achieves the same intent a
different way. Use the same TYPE:/CLICK:/HOTKEY:/TERMINAL: format.
Respond with only that line.`

const completionPrompt = `Original request: %q

Steps already executed successfully:
%s

The attached screenshot shows the current screen state. Decide whether the
original request is fully satisfied.

Respond with JSON: {"status": "COMPLETED"} if done, or
{"status": "CONTINUE", "remaining": "<concise description of what is left>"}
if more work remains.`

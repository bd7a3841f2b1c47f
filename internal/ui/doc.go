// Package ui contains the Bubble Tea program that hosts a tree view inside a
// tmux popup.
//
// Message flow:
//   - Bubble Tea invokes Model.Update with incoming messages, which are routed
//     through a typed handler registry.
//   - Cursor movement is applied to the surface buffer directly so it never
//     waits on a provider. Every other tree operation (keys, clicks, hover)
//     is queued and run one at a time through the command bus, off the event
//     loop, because tree operations may block on providers or on the action
//     picker.
//   - The tree engine reaches back into the UI through a Bridge: tooltips,
//     picker requests, command outcomes and surface changes are recorded
//     there and a redraw message wakes the model.
//
// State ownership:
//   - Lines, highlights, signs and the cursor live in the surface.Buffer the
//     view writes to; View renders straight from it.
//   - The Bridge owns tooltip, picker and outcome state shared with engine
//     goroutines.
package ui

package recording

import "slices"

// Recording is an immutable container for recorded commands.
type Recording struct {
	commands []Command
}

// Len returns the number of commands.
func (r *Recording) Len() int {
	return len(r.commands)
}

// Commands returns the recorded commands.
func (r *Recording) Commands() []Command {
	return r.commands
}

// Count returns how many commands of type t were recorded.
func (r *Recording) Count(t CommandType) int {
	n := 0
	for _, c := range r.commands {
		if c.Type == t {
			n++
		}
	}
	return n
}

// Filter returns the commands whose type is one of types.
func (r *Recording) Filter(types ...CommandType) []Command {
	var out []Command
	for _, c := range r.commands {
		if slices.Contains(types, c.Type) {
			out = append(out, c)
		}
	}
	return out
}

// DrawLog returns the state and draw commands as strings: the part of a
// frame that must be reproducible.
func (r *Recording) DrawLog() []string {
	var out []string
	for _, c := range r.commands {
		if c.Type.IsState() || c.Type.IsDraw() {
			out = append(out, c.String())
		}
	}
	return out
}

// Equal reports whether two recordings hold the same commands.
func (r *Recording) Equal(o *Recording) bool {
	return slices.Equal(r.commands, o.commands)
}

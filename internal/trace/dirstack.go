package trace

import "errors"

// ErrStackUnderflow is returned when a trace leaves more directories than it
// entered.
var ErrStackUnderflow = errors.New("leaving directory with an empty directory stack")

// DirStack tracks nested make "Entering/Leaving directory" markers. Entries
// are root-relative.
type DirStack struct {
	dirs []string
}

func (s *DirStack) Push(dir string) {
	s.dirs = append(s.dirs, dir)
}

func (s *DirStack) Pop() error {
	if len(s.dirs) == 0 {
		return ErrStackUnderflow
	}
	s.dirs = s.dirs[:len(s.dirs)-1]
	return nil
}

// Top is the current working directory, or "" (the root) when empty.
func (s *DirStack) Top() string {
	if len(s.dirs) == 0 {
		return ""
	}
	return s.dirs[len(s.dirs)-1]
}

func (s *DirStack) Depth() int {
	return len(s.dirs)
}

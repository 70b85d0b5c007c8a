package common

import "errors"

// ErrModulePaused is returned when an operation targets a module that
// operations staff have paused.
var ErrModulePaused = errors.New("module paused")

// PauseView answers whether a named module is currently paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view or empty
// module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a PauseView backed by a fixed set of module names, as
// loaded from configuration.
type StaticPauses map[string]struct{}

// NewStaticPauses builds a pause view from a list of module names.
func NewStaticPauses(modules []string) StaticPauses {
	set := make(StaticPauses, len(modules))
	for _, m := range modules {
		if m == "" {
			continue
		}
		set[m] = struct{}{}
	}
	return set
}

// IsPaused implements PauseView.
func (s StaticPauses) IsPaused(module string) bool {
	_, ok := s[module]
	return ok
}

package entities

// ModuleInfo describes a loaded native module as reported by its Info entry point.
// Field names on the wire are case-sensitive and PascalCase, exactly as modules emit them.
type ModuleInfo struct {
	Name         string   `json:"Name" validate:"required"`
	Description  string   `json:"Description"`
	Manufacturer string   `json:"Manufacturer"`
	Components   []string `json:"Components" validate:"dive,required"`
}

// HasComponent reports whether the module advertises the given component identifier.
func (m ModuleInfo) HasComponent(component string) bool {
	for _, c := range m.Components {
		if c == component {
			return true
		}
	}
	return false
}

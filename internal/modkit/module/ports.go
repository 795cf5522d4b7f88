package module

import "reflect"

// PortSet is a marker for module defined port sets.
// Modules define concrete interface bundles and return them from Ports
type PortSet = any

// PortsOf pulls an interface T out of a module's Ports() bundle without
// going through the registry. It checks the bundle itself first, then
// each exported struct field. ok is false when nothing implements T
func PortsOf[T any](m Module) (t T, ok bool) {
	p := m.Ports()
	if p == nil {
		return t, false
	}
	if v, ok2 := p.(T); ok2 {
		return v, true
	}
	rv := reflect.ValueOf(p)
	rt := rv.Type()
	if rt.Kind() == reflect.Struct {
		for i := 0; i < rt.NumField(); i++ {
			f := rv.Field(i)
			if !f.CanInterface() {
				continue
			}
			if v, ok2 := f.Interface().(T); ok2 {
				return v, true
			}
		}
	}
	return t, false
}

// MustPortsOf panics when the module does not expose T. Composition
// errors in main should fail loudly at boot
func MustPortsOf[T any](m Module) T {
	if v, ok := PortsOf[T](m); ok {
		return v
	}
	panic("module: requested port not found on module " + m.Name())
}

//go:build !(cgo && ccslib)

package engine

// Linked reports whether the engine library is part of this build
const Linked = false

// Open reports that no engine is linked into this build
func Open() (Engine, error) {
	return nil, ErrEngineUnavailable
}

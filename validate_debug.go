//go:build debug_memsim

package memsim

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_memsim build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}

// DebugCheckCapacity will verify that the provided capacity can describe a usable address
// space, and panics if it cannot. This method no-ops unless the debug_memsim build tag
// is present.
func DebugCheckCapacity(capacity int, name string) {
	err := CheckCapacity(capacity, name)
	if err != nil {
		panic(err)
	}
}

package imagetable

import "unsafe"

// cellAddr returns the address of a Go value as a uintptr cell
// reference. The pointee must outlive the reference: scratch cells live
// from Bind until Clear, and program-owned cells live for the artifact's
// lifetime, both of which are longer than any use of the resulting
// uintptr under the image-table lock.
func cellAddr[T any](v *T) uintptr {
	return uintptr(unsafe.Pointer(v))
}

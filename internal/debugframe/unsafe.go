package debugframe

import "unsafe"

func unsafePointerAdd(base uintptr, offset uintptr) unsafe.Pointer {
	return unsafe.Pointer(base + offset)
}

package main

import (
	"unsafe"

	"gnark-wnn/libraries/verifier/impl"
)

// #include <stdlib.h>
import (
	"C"
)

func main() {}

//export InitVerifier
func InitVerifier(backendID uint8, manifest []byte, verifyingKey []byte) bool {
	return impl.InitVerifier(backendID, manifest, verifyingKey)
}

//export InitVerifierPinned
func InitVerifierPinned(backendID uint8, manifestHash []byte, manifest []byte, verifyingKey []byte) bool {
	return impl.InitVerifierPinned(backendID, string(manifestHash), manifest, verifyingKey)
}

//export Verify
func Verify(params []byte) bool {
	return impl.Verify(params)
}

//export VFree
func VFree(pointer unsafe.Pointer) {
	C.free(pointer)
}

package main

import (
	"encoding/json"
	"fmt"
	"unsafe"

	"gnark-wnn/libraries/prover/impl"
)

// #include <stdlib.h>
import (
	"C"
)

func main() {}

//export enforce_binding
func enforce_binding() {}

//export InitAlgorithm
func InitAlgorithm(backendID uint8, manifest []byte, provingKey []byte, ccs []byte, model []byte) bool {
	return impl.InitAlgorithm(backendID, manifest, provingKey, ccs, model)
}

//export Free
func Free(pointer unsafe.Pointer) {
	C.free(pointer)
}

//export Prove
func Prove(params []byte) (proofRes unsafe.Pointer, resLen int) {

	defer func() {
		if err := recover(); err != nil {
			fmt.Printf("%+v", err)
			bRes, er := json.Marshal(err)
			if er != nil {
				fmt.Println(er)
			} else {
				proofRes, resLen = C.CBytes(bRes), len(bRes)
			}
		}
	}()

	res := impl.Prove(params)
	return C.CBytes(res), len(res)
}

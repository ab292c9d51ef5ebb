//go:build !(js && wasm)

package auto

import (
	_ "github.com/gogpu/g3d/backend/software"
	_ "github.com/gogpu/g3d/backend/wgpu"
)

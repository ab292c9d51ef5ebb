package recording

import (
	"fmt"

	"github.com/gogpu/g3d/gpucore"
)

// CommandType identifies the type of a command.
// Each command type corresponds to one gpucore.Adapter method.
type CommandType uint8

const (
	// Lifecycle commands
	CmdInit             CommandType = iota // Acquire the device
	CmdClose                               // Release the device
	CmdConfigureSurface                    // Resize the default surface

	// Resource commands
	CmdCreateBuffer   // Allocate a buffer
	CmdWriteBuffer    // Rewrite buffer content
	CmdDestroyBuffer  // Free a buffer
	CmdCreateTexture  // Allocate a texture
	CmdWriteTexture   // Rewrite a mip level
	CmdReadTexture    // Read back mip level 0
	CmdDestroyTexture // Free a texture
	CmdCompileProgram // Compile and link a program
	CmdDestroyProgram // Free a program
	CmdCreateTarget   // Create a framebuffer
	CmdDestroyTarget  // Free a framebuffer

	// State commands
	CmdBindTarget       // Bind a framebuffer
	CmdSetViewport      // Set the viewport
	CmdUseProgram       // Bind a program
	CmdSetDepth         // Set depth state
	CmdSetBlend         // Set blend mode
	CmdSetCull          // Set cull state
	CmdBindTexture      // Bind a texture unit
	CmdBindVertexBuffer // Bind the vertex buffer
	CmdBindIndexBuffer  // Bind the index buffer
	CmdSetUniforms      // Set per-draw uniforms

	// Drawing commands
	CmdClear       // Clear attachments
	CmdDraw        // Non-indexed draw
	CmdDrawIndexed // Indexed draw

	// Frame commands
	CmdFlush   // Submit recorded work
	CmdDiscard // Drop unsubmitted work

	numCommandTypes
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdInit:             "Init",
	CmdClose:            "Close",
	CmdConfigureSurface: "ConfigureSurface",
	CmdCreateBuffer:     "CreateBuffer",
	CmdWriteBuffer:      "WriteBuffer",
	CmdDestroyBuffer:    "DestroyBuffer",
	CmdCreateTexture:    "CreateTexture",
	CmdWriteTexture:     "WriteTexture",
	CmdReadTexture:      "ReadTexture",
	CmdDestroyTexture:   "DestroyTexture",
	CmdCompileProgram:   "CompileProgram",
	CmdDestroyProgram:   "DestroyProgram",
	CmdCreateTarget:     "CreateTarget",
	CmdDestroyTarget:    "DestroyTarget",
	CmdBindTarget:       "BindTarget",
	CmdSetViewport:      "SetViewport",
	CmdUseProgram:       "UseProgram",
	CmdSetDepth:         "SetDepth",
	CmdSetBlend:         "SetBlend",
	CmdSetCull:          "SetCull",
	CmdBindTexture:      "BindTexture",
	CmdBindVertexBuffer: "BindVertexBuffer",
	CmdBindIndexBuffer:  "BindIndexBuffer",
	CmdSetUniforms:      "SetUniforms",
	CmdClear:            "Clear",
	CmdDraw:             "Draw",
	CmdDrawIndexed:      "DrawIndexed",
	CmdFlush:            "Flush",
	CmdDiscard:          "Discard",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// IsState reports whether the command changes bound pipeline state.
func (c CommandType) IsState() bool {
	return c >= CmdBindTarget && c <= CmdSetUniforms
}

// IsDraw reports whether the command writes pixels.
func (c CommandType) IsDraw() bool {
	return c >= CmdClear && c <= CmdDrawIndexed
}

// Command is one recorded adapter call. Only the fields relevant to
// Type are set. Commands are comparable.
type Command struct {
	Type CommandType

	// ID is the buffer, texture, program or target the call refers to.
	// For create calls it is the ID the backend returned.
	ID uint64
	// Label is the descriptor label of create calls.
	Label string

	Unit   int
	Offset int
	Size   int
	Count  int
	First  int
	Width  int
	Height int

	Viewport gpucore.Viewport
	Depth    gpucore.DepthState
	Blend    gpucore.BlendMode
	Cull     gpucore.CullState
	Clear    gpucore.ClearOp

	// Digest is the FNV-1a hash of the encoded uniforms.
	Digest uint64

	// Failed marks calls that returned an error.
	Failed bool
}

// String returns a compact form used in draw-call logs.
func (c Command) String() string {
	var s string
	switch c.Type {
	case CmdConfigureSurface:
		s = fmt.Sprintf("ConfigureSurface(%dx%d)", c.Width, c.Height)
	case CmdCreateBuffer, CmdCreateTexture, CmdCompileProgram, CmdCreateTarget:
		s = fmt.Sprintf("%s(%q) = %d", c.Type, c.Label, c.ID)
	case CmdWriteBuffer:
		s = fmt.Sprintf("WriteBuffer(%d, %d, %d bytes)", c.ID, c.Offset, c.Size)
	case CmdWriteTexture:
		s = fmt.Sprintf("WriteTexture(%d, level %d, %d bytes)", c.ID, c.Unit, c.Size)
	case CmdBindTarget:
		s = fmt.Sprintf("BindTarget(%d, %s)", c.ID, c.Viewport)
	case CmdSetViewport:
		s = fmt.Sprintf("SetViewport(%s)", c.Viewport)
	case CmdSetDepth:
		s = fmt.Sprintf("SetDepth(test=%t write=%t %s)", c.Depth.Test, c.Depth.Write, c.Depth.Compare)
	case CmdSetBlend:
		s = fmt.Sprintf("SetBlend(%s)", c.Blend)
	case CmdSetCull:
		s = fmt.Sprintf("SetCull(%s %s)", c.Cull.Mode, c.Cull.Front)
	case CmdBindTexture:
		s = fmt.Sprintf("BindTexture(%d, %d)", c.Unit, c.ID)
	case CmdSetUniforms:
		s = fmt.Sprintf("SetUniforms(%016x)", c.Digest)
	case CmdClear:
		s = fmt.Sprintf("Clear(color=%t depth=%t)", c.Clear.Color, c.Clear.Depth)
	case CmdDraw, CmdDrawIndexed:
		s = fmt.Sprintf("%s(%d, %d)", c.Type, c.Count, c.First)
	case CmdInit, CmdClose, CmdFlush, CmdDiscard:
		s = c.Type.String() + "()"
	default:
		s = fmt.Sprintf("%s(%d)", c.Type, c.ID)
	}
	if c.Failed {
		s += " !"
	}
	return s
}

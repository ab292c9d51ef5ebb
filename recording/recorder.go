package recording

import (
	"hash/fnv"

	"github.com/gogpu/g3d/gpucore"
)

// Recorder is a gpucore.Adapter that records every call and forwards it
// to an inner adapter.
//
// Example:
//
//	rec := recording.NewRecorder(software.New(4, 4))
//	_ = rec.Init()
//	_ = rec.Draw(3, 0)
//	fmt.Println(rec.Count(recording.CmdDraw)) // 1
//
// The Recorder is not safe for concurrent use.
type Recorder struct {
	inner    gpucore.Adapter
	commands []Command
	faults   map[CommandType]*fault
	paused   bool
}

type fault struct {
	err   error
	times int
}

var _ gpucore.Adapter = (*Recorder)(nil)

// NewRecorder wraps inner.
func NewRecorder(inner gpucore.Adapter) *Recorder {
	return &Recorder{
		inner:    inner,
		commands: make([]Command, 0, 256),
		faults:   make(map[CommandType]*fault),
	}
}

// Unwrap returns the wrapped adapter.
func (r *Recorder) Unwrap() gpucore.Adapter {
	return r.inner
}

// Inject makes the next times calls of type t fail with err without
// reaching the inner adapter. A negative times fails every call.
func (r *Recorder) Inject(t CommandType, err error, times int) {
	if err == nil || times == 0 {
		delete(r.faults, t)
		return
	}
	r.faults[t] = &fault{err: err, times: times}
}

// ClearFaults removes every injected failure.
func (r *Recorder) ClearFaults() {
	clear(r.faults)
}

// Pause stops recording without stopping forwarding.
func (r *Recorder) Pause() { r.paused = true }

// Resume restarts recording.
func (r *Recorder) Resume() { r.paused = false }

// Reset drops the recorded commands.
func (r *Recorder) Reset() {
	r.commands = r.commands[:0]
}

// Len returns the number of recorded commands.
func (r *Recorder) Len() int {
	return len(r.commands)
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Command {
	return append([]Command(nil), r.commands...)
}

// Count returns how many commands of type t were recorded.
func (r *Recorder) Count(t CommandType) int {
	n := 0
	for _, c := range r.commands {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FinishRecording returns an immutable Recording of the commands so far
// and resets the recorder.
func (r *Recorder) FinishRecording() *Recording {
	rec := &Recording{commands: r.Commands()}
	r.Reset()
	return rec
}

// injected returns the injected error for t, consuming one use.
func (r *Recorder) injected(t CommandType) error {
	f, ok := r.faults[t]
	if !ok {
		return nil
	}
	if f.times > 0 {
		f.times--
		if f.times == 0 {
			delete(r.faults, t)
		}
	}
	return f.err
}

// call runs fn unless a fault is injected and records c with the outcome.
func (r *Recorder) call(c Command, fn func() error) error {
	err := r.injected(c.Type)
	if err == nil {
		err = fn()
	}
	c.Failed = err != nil
	if !r.paused {
		r.commands = append(r.commands, c)
	}
	return err
}

// Name returns the inner adapter name.
func (r *Recorder) Name() string { return r.inner.Name() }

// Capabilities returns the inner adapter capabilities.
func (r *Recorder) Capabilities() gpucore.Capabilities { return r.inner.Capabilities() }

// Init forwards to the inner adapter.
func (r *Recorder) Init() error {
	return r.call(Command{Type: CmdInit}, r.inner.Init)
}

// Close forwards to the inner adapter.
func (r *Recorder) Close() {
	_ = r.call(Command{Type: CmdClose}, func() error {
		r.inner.Close()
		return nil
	})
}

// ConfigureSurface forwards to the inner adapter.
func (r *Recorder) ConfigureSurface(width, height int) error {
	return r.call(Command{Type: CmdConfigureSurface, Width: width, Height: height}, func() error {
		return r.inner.ConfigureSurface(width, height)
	})
}

// CreateBuffer forwards to the inner adapter.
func (r *Recorder) CreateBuffer(desc gpucore.BufferDesc) (gpucore.BufferID, error) {
	var id gpucore.BufferID
	c := Command{Type: CmdCreateBuffer, Label: desc.Label, Size: desc.Capacity()}
	err := r.call(c, func() (err error) {
		id, err = r.inner.CreateBuffer(desc)
		return err
	})
	r.setLastID(uint64(id))
	return id, err
}

// WriteBuffer forwards to the inner adapter.
func (r *Recorder) WriteBuffer(id gpucore.BufferID, offset int, data []byte) error {
	return r.call(Command{Type: CmdWriteBuffer, ID: uint64(id), Offset: offset, Size: len(data)}, func() error {
		return r.inner.WriteBuffer(id, offset, data)
	})
}

// DestroyBuffer forwards to the inner adapter.
func (r *Recorder) DestroyBuffer(id gpucore.BufferID) error {
	return r.call(Command{Type: CmdDestroyBuffer, ID: uint64(id)}, func() error {
		return r.inner.DestroyBuffer(id)
	})
}

// CreateTexture forwards to the inner adapter.
func (r *Recorder) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	var id gpucore.TextureID
	c := Command{Type: CmdCreateTexture, Label: desc.Label, Width: desc.Width, Height: desc.Height}
	err := r.call(c, func() (err error) {
		id, err = r.inner.CreateTexture(desc)
		return err
	})
	r.setLastID(uint64(id))
	return id, err
}

// WriteTexture forwards to the inner adapter. The level is recorded in
// Unit.
func (r *Recorder) WriteTexture(id gpucore.TextureID, level int, data []byte) error {
	return r.call(Command{Type: CmdWriteTexture, ID: uint64(id), Unit: level, Size: len(data)}, func() error {
		return r.inner.WriteTexture(id, level, data)
	})
}

// ReadTexture forwards to the inner adapter.
func (r *Recorder) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	var data []byte
	err := r.call(Command{Type: CmdReadTexture, ID: uint64(id)}, func() (err error) {
		data, err = r.inner.ReadTexture(id)
		return err
	})
	return data, err
}

// DestroyTexture forwards to the inner adapter.
func (r *Recorder) DestroyTexture(id gpucore.TextureID) error {
	return r.call(Command{Type: CmdDestroyTexture, ID: uint64(id)}, func() error {
		return r.inner.DestroyTexture(id)
	})
}

// CompileProgram forwards to the inner adapter.
func (r *Recorder) CompileProgram(src gpucore.ProgramSource) (gpucore.ProgramID, error) {
	var id gpucore.ProgramID
	err := r.call(Command{Type: CmdCompileProgram, Label: src.Key}, func() (err error) {
		id, err = r.inner.CompileProgram(src)
		return err
	})
	r.setLastID(uint64(id))
	return id, err
}

// DestroyProgram forwards to the inner adapter.
func (r *Recorder) DestroyProgram(id gpucore.ProgramID) error {
	return r.call(Command{Type: CmdDestroyProgram, ID: uint64(id)}, func() error {
		return r.inner.DestroyProgram(id)
	})
}

// CreateTarget forwards to the inner adapter.
func (r *Recorder) CreateTarget(desc gpucore.TargetDesc) (gpucore.TargetID, error) {
	var id gpucore.TargetID
	c := Command{Type: CmdCreateTarget, Label: desc.Label, Width: desc.Width, Height: desc.Height}
	err := r.call(c, func() (err error) {
		id, err = r.inner.CreateTarget(desc)
		return err
	})
	r.setLastID(uint64(id))
	return id, err
}

// DestroyTarget forwards to the inner adapter.
func (r *Recorder) DestroyTarget(id gpucore.TargetID) error {
	return r.call(Command{Type: CmdDestroyTarget, ID: uint64(id)}, func() error {
		return r.inner.DestroyTarget(id)
	})
}

// BindTarget forwards to the inner adapter.
func (r *Recorder) BindTarget(id gpucore.TargetID, vp gpucore.Viewport) error {
	return r.call(Command{Type: CmdBindTarget, ID: uint64(id), Viewport: vp}, func() error {
		return r.inner.BindTarget(id, vp)
	})
}

// Clear forwards to the inner adapter.
func (r *Recorder) Clear(op gpucore.ClearOp) error {
	return r.call(Command{Type: CmdClear, Clear: op}, func() error {
		return r.inner.Clear(op)
	})
}

// SetViewport forwards to the inner adapter.
func (r *Recorder) SetViewport(vp gpucore.Viewport) error {
	return r.call(Command{Type: CmdSetViewport, Viewport: vp}, func() error {
		return r.inner.SetViewport(vp)
	})
}

// UseProgram forwards to the inner adapter.
func (r *Recorder) UseProgram(id gpucore.ProgramID) error {
	return r.call(Command{Type: CmdUseProgram, ID: uint64(id)}, func() error {
		return r.inner.UseProgram(id)
	})
}

// SetDepth forwards to the inner adapter.
func (r *Recorder) SetDepth(d gpucore.DepthState) error {
	return r.call(Command{Type: CmdSetDepth, Depth: d}, func() error {
		return r.inner.SetDepth(d)
	})
}

// SetBlend forwards to the inner adapter.
func (r *Recorder) SetBlend(b gpucore.BlendMode) error {
	return r.call(Command{Type: CmdSetBlend, Blend: b}, func() error {
		return r.inner.SetBlend(b)
	})
}

// SetCull forwards to the inner adapter.
func (r *Recorder) SetCull(c gpucore.CullState) error {
	return r.call(Command{Type: CmdSetCull, Cull: c}, func() error {
		return r.inner.SetCull(c)
	})
}

// BindTexture forwards to the inner adapter.
func (r *Recorder) BindTexture(unit int, id gpucore.TextureID) error {
	return r.call(Command{Type: CmdBindTexture, Unit: unit, ID: uint64(id)}, func() error {
		return r.inner.BindTexture(unit, id)
	})
}

// BindVertexBuffer forwards to the inner adapter.
func (r *Recorder) BindVertexBuffer(id gpucore.BufferID) error {
	return r.call(Command{Type: CmdBindVertexBuffer, ID: uint64(id)}, func() error {
		return r.inner.BindVertexBuffer(id)
	})
}

// BindIndexBuffer forwards to the inner adapter.
func (r *Recorder) BindIndexBuffer(id gpucore.BufferID) error {
	return r.call(Command{Type: CmdBindIndexBuffer, ID: uint64(id)}, func() error {
		return r.inner.BindIndexBuffer(id)
	})
}

// SetUniforms forwards to the inner adapter and records a digest of the
// encoded block.
func (r *Recorder) SetUniforms(u *gpucore.Uniforms) error {
	h := fnv.New64a()
	_, _ = h.Write(u.AppendBytes(nil))
	return r.call(Command{Type: CmdSetUniforms, Digest: h.Sum64()}, func() error {
		return r.inner.SetUniforms(u)
	})
}

// Draw forwards to the inner adapter.
func (r *Recorder) Draw(vertexCount, firstVertex int) error {
	return r.call(Command{Type: CmdDraw, Count: vertexCount, First: firstVertex}, func() error {
		return r.inner.Draw(vertexCount, firstVertex)
	})
}

// DrawIndexed forwards to the inner adapter.
func (r *Recorder) DrawIndexed(indexCount, firstIndex int) error {
	return r.call(Command{Type: CmdDrawIndexed, Count: indexCount, First: firstIndex}, func() error {
		return r.inner.DrawIndexed(indexCount, firstIndex)
	})
}

// Flush forwards to the inner adapter.
func (r *Recorder) Flush() error {
	return r.call(Command{Type: CmdFlush}, r.inner.Flush)
}

// Discard forwards to the inner adapter.
func (r *Recorder) Discard() error {
	return r.call(Command{Type: CmdDiscard}, r.inner.Discard)
}

// setLastID stores the ID returned by a create call on its command.
func (r *Recorder) setLastID(id uint64) {
	if !r.paused && len(r.commands) > 0 {
		r.commands[len(r.commands)-1].ID = id
	}
}

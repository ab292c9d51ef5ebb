package recording

import (
	"errors"
	"testing"

	"github.com/gogpu/g3d/backend/software"
	"github.com/gogpu/g3d/gpucore"
)

func newRecorder(t *testing.T) *Recorder {
	t.Helper()
	rec := NewRecorder(software.New(4, 4))
	if err := rec.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return rec
}

func TestRecorderCounts(t *testing.T) {
	rec := newRecorder(t)
	_ = rec.SetBlend(gpucore.BlendAlpha)
	_ = rec.SetBlend(gpucore.BlendAlpha)
	_ = rec.SetCull(gpucore.CullBack())

	if got := rec.Count(CmdSetBlend); got != 2 {
		t.Errorf("Count(SetBlend) = %d, want 2", got)
	}
	if got := rec.Count(CmdInit); got != 1 {
		t.Errorf("Count(Init) = %d, want 1", got)
	}
	if got := rec.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}
}

func TestRecorderCreateRecordsID(t *testing.T) {
	rec := newRecorder(t)
	id, err := rec.CreateBuffer(gpucore.BufferDesc{Label: "idx", Kind: gpucore.BufferIndex, Size: 12})
	if err != nil {
		t.Fatal(err)
	}
	cmds := rec.Commands()
	last := cmds[len(cmds)-1]
	if last.Type != CmdCreateBuffer || last.ID != uint64(id) || last.Label != "idx" || last.Size != 12 {
		t.Errorf("last command = %+v, want CreateBuffer of id %d", last, id)
	}
}

func TestRecorderInject(t *testing.T) {
	rec := newRecorder(t)
	boom := errors.New("boom")
	rec.Inject(CmdCompileProgram, boom, 1)

	if _, err := rec.CompileProgram(gpucore.ProgramSource{Key: "a"}); !errors.Is(err, boom) {
		t.Errorf("first CompileProgram() error = %v, want injected", err)
	}
	if _, err := rec.CompileProgram(gpucore.ProgramSource{Key: "a"}); err != nil {
		t.Errorf("second CompileProgram() error = %v, want nil", err)
	}

	compiles := rec.FinishRecording().Filter(CmdCompileProgram)
	if len(compiles) != 2 || !compiles[0].Failed || compiles[1].Failed {
		t.Errorf("compile commands = %v, want one failed then one ok", compiles)
	}
	if rec.Len() != 0 {
		t.Errorf("Len() after FinishRecording() = %d, want 0", rec.Len())
	}
}

func TestRecorderInjectForever(t *testing.T) {
	rec := newRecorder(t)
	boom := errors.New("boom")
	rec.Inject(CmdFlush, boom, -1)
	for i := 0; i < 3; i++ {
		if err := rec.Flush(); !errors.Is(err, boom) {
			t.Fatalf("Flush() #%d error = %v, want injected", i, err)
		}
	}
	rec.ClearFaults()
	if err := rec.Flush(); err != nil {
		t.Errorf("Flush() after ClearFaults() error = %v", err)
	}
}

func TestRecorderPause(t *testing.T) {
	rec := newRecorder(t)
	rec.Reset()
	rec.Pause()
	_ = rec.Flush()
	rec.Resume()
	_ = rec.Flush()
	if got := rec.Count(CmdFlush); got != 1 {
		t.Errorf("Count(Flush) = %d, want 1", got)
	}
}

func TestRecordingDrawLog(t *testing.T) {
	rec := newRecorder(t)
	rec.Reset()
	_, _ = rec.CreateBuffer(gpucore.BufferDesc{Kind: gpucore.BufferIndex, Size: 4})
	_ = rec.SetBlend(gpucore.BlendNone)
	_ = rec.Clear(gpucore.ClearOp{Color: true})
	_ = rec.Flush()

	log := rec.FinishRecording().DrawLog()
	want := []string{"SetBlend(none)", "Clear(color=true depth=false)"}
	if len(log) != len(want) {
		t.Fatalf("DrawLog() = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("DrawLog()[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestRecordingEqual(t *testing.T) {
	frame := func() *Recording {
		rec := newRecorder(t)
		rec.Reset()
		_ = rec.SetDepth(gpucore.DepthDefault())
		_ = rec.SetUniforms(&gpucore.Uniforms{BaseColor: [4]float32{1, 0, 0, 1}})
		return rec.FinishRecording()
	}
	a, b := frame(), frame()
	if !a.Equal(b) {
		t.Errorf("identical call sequences should be equal:\n%v\n%v", a.DrawLog(), b.DrawLog())
	}
}

func TestCommandTypeString(t *testing.T) {
	tests := []struct {
		c    CommandType
		want string
	}{
		{CmdDraw, "Draw"},
		{CmdBindTexture, "BindTexture"},
		{CmdDiscard, "Discard"},
		{numCommandTypes, "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.c, got, tt.want)
		}
	}
}

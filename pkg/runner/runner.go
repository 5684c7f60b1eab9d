package runner

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/dimiro1/banner"
)

// State tracks a runner through its lifecycle. Transitions only move
// forward; a stopped runner is never reused.
type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Runner interface {
	Run(ctx context.Context) error
	Stop() error
	State() State
}

// Hooks are optional lifecycle callbacks. Either may be nil.
type Hooks struct {
	OnStart func()
	OnStop  func()
}

// Drainer flushes in-flight work during shutdown.
type Drainer interface {
	Drain() error
}

// Version is overridable at build time via -ldflags.
var Version = "dev"

func PrintBanner() {
	FprintBanner(os.Stdout)
}

// FprintBanner writes the startup banner to w.
func FprintBanner(w io.Writer) {
	tpl := "{{ .Title \"VOXLINE\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(w, true, true, bytes.NewBufferString(tpl))
}

package irq

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func quietCPU() *CPU {
	return NewCPU(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCPUDeliversWhenEnabled(t *testing.T) {
	cpu := quietCPU()
	traps := 0
	if err := cpu.Connect(3, func(any) {
		traps++
		cpu.SetIRQ(3, false)
	}, nil); err != nil {
		t.Fatal(err)
	}

	cpu.SetIRQ(3, true)
	if traps != 0 {
		t.Fatalf("disabled line trapped")
	}
	if err := cpu.Enable(3); err != nil {
		t.Fatal(err)
	}
	if traps != 1 {
		t.Fatalf("asserted line did not trap on Enable (traps=%d)", traps)
	}
	cpu.SetIRQ(3, true)
	if traps != 2 || cpu.Traps() != 2 {
		t.Fatalf("traps = %d/%d, want 2", traps, cpu.Traps())
	}

	cpu.Disable(3)
	if cpu.IsEnabled(3) {
		t.Fatalf("line still enabled")
	}
	cpu.SetIRQ(3, true)
	if traps != 2 {
		t.Fatalf("masked line trapped")
	}
}

func TestCPULockDefersDelivery(t *testing.T) {
	cpu := quietCPU()
	var order []string
	if err := cpu.Connect(1, func(any) {
		order = append(order, "trap")
		cpu.SetIRQ(1, false)
	}, nil); err != nil {
		t.Fatal(err)
	}
	if err := cpu.Enable(1); err != nil {
		t.Fatal(err)
	}

	key := cpu.Lock()
	cpu.SetIRQ(1, true)
	order = append(order, "critical")
	cpu.Unlock(key)

	if len(order) != 2 || order[0] != "critical" || order[1] != "trap" {
		t.Fatalf("order = %v, want [critical trap]", order)
	}
}

func TestCPUTakesLowestLineFirst(t *testing.T) {
	cpu := quietCPU()
	var order []uint32
	for _, n := range []uint32{9, 2, 5} {
		if err := cpu.Connect(n, func(any) {
			order = append(order, n)
			cpu.SetIRQ(n, false)
		}, nil); err != nil {
			t.Fatal(err)
		}
		if err := cpu.Enable(n); err != nil {
			t.Fatal(err)
		}
	}

	key := cpu.Lock()
	for _, n := range []uint32{9, 2, 5} {
		cpu.SetIRQ(n, true)
	}
	cpu.Unlock(key)

	if len(order) != 3 || order[0] != 2 || order[1] != 5 || order[2] != 9 {
		t.Fatalf("order = %v, want [2 5 9]", order)
	}
}

func TestCPUStopsStuckLine(t *testing.T) {
	cpu := quietCPU()
	cpu.SetTrapLimit(10)
	if err := cpu.Connect(4, func(any) {}, nil); err != nil {
		t.Fatal(err)
	}
	cpu.SetIRQ(4, true)
	if err := cpu.Enable(4); err != nil {
		t.Fatal(err)
	}
	if got := cpu.Traps(); got != 10 {
		t.Fatalf("Traps() = %d, want trap limit 10", got)
	}
}

func TestCPUFatal(t *testing.T) {
	cpu := quietCPU()
	var hooked error
	cpu.OnFatal = func(err error) { hooked = err }

	boom := errors.New("boom")
	cpu.Fatal(boom)

	if faults := cpu.Faults(); len(faults) != 1 || faults[0] != boom {
		t.Fatalf("Faults() = %v", faults)
	}
	if hooked != boom {
		t.Fatalf("OnFatal not called")
	}
}

func TestCPUConnectErrors(t *testing.T) {
	cpu := quietCPU()
	if err := cpu.Connect(1, nil, nil); err == nil {
		t.Fatalf("nil handler accepted")
	}
	if err := cpu.Enable(2); err == nil {
		t.Fatalf("enable of unconnected line succeeded")
	}
	if err := cpu.Connect(1, func(any) {}, nil); err != nil {
		t.Fatal(err)
	}
	if err := cpu.Connect(1, func(any) {}, nil); err == nil {
		t.Fatalf("double connect succeeded")
	}
}

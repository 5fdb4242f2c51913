package ports

import (
	"context"
	"net"
	"os"
	"testing"
	"time"
)

// listen grabs an ephemeral port and returns it with the listener.
func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestInUse(t *testing.T) {
	ln, port := listen(t)
	defer ln.Close()

	if !InUse(port) {
		t.Errorf("InUse(%d) = false, want true while listener is open", port)
	}

	ln.Close()

	if InUse(port) {
		t.Errorf("InUse(%d) = true, want false after listener closed", port)
	}
}

func TestCanBind(t *testing.T) {
	ln, port := listen(t)
	defer ln.Close()

	if CanBind(port) {
		t.Errorf("CanBind(%d) = true, want false while listener is open", port)
	}

	ln.Close()

	if !CanBind(port) {
		t.Errorf("CanBind(%d) = false, want true after listener closed", port)
	}
}

func TestNext(t *testing.T) {
	if got := Next(8000); got != 8001 {
		t.Errorf("Next(8000) = %d, want 8001", got)
	}
}

func TestFirstPID(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   int
	}{
		{"single pid", "1234\n", 1234},
		{"multiple pids", "1234\n5678\n", 1234},
		{"fuser style", "8000/tcp: 4321", 4321},
		{"empty", "", 0},
		{"garbage", "no pids here", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstPID(tt.output); got != tt.want {
				t.Errorf("firstPID(%q) = %d, want %d", tt.output, got, tt.want)
			}
		})
	}
}

func TestWaitFree_AlreadyFree(t *testing.T) {
	ln, port := listen(t)
	ln.Close()

	if err := WaitFree(context.Background(), port, time.Second); err != nil {
		t.Errorf("WaitFree() on free port returned error: %v", err)
	}
}

func TestWaitFree_FreesDuringWait(t *testing.T) {
	ln, port := listen(t)

	go func() {
		time.Sleep(300 * time.Millisecond)
		ln.Close()
	}()

	if err := WaitFree(context.Background(), port, 3*time.Second); err != nil {
		t.Errorf("WaitFree() returned error after port freed: %v", err)
	}
}

func TestWaitFree_Timeout(t *testing.T) {
	ln, port := listen(t)
	defer ln.Close()

	err := WaitFree(context.Background(), port, 500*time.Millisecond)
	if err == nil {
		t.Error("WaitFree() should time out while the port stays bound")
	}
}

func TestAlive_Self(t *testing.T) {
	// The test process itself is always alive.
	if !Alive(os.Getpid()) {
		t.Error("Alive(self) = false, want true")
	}
}

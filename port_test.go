package serial

import (
	"bytes"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func openPTY(t *testing.T, cfg Config) (*os.File, *Port) {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	cfg.Device = slave.Name()
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	port, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })
	return master, port
}

// collect gathers chunks from ReadLoop until want bytes have arrived.
func collect(t *testing.T, chunks <-chan []byte, errs <-chan error, want int) []byte {
	t.Helper()
	var got []byte
	for len(got) < want {
		select {
		case c := <-chunks:
			got = append(got, c...)
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case <-time.After(time.Second):
			t.Fatalf("timeout after %d of %d bytes", len(got), want)
		}
	}
	return got
}

func TestPort_ReadLoopDeliversRawBytes(t *testing.T) {
	master, port := openPTY(t, Config{})

	chunks := make(chan []byte, 16)
	errs := make(chan error, 1)
	go port.ReadLoop(
		func(chunk []byte) { chunks <- chunk },
		func(err error) { errs <- err },
	)

	// No translation of CR or LF, control bytes pass untouched.
	payload := []byte("AB\r\nC\x05D\x06\n")
	_, err := master.Write(payload)
	require.NoError(t, err)

	require.Equal(t, payload, collect(t, chunks, errs, len(payload)))
}

func TestPort_ChatMasterSlave(t *testing.T) {
	master, port := openPTY(t, Config{BaudRate: 9600, DataBits: 7, Parity: ParityEven, StopBits: 2})

	chunks := make(chan []byte, 16)
	errs := make(chan error, 1)
	go port.ReadLoop(
		func(chunk []byte) { chunks <- chunk },
		func(err error) { errs <- err },
	)

	_, err := master.Write([]byte("ping\n"))
	require.NoError(t, err)
	require.Equal(t, "ping\n", string(collect(t, chunks, errs, 5)))

	_, err = port.Write([]byte("pong\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 6)
	n, err := master.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "pong\r\n", string(buf[:n]))
}

func TestPort_ConcurrentWritesDoNotInterleave(t *testing.T) {
	master, port := openPTY(t, Config{})

	const writers, each = 4, 20
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				if _, err := port.Write(bytes.Repeat([]byte{b}, 8)); err != nil {
					t.Error(err)
					return
				}
			}
		}(byte('a' + w))
	}

	total := writers * each * 8
	got := make([]byte, 0, total)
	buf := make([]byte, 512)
	for len(got) < total {
		n, err := master.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	wg.Wait()

	for i := 0; i < total; i += 8 {
		require.Equal(t, bytes.Repeat(got[i:i+1], 8), got[i:i+8], "block at %d", i)
	}
}

func TestPort_Killability(t *testing.T) {
	master, port := openPTY(t, Config{})

	done := make(chan struct{})
	go func() {
		port.ReadLoop(func([]byte) {}, func(error) {})
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := master.Write([]byte("test data\n"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, port.Close())

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for ReadLoop to exit after Close")
	}

	require.NoError(t, port.Close())
	_, err = port.Write([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestPort_CloseDuringTrafficIsSilent(t *testing.T) {
	for i := 0; i < 30; i++ {
		master, port := openPTY(t, Config{})

		stop := make(chan struct{})
		go func() {
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := master.Write([]byte("traffic\n")); err != nil {
					return
				}
			}
		}()

		errs := make(chan error, 1)
		done := make(chan struct{})
		go func() {
			port.ReadLoop(func([]byte) {}, func(err error) { errs <- err })
			close(done)
		}()

		time.Sleep(2 * time.Millisecond)
		require.NoError(t, port.Close())
		<-done
		close(stop)

		select {
		case err := <-errs:
			t.Fatalf("read error reported after Close: %v", err)
		default:
		}
	}
}

func TestPort_ErrorPropagation(t *testing.T) {
	master, port := openPTY(t, Config{})

	errs := make(chan error, 1)
	go port.ReadLoop(
		func([]byte) {},
		func(err error) { errs <- err },
	)

	// Simulate device disconnect by closing master
	require.NoError(t, master.Close())

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for error after device disconnect")
	}
}

func TestPort_WatchModemStopsOnUnsupportedDevice(t *testing.T) {
	_, port := openPTY(t, Config{})

	errs := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		port.WatchModem(10*time.Millisecond, func(ModemLine, bool) {}, func(err error) { errs <- err })
		close(done)
	}()

	// A pty has no modem lines; either the watcher reports that and
	// stops, or it keeps polling until Close.
	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(100 * time.Millisecond):
		require.NoError(t, port.Close())
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WatchModem did not return")
	}
}

func TestOpen_RejectsBadConfig(t *testing.T) {
	_, err := Open(Config{Device: "/dev/null", BaudRate: 12345})
	require.Error(t, err)

	_, err = Open(Config{Device: "/nonexistent/tty", BaudRate: 9600})
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

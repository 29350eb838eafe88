package serial

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by operations on a closed Port.
var ErrClosed = errors.New("serial: port closed")

// Port is a raw, unbuffered Linux serial port. Writes are serialized, so
// it is safe to write from several goroutines while one goroutine runs
// ReadLoop.
type Port struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
	config    Config
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

// Open opens and configures a serial port for raw operation: no echo, no
// line discipline, no output processing, reads return as soon as one byte
// is available.
func Open(cfg Config) (*Port, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	if err := configure(fd, cfg); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	// Turn back into blocking mode now that config is done
	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	// Create self-pipe for killability
	pipeFds := make([]int, 2)
	if err := unix.Pipe2(pipeFds, unix.O_CLOEXEC); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), cfg.Device),
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

func configure(fd int, cfg Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CRTSCTS
	termios.Cflag |= unix.CREAD | unix.CLOCAL

	termios.Cflag |= dataBitsToUnix(cfg.DataBits)

	switch cfg.Parity {
	case ParityEven:
		termios.Cflag |= unix.PARENB
		termios.Iflag |= unix.INPCK
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
		termios.Iflag |= unix.INPCK
	default:
		termios.Iflag &^= unix.INPCK
	}

	if cfg.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch cfg.FlowControl {
	case FlowHardware:
		termios.Cflag |= unix.CRTSCTS
	case FlowSoftware:
		termios.Iflag |= unix.IXON | unix.IXOFF
	}

	// Baud rate
	baud, ok := baudToUnix(cfg.BaudRate)
	if !ok {
		return fmt.Errorf("unsupported baud rate %d", cfg.BaudRate)
	}
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud
	termios.Ispeed = baud
	termios.Ospeed = baud

	// Set VMIN=1, VTIME=0 for immediate reads
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

// Config returns the configuration the port was opened with.
func (p *Port) Config() Config { return p.config }

// Write writes b to the port in full. Concurrent writes never interleave.
func (p *Port) Write(b []byte) (int, error) {
	select {
	case <-p.done:
		return 0, ErrClosed
	default:
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.file.Write(b)
}

// ReadLoop delivers every chunk read from the port to onChunk, in order,
// from the calling goroutine. The slice passed to onChunk is owned by the
// callee. The loop returns after Close; any other read failure is passed
// to onError and ends the loop.
func (p *Port) ReadLoop(onChunk func([]byte), onError func(error)) {
	buf := make([]byte, 4096)
	for {
		// Use poll to wait for data or kill signal
		pfd := []unix.PollFd{
			{Fd: int32(p.fd), Events: unix.POLLIN},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		_, err := unix.Poll(pfd, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			p.reportUnlessClosed(onError, err)
			return
		}
		// Check killability
		select {
		case <-p.done:
			return
		default:
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			return
		}
		if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			n, err := p.file.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				onChunk(chunk)
			}
			if err != nil {
				p.reportUnlessClosed(onError, err)
				return
			}
		}
	}
}

// reportUnlessClosed drops errors caused by a concurrent Close.
func (p *Port) reportUnlessClosed(onError func(error), err error) {
	select {
	case <-p.done:
	default:
		onError(err)
	}
}

// Close closes the serial port and unblocks ReadLoop and WatchModem.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll using self-pipe
		unix.Write(p.pipeW, []byte{1})
		// Wait out any in-flight write before the fd goes away.
		p.writeMu.Lock()
		err = p.file.Close()
		p.writeMu.Unlock()
		unix.Close(p.pipeR)
		unix.Close(p.pipeW)
	})
	return err
}

// Package serial provides a minimal, Linux-only serial port for
// terminal-style use: raw bytes in, raw bytes out, with no line
// discipline in between.
//
// The byte stream is delivered in whatever chunks the driver returns;
// framing, control-byte handling and the liveness probe live in the
// terminal subpackage, and cmd/serialterm ties the two together.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Baud rate, data bits, parity, stop bits and RTS/CTS or XON/XOFF flow control
//   - Chunk-oriented read loop, killable with Close through a self-pipe
//   - Serialized writes, safe from several goroutines
//   - Modem control input polling (CTS, DSR, RI, DCD)
//   - Port enumeration
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	port, err := serial.Open(serial.Config{
//	    Device:   "/dev/ttyUSB0",
//	    BaudRate: 115200,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	go port.ReadLoop(
//	    func(chunk []byte) {
//	        fmt.Printf("Received: %q\n", chunk)
//	    },
//	    func(err error) {
//	        log.Println("Read error:", err)
//	    },
//	)
//
//	if _, err := port.Write([]byte("C,START\r\n")); err != nil {
//	    log.Println("Write failed:", err)
//	}
//
//	// ... to stop reading, call port.Close() from another goroutine
package serial

// Package terminal is the protocol core of a serial line terminal.
//
// Received bytes pass through two stages. Control interception looks for
// the reserved bytes ENQ (0x05) and ACK (0x06): an ENQ is answered with an
// ACK at once, an ACK resolves an outstanding liveness probe. Whatever is
// left goes to a Decoder, which frames the stream into lines using a
// Terminator of zero, one or two bytes, independently of how the bytes
// were chunked on delivery. With no terminator every chunk is passed
// through as-is.
//
// By default a chunk that contains a control byte is not framed at all
// (InterceptChunk); InterceptByte strips the control bytes and frames the
// rest.
//
// Outbound text is split into lines, each terminated and written in order.
// All writes of a Session share one lock.
//
// Typical use goes through a Controller:
//
//	ctl := terminal.NewController(open, observer, terminal.Options{Logger: logger})
//	if _, err := ctl.Configure(terminal.Selection{
//	    Device:     "/dev/ttyUSB0",
//	    BaudRate:   115200,
//	    DataBits:   8,
//	    StopBits:   1,
//	    Terminator: "CR-LF",
//	}); err != nil {
//	    return err
//	}
//	if err := ctl.Connect(); err != nil {
//	    return err
//	}
//	defer ctl.Disconnect()
//	ctl.Send("*IDN?")
//	ctl.Ping()
package terminal

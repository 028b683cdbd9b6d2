package protocol

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ResponseHandler receives asynchronous responses from the firmware.
type ResponseHandler func(cmdID uint16, data *[]byte) error

// HostTransport is the host side of the link: it sends command frames, waits
// for the matching ACK, and surfaces response frames both through an optional
// callback and a channel for synchronous request/response exchanges.
type HostTransport struct {
	port io.ReadWriteCloser

	curSeq uint32 // atomic; sequence of the in-flight command
	synced uint32 // atomic bool

	in *Fifo

	acks      chan Frame
	responses chan Frame

	handler ResponseHandler

	writeMu sync.Mutex

	stop chan struct{}
	done chan struct{}
}

// NewHostTransport starts a transport over port, including its background
// read loop.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:      port,
		curSeq:    SeqDest,
		synced:    1,
		in:        NewFifo(512),
		acks:      make(chan Frame, 1),
		responses: make(chan Frame, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SetResponseHandler registers a callback for asynchronous responses.
func (t *HostTransport) SetResponseHandler(fn ResponseHandler) {
	t.handler = fn
}

// SendCommand sends one command and waits up to two seconds for its ACK.
func (t *HostTransport) SendCommand(cmdID uint16, args func(OutputBuffer)) error {
	return t.SendCommandTimeout(cmdID, args, 2*time.Second)
}

// SendCommandTimeout sends one command and waits for its ACK.
func (t *HostTransport) SendCommandTimeout(cmdID uint16, args func(OutputBuffer), timeout time.Duration) error {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}

	seq := uint8(atomic.LoadUint32(&t.curSeq))
	frame, err := BuildFrame(seq, scratch.Result())
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	_, err = t.port.Write(frame)
	t.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	return t.waitAck(timeout)
}

func (t *HostTransport) waitAck(timeout time.Duration) error {
	select {
	case ack := <-t.acks:
		// The firmware ACKs with the sequence it expects next; for a
		// delivered command that is our sequence advanced by one.
		want := NextSeq(uint8(atomic.LoadUint32(&t.curSeq)))
		if ack.Sequence != want {
			return fmt.Errorf("nak: firmware expects seq %#02x, sent %#02x",
				ack.Sequence, uint8(atomic.LoadUint32(&t.curSeq)))
		}
		atomic.StoreUint32(&t.curSeq, uint32(want))
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("ack timeout after %v", timeout)
	case <-t.stop:
		return fmt.Errorf("transport closed")
	}
}

// ReceiveResponse waits for the next response frame.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (Frame, error) {
	select {
	case f := <-t.responses:
		return f, nil
	case <-time.After(timeout):
		return Frame{}, fmt.Errorf("response timeout after %v", timeout)
	case <-t.stop:
		return Frame{}, fmt.Errorf("transport closed")
	}
}

// Close stops the read loop and closes the port.
func (t *HostTransport) Close() error {
	close(t.stop)
	<-t.done
	return t.port.Close()
}

func (t *HostTransport) readLoop() {
	defer close(t.done)

	buf := make([]byte, 256)
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if err != nil {
			if err == io.EOF {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n > 0 {
			t.in.Write(buf[:n])
			t.drainFrames()
		}
	}
}

func (t *HostTransport) drainFrames() {
	data := t.in.Data()

	for len(data) > 0 {
		if atomic.LoadUint32(&t.synced) == 0 {
			n, found := Resync(data)
			data = data[n:]
			if found {
				atomic.StoreUint32(&t.synced, 1)
			}
			continue
		}

		f, n, status := NextFrame(data)
		data = data[n:]

		switch status {
		case ScanSkip:
			continue
		case ScanIncomplete:
			goto done
		case ScanDesync:
			atomic.StoreUint32(&t.synced, 0)
			continue
		}

		// Frames alias the scan buffer; detach before handing off.
		payload := make([]byte, len(f.Payload))
		copy(payload, f.Payload)
		t.deliver(Frame{Sequence: f.Sequence, Payload: payload})
	}

done:
	if consumed := t.in.Available() - len(data); consumed > 0 {
		t.in.Pop(consumed)
	}
}

func (t *HostTransport) deliver(f Frame) {
	if len(f.Payload) == 0 {
		// Empty payload is an ACK/NAK.
		select {
		case t.acks <- f:
		default:
		}
		return
	}

	if t.handler != nil {
		data := f.Payload
		if cmdID, err := DecodeVLQUint(&data); err == nil {
			_ = t.handler(uint16(cmdID), &data)
		}
	}

	select {
	case t.responses <- f:
	default:
		// Channel full: drop the oldest so state queries stay fresh.
		select {
		case <-t.responses:
		default:
		}
		t.responses <- f
	}
}

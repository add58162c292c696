package capability

import (
	"context"
	"io"
	"net"
	"os"

	"opusrelay/util"
)

// DefaultPreRoll is the amount of PCM buffered before the first write
// to the output: four 32-byte chunks.
const DefaultPreRoll = 4 * 32

// Output copies the stream to W (os.Stdout when nil), holding back the
// first PreRoll bytes so a player starts with some audio queued.
type Output struct {
	W       io.Writer
	PreRoll int
	Logger  *util.Logger
}

// Handle copies until the relay closes the stream or ctx ends.
func (o *Output) Handle(ctx context.Context, conn net.Conn) error {
	w := o.W
	if w == nil {
		w = os.Stdout
	}
	out := &prerollWriter{w: w, threshold: o.PreRoll}
	n, err := util.Pump(ctx, conn, out)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}
	if o.Logger != nil {
		o.Logger.Verbose("received %d bytes of PCM", n)
	}
	return nil
}

// prerollWriter holds output back until threshold bytes have arrived
// and passes writes straight through after that.
type prerollWriter struct {
	w         io.Writer
	threshold int
	buf       []byte
	started   bool
}

func (p *prerollWriter) Write(b []byte) (int, error) {
	if p.started {
		return p.w.Write(b)
	}
	p.buf = append(p.buf, b...)
	if len(p.buf) < p.threshold {
		return len(b), nil
	}
	if err := p.Flush(); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Flush writes whatever is held back and switches to pass-through.
func (p *prerollWriter) Flush() error {
	p.started = true
	if len(p.buf) == 0 {
		return nil
	}
	_, err := p.w.Write(p.buf)
	p.buf = nil
	return err
}

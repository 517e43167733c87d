package device

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/lightnode/internal/pattern"
	"go.bug.st/serial"
)

// port is the part of serial.Port the driver uses.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

type portOpener func(name string, baud int, readTimeout time.Duration) (port, error)

func openSerialPort(name string, baud int, readTimeout time.Duration) (port, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// serialWords is the firmware vocabulary, in the order colors are matched.
var serialWords = []struct {
	word  string
	color pattern.Color
}{
	{"off", pattern.Black},
	{"on", pattern.RGB(255, 255, 255)},
	{"red", pattern.RGB(255, 0, 0)},
	{"green", pattern.RGB(0, 255, 0)},
	{"blue", pattern.RGB(0, 0, 255)},
}

// serialDriver speaks the "<word>:" line protocol of the LED strip firmware.
type serialDriver struct {
	cfg    Config
	open   portOpener
	port   port
	last   string
	buf    []byte
	logger *slog.Logger
}

func newSerial(cfg Config, logger *slog.Logger) *serialDriver {
	return &serialDriver{
		cfg:    cfg,
		open:   openSerialPort,
		buf:    make([]byte, 256),
		logger: logger,
	}
}

func (s *serialDriver) Connect(_ context.Context) error {
	if s.port != nil {
		return nil
	}

	p, err := s.open(s.cfg.Device, s.cfg.Baud, s.cfg.ReadTimeout)
	if err != nil {
		return newError(ErrCodeConnectFailed, fmt.Sprintf("open %s", s.cfg.Device), err)
	}
	s.port = p
	s.last = ""
	s.logger.Info("Serial port opened", "device", s.cfg.Device, "baud", s.cfg.Baud)
	return nil
}

func (s *serialDriver) Send(cmd Command) error {
	if s.port == nil {
		return newError(ErrCodeNotConnected, "serial port not open", nil)
	}

	line := serialLine(cmd)
	if line == s.last {
		return nil
	}

	if _, err := s.port.Write([]byte(line)); err != nil {
		return newError(ErrCodeWriteFailed, fmt.Sprintf("write %q", line), err)
	}
	s.last = line
	return nil
}

func (s *serialDriver) PollIncoming() ([]byte, error) {
	if s.port == nil {
		return nil, newError(ErrCodeNotConnected, "serial port not open", nil)
	}

	n, err := s.port.Read(s.buf)
	if err != nil {
		return nil, newError(ErrCodeReadFailed, "read", err)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, s.buf[:n])
	return out, nil
}

func (s *serialDriver) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.last = ""
	return err
}

// serialLine encodes a command for the firmware. Immediate colors map to the
// nearest word by Lab distance since the strip only knows five states.
func serialLine(cmd Command) string {
	switch cmd.Kind {
	case KindOff:
		return "off:"
	case KindOn:
		return "on:"
	case KindBasic:
		return cmd.Basic.String() + ":"
	default:
		return nearestWord(cmd.Color) + ":"
	}
}

func nearestWord(c pattern.Color) string {
	target := c.Colorful()
	best, bestDist := serialWords[0].word, target.DistanceLab(serialWords[0].color.Colorful())
	for _, w := range serialWords[1:] {
		if d := target.DistanceLab(w.color.Colorful()); d < bestDist {
			best, bestDist = w.word, d
		}
	}
	return best
}

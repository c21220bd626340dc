// Package reference connects to the reference meter that supplies ground
// truth readings for calibration.
package reference

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the reference meter's default baud rate.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the readings channel buffer.
	DefaultBufferSize = 100
	// MaxReading is the largest reading accepted from the meter.
	MaxReading = 9999
)

// Reading is one reference measurement, in the same units as the calibrated
// channel outputs.
type Reading struct {
	Timestamp time.Time
	Value     uint16
}

// Device defines the interface for reference meters (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Readings() <-chan Reading
	IsConnected() bool
}

var _ Device = (*Serial)(nil)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads a reference meter over a serial line.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	readings  chan Reading
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
	closed    bool // readings was closed by a previous session
}

// New creates a Serial reference with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		readings: make(chan Reading, bufSize),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading. After a Close it starts a
// new session with a fresh readings channel.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	if d.closed {
		d.readings = make(chan Reading, d.bufSize)
		d.closed = false
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.conn = port
	d.cancel = cancel
	d.connected = true

	go readLoop(ctx, port, d.readings)

	return nil
}

// Close closes the port. The readings channel is closed once the reader exits.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false
	d.closed = true

	return nil
}

// Readings returns the channel of reference readings of the current session.
func (d *Serial) Readings() <-chan Reading {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readings
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func readLoop(ctx context.Context, r io.Reader, out chan<- Reading) {
	defer close(out)
	scan(ctx, r, out)
}

// scan parses lines from r into out until r is exhausted or ctx is done.
// Malformed lines are logged and skipped; readings are dropped when out is full.
func scan(ctx context.Context, r io.Reader, out chan<- Reading) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reading, err := parseLine(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}

		select {
		case out <- reading:
		case <-ctx.Done():
			return
		default:
			log.Printf("Reference readings channel full, dropping reading")
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Printf("Error reading from serial port: %v", err)
	}
}

// parseLine parses a line from the meter.
// Format: unix_micros,reading
// Example: 1234567890123,4711
func parseLine(line string) (Reading, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Reading{}, fmt.Errorf("invalid line format: expected 2 comma-separated values, got %d", len(parts))
	}

	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	value, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid reading: %w", err)
	}
	if value > MaxReading {
		return Reading{}, fmt.Errorf("reading out of range: %d (max %d)", value, MaxReading)
	}

	return Reading{
		Timestamp: time.UnixMicro(micros),
		Value:     uint16(value),
	}, nil
}

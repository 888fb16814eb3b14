package aggregator

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/GateWise/server/internal/metrics"
)

const (
	CommandUnlock = "UNLOCK"
	CommandLock   = "LOCK"

	DefaultCommandTimeout = 3 * time.Second

	maxCommandLen = 64
)

// CommandSender delivers plaintext commands to door nodes. Each Send opens
// a fresh connection, writes the command and a newline, and closes. There
// is no acknowledgement and no retry.
type CommandSender struct {
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Send delivers command to addr. Failures are returned as *NetworkError;
// a malformed command returns ErrInvalidCommand without dialing.
func (s *CommandSender) Send(ctx context.Context, addr, command string) error {
	command = strings.ToUpper(strings.TrimSpace(command))
	if command == "" || len(command) > maxCommandLen || strings.ContainsAny(command, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, command)
	}

	err := s.send(ctx, strings.TrimSpace(addr), command)
	s.Metrics.CommandSent(command, err)

	log := s.logger().With(zap.String("addr", addr), zap.String("command", command))
	if err != nil {
		log.Warn("door command failed", zap.Error(err))
		return err
	}
	log.Info("door command sent")
	return nil
}

func (s *CommandSender) send(ctx context.Context, addr, command string) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &NetworkError{Op: "dial", Addr: addr, Err: err}
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return &NetworkError{Op: "write", Addr: addr, Err: err}
	}
	return nil
}

func (s *CommandSender) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Package transport provides the remote-command and file-copy primitives the
// engine builds on.
//
// The production implementation shells out to ssh/scp over a shared
// ControlMaster connection, which keeps per-command latency low when the
// store reader issues one command per document. The engine only ever sees
// the Transport interface, so tests substitute an in-memory device.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Transport executes commands on the remote device and moves files to and
// from it. All calls are synchronous; timeouts come from the context.
type Transport interface {
	// Run executes a shell command on the device and returns its stdout.
	Run(ctx context.Context, command string) (string, error)

	// CopyTo recursively copies a local file or directory to a remote path.
	CopyTo(ctx context.Context, localPath, remotePath string) error

	// CopyFrom copies a remote file to a local path.
	CopyFrom(ctx context.Context, remotePath, localPath string) error
}

// SSH is the production Transport backed by the system ssh and scp binaries.
// Open establishes a multiplexed master connection; every subsequent call
// reuses it through the control socket.
type SSH struct {
	addr   string
	socket string
	master *exec.Cmd
}

// NewSSH creates an SSH transport for the given device address using the
// given control socket path.
func NewSSH(addr, socket string) *SSH {
	return &SSH{addr: addr, socket: socket}
}

// target returns the ssh destination string for the device.
func (s *SSH) target() string {
	return "root@" + s.addr
}

// Open starts the ssh master connection and verifies it with a no-op
// command. Returns ErrTransport if the device is unreachable.
func (s *SSH) Open(ctx context.Context) error {
	master := exec.Command("ssh",
		"-o", "ConnectTimeout=3",
		"-M", "-N", "-q",
		"-S", s.socket,
		s.target(),
	)
	if err := master.Start(); err != nil {
		return fmt.Errorf("%w: failed to start ssh master: %v", ErrTransport, err)
	}
	s.master = master

	// The master connects in the background; poll with a cheap command
	// until it answers or the context gives up.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := s.Run(ctx, "/bin/true"); err == nil {
			return nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			s.Close()
			return fmt.Errorf("%w: cannot reach %s, verify that you can ssh into the device manually", ErrTransport, s.addr)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// Close terminates the master connection and removes the control socket.
func (s *SSH) Close() {
	if s.master != nil && s.master.Process != nil {
		_ = s.master.Process.Kill()
		_ = s.master.Wait()
		s.master = nil
	}
	_ = os.Remove(s.socket)
}

// Run executes a command on the device through the control socket.
func (s *SSH) Run(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "ssh", "-S", s.socket, s.target(), command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: remote command failed: %v\nstderr: %s", ErrTransport, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimRight(stdout.String(), "\n"), nil
}

// CopyTo recursively copies a local path to the device.
func (s *SSH) CopyTo(ctx context.Context, localPath, remotePath string) error {
	return s.scp(ctx, localPath, s.target()+":"+remotePath)
}

// CopyFrom copies a remote file to a local path.
func (s *SSH) CopyFrom(ctx context.Context, remotePath, localPath string) error {
	return s.scp(ctx, s.target()+":"+remotePath, localPath)
}

// scp invokes scp -r through the shared control socket.
func (s *SSH) scp(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "scp", "-r", "-q",
		"-o", fmt.Sprintf("ControlPath=%s", s.socket),
		src, dst,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: file copy failed: %v\nstderr: %s", ErrTransport, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

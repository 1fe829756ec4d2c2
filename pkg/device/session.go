package device

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/netscope-network/netscope/pkg/util"
)

// promptRe matches a Cisco exec prompt at the end of output, e.g.
// "RP/0/RP0/CPU0:zwe-r1#" or "usa-r2>". The prompt is the last non-empty
// line once a command has finished.
var promptRe = regexp.MustCompile(`(?m)^[\w.:/()\-@]+[#>]\s*$`)

// readChunk carries one stdout read from the session pump.
type readChunk struct {
	data []byte
	err  error
}

// Session is one interactive CLI session to a device: a pty-backed shell
// over SSH with prompt-delimited command execution. Commands on one session
// are strictly sequential; the pool hands each worker its own session.
type Session struct {
	Device  string
	Dialect Dialect
	Prompt  string

	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser
	reads  chan readChunk
	// pending holds bytes received after the previous command's prompt.
	pending bytes.Buffer
}

// sessionParams collects everything needed to open a device session.
type sessionParams struct {
	device   string
	addr     string // host:port
	dialect  Dialect
	username string
	password string
	timeout  time.Duration
	conn     net.Conn // non-nil when tunneled through the jumphost
}

// openSession establishes the SSH transport, requests a pty, starts the
// shell and waits for the first prompt.
func openSession(p sessionParams) (*Session, error) {
	cfg := &ssh.ClientConfig{
		User: p.username,
		Auth: []ssh.AuthMethod{
			ssh.Password(p.password),
			ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = p.password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         p.timeout,
	}

	var client *ssh.Client
	if p.conn != nil {
		// Tunneled: the jumphost channel is the transport.
		if deadline, ok := connDeadline(p.conn); ok {
			deadline.SetDeadline(time.Now().Add(p.timeout))
			defer deadline.SetDeadline(time.Time{})
		}
		c, chans, reqs, err := ssh.NewClientConn(p.conn, p.addr, cfg)
		if err != nil {
			return nil, classifyConnectError(p.device, err)
		}
		client = ssh.NewClient(c, chans, reqs)
	} else {
		c, err := ssh.Dial("tcp", p.addr, cfg)
		if err != nil {
			return nil, classifyConnectError(p.device, err)
		}
		client = c
	}

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, util.NewConnectionError(p.device, util.ConnTransport, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("vt100", 80, 512, modes); err != nil {
		sess.Close()
		client.Close()
		return nil, util.NewConnectionError(p.device, util.ConnTransport, err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, util.NewConnectionError(p.device, util.ConnTransport, err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, util.NewConnectionError(p.device, util.ConnTransport, err)
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		client.Close()
		return nil, util.NewConnectionError(p.device, util.ConnTransport, err)
	}

	s := &Session{
		Device:  p.device,
		Dialect: p.dialect,
		client:  client,
		sess:    sess,
		stdin:   stdin,
		reads:   make(chan readChunk, 16),
	}
	go s.pump(stdout)

	// Slow platforms print banners before the first prompt; give them the
	// full connect timeout to settle.
	prompt, err := s.waitForPrompt(p.timeout)
	if err != nil {
		s.Close()
		return nil, util.NewConnectionError(p.device, util.ConnTimeout, fmt.Errorf("no prompt: %w", err))
	}
	s.Prompt = prompt

	return s, nil
}

type deadliner interface {
	SetDeadline(time.Time) error
}

func connDeadline(c net.Conn) (deadliner, bool) {
	d, ok := c.(deadliner)
	return d, ok
}

// classifyConnectError maps SSH dial failures onto the connection error
// taxonomy.
func classifyConnectError(device string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "permission denied"):
		return util.NewConnectionError(device, util.ConnAuth, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return util.NewConnectionError(device, util.ConnTimeout, err)
	default:
		return util.NewConnectionError(device, util.ConnTransport, err)
	}
}

// pump moves stdout bytes onto the reads channel until the session ends.
func (s *Session) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			s.reads <- readChunk{data: data}
		}
		if err != nil {
			s.reads <- readChunk{err: err}
			return
		}
	}
}

// waitForPrompt accumulates output until a prompt line appears, returning
// that prompt line.
func (s *Session) waitForPrompt(timeout time.Duration) (string, error) {
	var buf bytes.Buffer
	buf.Write(s.pending.Bytes())
	s.pending.Reset()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if prompt := lastPrompt(buf.Bytes()); prompt != "" {
			return prompt, nil
		}
		select {
		case chunk := <-s.reads:
			if chunk.err != nil {
				return "", chunk.err
			}
			buf.Write(chunk.data)
		case <-timer.C:
			return "", fmt.Errorf("prompt not seen within %s", timeout)
		}
	}
}

// lastPrompt returns the prompt when the buffer currently ends on one.
func lastPrompt(data []byte) string {
	trimmed := bytes.TrimRight(data, " \t")
	lines := bytes.Split(trimmed, []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	last := bytes.TrimRight(lines[len(lines)-1], "\r \t")
	if promptRe.Match(last) {
		return string(last)
	}
	return ""
}

// Run executes one command and returns its output with the echoed command
// and trailing prompt stripped. The timeout covers the full
// send-to-prompt round trip; expiry is a CommandError of kind timeout and
// leaves the session unusable for further commands.
func (s *Session) Run(command string, timeout time.Duration) (string, error) {
	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		return "", util.NewCommandError(s.Device, command, util.ConnTransport, err)
	}

	var buf bytes.Buffer
	buf.Write(s.pending.Bytes())
	s.pending.Reset()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if prompt := lastPrompt(buf.Bytes()); prompt != "" {
			return stripEcho(buf.String(), command, prompt), nil
		}
		select {
		case chunk := <-s.reads:
			if chunk.err != nil {
				return "", util.NewCommandError(s.Device, command, util.ConnTransport, chunk.err)
			}
			buf.Write(chunk.data)
		case <-timer.C:
			return "", util.NewCommandError(s.Device, command, util.ConnTimeout,
				fmt.Errorf("no prompt within %s", timeout))
		}
	}
}

// stripEcho removes the echoed command line from the head of the capture
// and the prompt line from its tail.
func stripEcho(output, command, prompt string) string {
	output = strings.ReplaceAll(output, "\r\n", "\n")

	if idx := strings.LastIndex(output, prompt); idx >= 0 {
		output = output[:idx]
	}

	lines := strings.Split(output, "\n")
	if len(lines) > 0 && strings.Contains(lines[0], command) {
		lines = lines[1:]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
}

// Close tears down the shell and transport and unblocks the stdout pump.
func (s *Session) Close() error {
	if s.sess != nil {
		s.sess.Close()
		s.sess = nil
	}
	var err error
	if s.client != nil {
		err = s.client.Close()
		s.client = nil
	}
	// Drain so the pump's final send never blocks.
	for {
		select {
		case <-s.reads:
		default:
			return err
		}
	}
}

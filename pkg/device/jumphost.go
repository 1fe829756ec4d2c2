package device

import (
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/netscope-network/netscope/pkg/config"
	"github.com/netscope-network/netscope/pkg/util"
)

// jumphostDialTimeout is the transport timeout for the bastion session
// itself; device sessions carry their own shorter connect timeout.
const jumphostDialTimeout = 30 * time.Second

// Jumphost maintains a single shared SSH session to the bastion and
// multiplexes direct-tcpip channels over it, one per device session.
// All operations are serialized by a mutex, so channel creation is
// thread-safe but sequential.
type Jumphost struct {
	src *config.Source

	mu          sync.Mutex
	client      *ssh.Client
	cfg         config.JumphostConfig
	connectedAt time.Time
	channels    int
}

// NewJumphost creates a jumphost manager bound to the config source.
// Configuration changes invalidate the shared session so the next connect
// uses fresh settings.
func NewJumphost(src *config.Source) *Jumphost {
	j := &Jumphost{src: src}
	src.OnInvalidate(func() {
		util.Logger.Info("jumphost config changed, closing shared tunnel")
		j.Close()
	})
	return j
}

// EnsureConnected establishes the bastion session if it is not already
// active. Idempotent: an active session is reused, a dead one is replaced.
func (j *Jumphost) EnsureConnected() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ensureConnectedLocked()
}

func (j *Jumphost) ensureConnectedLocked() error {
	if j.client != nil {
		if j.isActiveLocked() {
			return nil
		}
		util.Logger.Warn("jumphost session expired, reconnecting")
		j.closeLocked()
	}

	cfg := j.src.Current()
	if cfg.Host == "" {
		return util.NewConfigError("jumphost.host", "jumphost enabled but host is empty")
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	sshCfg := &ssh.ClientConfig{
		User: cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
		},
		// Bastion host keys are not distributed with the inventory.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         jumphostDialTimeout,
	}

	util.Logger.Infof("connecting to jumphost %s", addr)
	client, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return util.NewTunnelError(util.TunnelOpConnect, cfg.Host, err)
	}

	j.client = client
	j.cfg = cfg
	j.connectedAt = time.Now()
	j.channels = 0
	util.Logger.Infof("connected to jumphost %s", cfg.Host)
	return nil
}

// isActiveLocked probes the session with a keepalive request.
func (j *Jumphost) isActiveLocked() bool {
	if j.client == nil {
		return false
	}
	_, _, err := j.client.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

// OpenChannel opens a direct-tcpip channel to target through the bastion.
// The returned connection is used as the transport for exactly one device
// SSH session; it becomes invalid when the jumphost closes.
func (j *Jumphost) OpenChannel(targetHost string, targetPort int) (net.Conn, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.ensureConnectedLocked(); err != nil {
		return nil, err
	}

	raddr := &net.TCPAddr{IP: net.ParseIP(targetHost), Port: targetPort}
	if raddr.IP == nil {
		// Hostname targets: resolve on the bastion side via the string form.
		conn, err := j.client.Dial("tcp", net.JoinHostPort(targetHost, fmt.Sprintf("%d", targetPort)))
		if err != nil {
			return nil, util.NewTunnelError(util.TunnelOpChannel, targetHost, err)
		}
		j.channels++
		return conn, nil
	}

	laddr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
	conn, err := j.client.DialTCP("tcp", laddr, raddr)
	if err != nil {
		return nil, util.NewTunnelError(util.TunnelOpChannel, targetHost, err)
	}

	j.channels++
	util.WithDevice(targetHost).Debugf("opened jumphost channel to %s:%d", targetHost, targetPort)
	return conn, nil
}

// ChannelClosed records that a previously opened channel was torn down.
func (j *Jumphost) ChannelClosed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.channels > 0 {
		j.channels--
	}
}

// Close tears down the bastion session. All outstanding channels become
// invalid.
func (j *Jumphost) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closeLocked()
}

func (j *Jumphost) closeLocked() {
	if j.client == nil {
		return
	}
	if !j.connectedAt.IsZero() {
		util.Logger.Infof("closing jumphost session to %s after %s",
			j.cfg.Host, time.Since(j.connectedAt).Round(time.Second))
	}
	j.client.Close()
	j.client = nil
	j.channels = 0
	j.connectedAt = time.Time{}
}

// JumphostStatus describes the jumphost configuration and connection state.
type JumphostStatus struct {
	Enabled        bool   `json:"enabled"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Connected      bool   `json:"connected"`
	ActiveChannels int    `json:"active_channels"`
}

// Status reports the current configuration and whether the shared session
// is alive.
func (j *Jumphost) Status() JumphostStatus {
	cfg := j.src.Current()

	j.mu.Lock()
	defer j.mu.Unlock()
	return JumphostStatus{
		Enabled:        cfg.Enabled,
		Host:           cfg.Host,
		Port:           cfg.Port,
		Username:       cfg.Username,
		Connected:      j.isActiveLocked(),
		ActiveChannels: j.channels,
	}
}

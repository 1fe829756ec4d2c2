// Package device handles SSH connectivity to routers: the shared jumphost
// tunnel, per-device CLI sessions, and the connection pool that owns both.
package device

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/netscope-network/netscope/pkg/config"
	"github.com/netscope-network/netscope/pkg/inventory"
	"github.com/netscope-network/netscope/pkg/util"
)

// ConnectTimeout is the per-device session establishment timeout.
const ConnectTimeout = 10 * time.Second

// Pool manages active device sessions and their jumphost channels.
// When the jumphost is enabled every session MUST ride a tunnel channel;
// there is no direct-connect fallback.
type Pool struct {
	src      *config.Source
	jumphost *Jumphost

	mu       sync.Mutex
	active   map[string]*Session
	channels map[string]net.Conn
}

// NewPool creates a connection pool using the given config source and
// jumphost manager.
func NewPool(src *config.Source, jumphost *Jumphost) *Pool {
	return &Pool{
		src:      src,
		jumphost: jumphost,
		active:   make(map[string]*Session),
		channels: make(map[string]net.Conn),
	}
}

// Connect establishes an SSH session to the device. The jumphost config is
// re-read on every call so persisted changes take effect immediately.
func (p *Pool) Connect(dev inventory.Device, timeout time.Duration) (*Session, error) {
	if timeout == 0 {
		timeout = ConnectTimeout
	}

	jhCfg := p.src.Current()

	creds, err := p.src.Resolve()
	if err != nil {
		return nil, err
	}

	var channel net.Conn
	if jhCfg.Enabled {
		// Jumphost required: a tunnel failure fails the connect outright.
		if err := p.jumphost.EnsureConnected(); err != nil {
			return nil, util.NewConnectionError(dev.Name, util.ConnTransport,
				fmt.Errorf("jumphost required but unavailable: %w", err))
		}
		channel, err = p.jumphost.OpenChannel(dev.Address, dev.EffectivePort())
		if err != nil {
			return nil, util.NewConnectionError(dev.Name, util.ConnTransport,
				fmt.Errorf("jumphost required but channel failed: %w", err))
		}
		util.WithDevice(dev.Name).Infof("routing session via jumphost %s", jhCfg.Host)
	}

	dialect := DetectDialect(dev.Software, dev.Platform)
	util.WithDevice(dev.Name).Debugf("using %s dialect", dialect)

	sess, err := openSession(sessionParams{
		device:   dev.Name,
		addr:     net.JoinHostPort(dev.Address, fmt.Sprintf("%d", dev.EffectivePort())),
		dialect:  dialect,
		username: creds.Username,
		password: creds.Password,
		timeout:  timeout,
		conn:     channel,
	})
	if err != nil {
		if channel != nil {
			channel.Close()
			p.jumphost.ChannelClosed()
		}
		return nil, err
	}

	p.mu.Lock()
	p.active[dev.ID] = sess
	if channel != nil {
		p.channels[dev.ID] = channel
	}
	p.mu.Unlock()

	util.WithDevice(dev.Name).Infof("connected, prompt %q", sess.Prompt)
	return sess, nil
}

// Get returns the active session for a device, or nil.
func (p *Pool) Get(deviceID string) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active[deviceID]
}

// IsConnected reports whether the device has an active session.
func (p *Pool) IsConnected(deviceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[deviceID]
	return ok
}

// Disconnect closes the device session and its jumphost channel.
func (p *Pool) Disconnect(deviceID string) error {
	p.mu.Lock()
	sess := p.active[deviceID]
	channel := p.channels[deviceID]
	delete(p.active, deviceID)
	delete(p.channels, deviceID)
	p.mu.Unlock()

	if sess == nil {
		return util.ErrNotConnected
	}

	err := sess.Close()
	if channel != nil {
		channel.Close()
		p.jumphost.ChannelClosed()
	}
	util.WithDevice(sess.Device).Info("disconnected")
	return err
}

// DisconnectAll closes every session; the jumphost tunnel is closed only
// when no devices remain connected afterwards.
func (p *Pool) DisconnectAll() int {
	p.mu.Lock()
	ids := make([]string, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	count := 0
	for _, id := range ids {
		if err := p.Disconnect(id); err == nil {
			count++
		}
	}

	p.mu.Lock()
	remaining := len(p.active)
	p.mu.Unlock()
	if remaining == 0 {
		p.jumphost.Close()
	}

	return count
}

// ActiveCount returns the number of connected devices.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

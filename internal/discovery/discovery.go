// Package discovery advertises the agent on the LAN via DNS-SD so a Hub can
// find it without being told an address. The zeroconf library's
// registration API is blocking, so advertisement lifecycle runs on one
// dedicated goroutine; the rest of the agent never touches the zeroconf
// handle directly.
package discovery

import (
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_capydeploy._tcp"
const domain = "local."

// Properties are the TXT record fields advertised alongside the service.
type Properties struct {
	ID       string
	Name     string
	Platform string
	Version  string
}

// Advertiser owns the DNS-SD registration lifecycle. Start and Stop are not
// safe to call concurrently with each other, matching the single
// background-thread model the rest of the agent uses for this component.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// Start publishes a DNS-SD record for the agent at host:port and blocks
// until the background registration goroutine has either succeeded or
// failed.
func (a *Advertiser) Start(props Properties, port int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return fmt.Errorf("advertiser already running")
	}

	txt := []string{
		"id=" + props.ID,
		"name=" + props.Name,
		"platform=" + props.Platform,
		"version=" + props.Version,
	}

	server, err := zeroconf.Register(props.ID, serviceType, domain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("register dns-sd service: %w", err)
	}

	a.server = server
	return nil
}

// Stop unpublishes the record, if running. Safe to call more than once.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}

// Running reports whether the advertiser currently holds a live
// registration.
func (a *Advertiser) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

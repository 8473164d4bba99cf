package provider

import (
	"context"
	"net"
)

// HostNetwork reports the first active, non-loopback interface of the host.
// It fills the IP and MAC address and the interface name as SSID; wireless
// details are left empty.
type HostNetwork struct {
	// Interfaces lists the interfaces to inspect; nil means net.Interfaces
	Interfaces func() ([]net.Interface, error)

	// Addrs returns the addresses of an interface; nil means iface.Addrs
	Addrs func(iface net.Interface) ([]net.Addr, error)
}

// Network implements NetworkProvider.
func (h HostNetwork) Network(ctx context.Context) (*Network, error) {
	list := h.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	addrs := h.Addrs
	if addrs == nil {
		addrs = func(iface net.Interface) ([]net.Addr, error) { return iface.Addrs() }
	}

	ifaces, err := list()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		ifaceAddrs, err := addrs(iface)
		if err != nil {
			continue
		}
		for _, addr := range ifaceAddrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
				continue
			}
			return &Network{
				SSID:       iface.Name,
				IPAddress:  ipNet.IP.String(),
				MACAddress: iface.HardwareAddr.String(),
				NetworkID:  iface.Index,
				State:      "CONNECTED",
			}, nil
		}
	}
	return nil, nil
}

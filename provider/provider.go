// Package provider defines the collaborators that contribute device context
// to requests: where the device is and which network it uses. The engine
// merges their output into user.additional.location and
// user.additional.network.
package provider

import (
	"context"
	"strings"

	"brein.evalgo.org/document"
)

// Location is a device position.
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64 // meters
	Speed     float64 // meters per second
}

// Document returns the wire representation.
func (l *Location) Document() document.Document {
	return document.Document{
		"latitude":  l.Latitude,
		"longitude": l.Longitude,
		"accuracy":  l.Accuracy,
		"speed":     l.Speed,
	}
}

// Network describes the network the device is connected to.
type Network struct {
	SSID       string
	BSSID      string
	IPAddress  string
	LinkSpeed  int // Mbps
	MACAddress string
	RSSI       int
	NetworkID  int
	State      string
}

// Document returns the sparse wire representation. Quotes around the SSID
// are removed.
func (n *Network) Document() document.Document {
	doc := document.New()
	document.Merge(doc, map[string]interface{}{
		"ssid":       strings.ReplaceAll(n.SSID, `"`, ""),
		"bssid":      n.BSSID,
		"ipAddress":  n.IPAddress,
		"linkSpeed":  n.LinkSpeed,
		"macAddress": n.MACAddress,
		"rssi":       n.RSSI,
		"networkId":  n.NetworkID,
		"state":      n.State,
	})
	return doc
}

// LocationProvider reports the current device location. A nil Location with
// a nil error means the location is unknown.
type LocationProvider interface {
	Location(ctx context.Context) (*Location, error)
}

// NetworkProvider reports the current network. A nil Network with a nil
// error means the device is not connected.
type NetworkProvider interface {
	Network(ctx context.Context) (*Network, error)
}

// StaticLocation always reports the same location.
type StaticLocation struct {
	Value *Location
}

// Location implements LocationProvider.
func (s StaticLocation) Location(ctx context.Context) (*Location, error) {
	if s.Value == nil {
		return nil, nil
	}
	l := *s.Value
	return &l, nil
}

// StaticNetwork always reports the same network.
type StaticNetwork struct {
	Value *Network
}

// Network implements NetworkProvider.
func (s StaticNetwork) Network(ctx context.Context) (*Network, error) {
	if s.Value == nil {
		return nil, nil
	}
	n := *s.Value
	return &n, nil
}

// LocationFunc adapts a function to LocationProvider.
type LocationFunc func(ctx context.Context) (*Location, error)

// Location implements LocationProvider.
func (f LocationFunc) Location(ctx context.Context) (*Location, error) { return f(ctx) }

// NetworkFunc adapts a function to NetworkProvider.
type NetworkFunc func(ctx context.Context) (*Network, error)

// Network implements NetworkProvider.
func (f NetworkFunc) Network(ctx context.Context) (*Network, error) { return f(ctx) }

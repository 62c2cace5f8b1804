// Package resolve turns host names into the single IPv4 address the
// connector dials.
//
// Only the first IPv4 answer is ever used.  There is no fallback to
// later records and no IPv6 support.
package resolve

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// Resolver looks up the addresses of a host.  *net.Resolver satisfies
// it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// System returns the process-wide resolver.
func System() Resolver { return net.DefaultResolver }

// First4 returns the first IPv4 address for host.  IPv4 literals are
// returned without consulting r.
func First4(ctx context.Context, r Resolver, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if !addr.Is4() {
			return netip.Addr{}, fmt.Errorf("%s is not an IPv4 address", host)
		}
		return addr, nil
	}
	if host == "" {
		return netip.Addr{}, fmt.Errorf("empty host name")
	}

	addrs, err := r.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, err
	}
	for _, a := range addrs {
		if a = a.Unmap(); a.Is4() {
			return a, nil
		}
	}
	return netip.Addr{}, &net.DNSError{Err: "no IPv4 address", Name: host, IsNotFound: true}
}

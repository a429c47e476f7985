// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"net"
	"strconv"
	"strings"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
)

// NewListener listens on a TCP address such as "10.0.0.1:32638".
func NewListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// DetectedHostAddress returns the first non-loopback address of an up
// interface, preferring IPv4.
func DetectedHostAddress() string {
	netInterfaces, err := net.Interfaces()
	if err != nil {
		logger.Info().Msgf("failed to detect net interfaces: %v", err)
		return ""
	}

	if v4Address := selectIP(netInterfaces, true); v4Address != "" {
		return v4Address
	}

	if v6Address := selectIP(netInterfaces, false); v6Address != "" {
		return v6Address
	}

	return "localhost"
}

func selectIP(netInterfaces []net.Interface, v4 bool) string {
	for _, netInterface := range netInterfaces {
		if (netInterface.Flags & net.FlagUp) == 0 {
			continue
		}
		addrs, err := netInterface.Addrs()
		if err != nil {
			logger.Info().Msgf("get interface addresses: %v", err)
		}

		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			isV4 := ipNet.IP.To4() != nil
			switch {
			case v4 && isV4:
				return ipNet.IP.String()
			case !v4 && !isV4 && !ipNet.IP.IsLinkLocalUnicast():
				// link-local addresses need a zone and cannot be dialed by peers
				return ipNet.IP.String()
			}
		}
	}
	return ""
}

func JoinHostPort(host string, port int) string {
	portStr := strconv.Itoa(port)
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		return host + ":" + portStr
	}
	return net.JoinHostPort(host, portStr)
}

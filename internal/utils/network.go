package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

var privateRanges = func() []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		_, subnet, _ := net.ParseCIDR(cidr)
		nets = append(nets, subnet)
	}
	return nets
}()

// GetRealIP returns the client address behind the ferry terminal proxies.
// X-Real-IP wins, then the first public hop of X-Forwarded-For, then gin's ClientIP.
func GetRealIP(c *gin.Context) string {
	if realIP := strings.TrimSpace(c.Request.Header.Get("X-Real-IP")); realIP != "" {
		if ip := net.ParseIP(realIP); ip != nil && !isPrivateIP(ip) {
			return realIP
		}
	}

	if forwarded := c.Request.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for _, hop := range hops {
			hop = strings.TrimSpace(hop)
			if ip := net.ParseIP(hop); ip != nil && !isPrivateIP(ip) && !ip.IsLoopback() {
				return hop
			}
		}
		// all private: the first one is still the closest to the client
		if first := strings.TrimSpace(hops[0]); net.ParseIP(first) != nil {
			return first
		}
	}

	return c.ClientIP()
}

// GetUserAgent returns the User-Agent header, "Unknown" when absent
func GetUserAgent(c *gin.Context) string {
	if ua := c.Request.UserAgent(); ua != "" {
		return ua
	}
	return "Unknown"
}

func isPrivateIP(ip net.IP) bool {
	for _, subnet := range privateRanges {
		if subnet.Contains(ip) {
			return true
		}
	}
	return false
}

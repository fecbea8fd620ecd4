package shoutcast

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

var (
	icyStatus  = []byte("ICY ")
	httpStatus = []byte("HTTP/1.0 ")
)

// NewTransport returns an http.Transport that understands SHOUTcast v1
// "ICY 200 OK" status lines. Dialing and response headers are bounded by
// connectTimeout; the body is left untimed.
func NewTransport(connectTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: connectTimeout}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			c, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &icyConn{Conn: c}, nil
		},
		ResponseHeaderTimeout: connectTimeout,
		TLSHandshakeTimeout:   connectTimeout,
		DisableCompression:    true,
		MaxIdleConnsPerHost:   -1,
	}
}

// icyConn rewrites an "ICY " status line prefix into "HTTP/1.0 " on the first
// read so net/http can parse the response.
type icyConn struct {
	net.Conn
	checked bool
	pending []byte
}

func (c *icyConn) Read(p []byte) (int, error) {
	if !c.checked {
		c.checked = true

		head := make([]byte, len(icyStatus))
		n, err := io.ReadFull(c.Conn, head)
		head = head[:n]
		if n == 0 {
			return 0, err
		}
		if bytes.Equal(head, icyStatus) {
			head = append([]byte(nil), httpStatus...)
		}
		c.pending = head
	}

	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}

	return c.Conn.Read(p)
}

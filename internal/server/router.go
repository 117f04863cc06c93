// Package server exposes a kv.Store over a line-oriented TCP protocol so
// several clients can share one durable store through the liquexd daemon.
package server

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/liquex-dev/liquex/pkg/kv"
)

type Router struct {
	store kv.Store
	cert  *tls.Certificate

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

func NewRouter(s kv.Store) *Router {
	return &Router{store: s}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Stop closes the listener; in-flight connections finish on their own.
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.listener != nil {
		r.listener.Close()
	}
}

// Listen starts the TCP server
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.listener = listener
	r.mu.Unlock()
	defer listener.Close()

	semaphore := make(chan struct{}, 100) // Max 100 concurrent connections

	for {
		conn, err := listener.Accept()
		if err != nil {
			r.mu.Lock()
			stopped := r.stopped
			r.mu.Unlock()
			if stopped {
				return nil
			}
			continue
		}

		// Aggressive timeouts for light traffic to prevent resource exhaustion
		conn.SetDeadline(time.Now().Add(5 * time.Minute))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.handleConnection(c)
		}(conn)
	}
}

func (r *Router) handleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)

	for {
		// Set a deadline for the next command
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		line, err := reader.ReadString('\n')
		if err != nil {
			return // Connection closed or timeout
		}

		line = strings.TrimSpace(line)
		parts := strings.Fields(line)
		if len(parts) < 1 {
			continue
		}

		command := strings.ToUpper(parts[0])

		switch command {
		case "GET":
			if len(parts) < 2 {
				continue
			}
			doc, err := r.store.GetCollection(parts[1])
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK", string(doc))
			}

		case "PUT":
			// The document is everything after the collection name,
			// taken verbatim: re-tokenizing it would collapse runs of
			// whitespace inside string values.
			seg := strings.SplitN(line, " ", 3)
			if len(seg) < 3 {
				continue
			}
			doc := seg[2]
			if !json.Valid([]byte(doc)) {
				fmt.Fprintln(conn, "ERR invalid json document")
				continue
			}
			if err := r.store.PutCollection(seg[1], []byte(doc)); err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "DEL":
			if len(parts) < 2 {
				continue
			}
			if err := r.store.DeleteCollection(parts[1]); err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "LIST":
			names, err := r.store.Collections()
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
				continue
			}
			if names == nil {
				names = []string{}
			}
			res, err := json.Marshal(names)
			if err != nil {
				fmt.Fprintln(conn, "ERR internal error")
			} else {
				fmt.Fprintln(conn, "OK", string(res))
			}

		case "PING":
			fmt.Fprintln(conn, "PONG")

		case "QUIT":
			return
		}
	}
}

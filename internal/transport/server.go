// Package transport is the line-oriented TCP front door: each connection
// carries one JSON request object per line and gets one JSON response
// object back on the same line, synchronously, for as long as the client
// stays connected.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"exstack/internal/exchange"
)

// maxLineSize bounds a single framed request so a malformed or hostile
// client can't grow the scanner's buffer without limit.
const maxLineSize = 64 * 1024

// Server accepts TCP connections and dispatches each framed line to the
// exchange core, one goroutine per connection.
type Server struct {
	address  string
	port     int
	exchange *exchange.Exchange
	cancel   context.CancelFunc
}

// New wires a server that dispatches onto exch.
func New(address string, port int, exch *exchange.Exchange) *Server {
	return &Server{address: address, port: port, exchange: exch}
}

// Shutdown stops accepting and lets in-flight connections drain.
func (s *Server) Shutdown() {
	log.Info().Msg("transport server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run listens until ctx is cancelled, handing each accepted connection to
// its own goroutine tracked by a tomb, so a hung read in one session
// doesn't block the accept loop.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("error closing listener")
		}
	}()

	t.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})

	log.Info().Str("address", listener.Addr().String()).Msg("exchange listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Error().Err(err).Msg("error accepting connection")
				continue
			}
		}

		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")
		t.Go(func() error {
			s.handleConnection(t, conn)
			return nil
		})
	}
}

// handleConnection owns conn for its lifetime: it scans newline-delimited
// JSON requests, dispatches each synchronously to the exchange and writes
// back the JSON response on the same line, until the client disconnects
// or the tomb is dying.
func (s *Server) handleConnection(t *tomb.Tomb, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("error closing connection")
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLineSize)

	for scanner.Scan() {
		select {
		case <-t.Dying():
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req exchange.Request
		if err := json.Unmarshal(line, &req); err != nil {
			log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("malformed request")
			writeResponse(conn, exchange.Response{ResponseType: "unknown", ResponseCode: 1, Msg: "malformed request"})
			continue
		}

		resp := s.exchange.Recv(req)
		writeResponse(conn, resp)
	}

	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("connection read error")
	}
}

func writeResponse(conn net.Conn, resp exchange.Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("error marshaling response")
		return
	}
	payload = append(payload, '\n')
	if _, err := conn.Write(payload); err != nil {
		log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("error writing response")
	}
}

package mcengine

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gstoney/mcengine/packet"
	"github.com/rs/zerolog"
)

func newTestServer() *Server {
	nop := zerolog.Nop()
	return &Server{Logger: &nop}
}

// dial starts srv on one end of a pipe and returns a client on the other,
// along with the eventual result of ServeConn.
func dial(t *testing.T, srv *Server, protocol int32) (*Client, <-chan error) {
	t.Helper()
	sc, cc := net.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ServeConn(context.Background(), sc)
	}()
	t.Cleanup(func() { cc.Close() })
	return NewClient(cc, protocol, nil), errc
}

func wait(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("connection did not finish")
		return nil
	}
}

type sessionRecorder struct {
	Handler
	joined chan ConnID
	left   chan error
}

func (r *sessionRecorder) Join(c *Conn) error {
	if err := c.Send(&packet.ServerChatMessage{Message: ChatText("welcome " + c.Name())}); err != nil {
		return err
	}
	r.joined <- c.ID()
	return nil
}

func (r *sessionRecorder) Leave(id ConnID, err error) {
	r.left <- err
}

func newSessionRecorder(inbound chan Inbound) *sessionRecorder {
	return &sessionRecorder{
		Handler: ChannelHandler(inbound),
		joined:  make(chan ConnID, 1),
		left:    make(chan error, 1),
	}
}

func TestConn_Status(t *testing.T) {
	srv := newTestServer()
	cli, errc := dial(t, srv, packet.Protocol1_15)

	if err := cli.Handshake("localhost", 25565, packet.NextStatus); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	doc, _, err := cli.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	if doc.Version.Protocol != packet.Protocol1_15 || doc.Version.Name != "1.15" {
		t.Errorf("version: got %+v", doc.Version)
	}
	if doc.Players.Max != DefaultMaxPlayers || doc.Players.Online != 0 {
		t.Errorf("players: got %+v", doc.Players)
	}
	if doc.Description.Text != DefaultDescription {
		t.Errorf("description: got %q", doc.Description.Text)
	}

	if err := wait(t, errc); err != nil {
		t.Errorf("ServeConn: %v", err)
	}
}

func TestConn_StatusUnsupportedVersion(t *testing.T) {
	srv := newTestServer()
	srv.Status = StatusFunc(func(info StatusInfo) StatusDocument {
		return StatusDocument{Description: StatusDescription{Text: "custom"}}
	})
	cli, errc := dial(t, srv, 340)

	if err := cli.Handshake("localhost", 25565, packet.NextStatus); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	doc, _, err := cli.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if doc.Version.Protocol != packet.Protocol1_15_2 {
		t.Errorf("an unsupported client should be shown the canonical version, got %+v", doc.Version)
	}
	if doc.Description.Text != "custom" {
		t.Errorf("description: got %q", doc.Description.Text)
	}
	wait(t, errc)
}

func TestConn_LoginAndPlay(t *testing.T) {
	inbound := make(chan Inbound, 4)
	rec := newSessionRecorder(inbound)

	srv := newTestServer()
	srv.Handler = rec
	cli, errc := dial(t, srv, packet.Protocol1_15_2)

	if err := cli.Handshake("localhost", 25565, packet.NextLogin); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	success, err := cli.Login("Steve")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if success.Username != "Steve" || success.UUID != OfflineUUID("Steve") {
		t.Errorf("LoginSuccess: got %+v", success)
	}
	if cli.State() != packet.Play {
		t.Errorf("client state: got %s", cli.State())
	}

	id := <-rec.joined
	p, err := cli.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if msg, ok := p.(*packet.ServerChatMessage); !ok || !strings.Contains(msg.Message, "welcome Steve") {
		t.Errorf("expected the welcome message, got %#v", p)
	}

	c, ok := srv.Conn(id)
	if !ok {
		t.Fatal("Conn: not found")
	}
	if c.State() != packet.Play || c.Name() != "Steve" {
		t.Errorf("server conn: state %s name %q", c.State(), c.Name())
	}
	if host, port := c.ServerAddr(); host != "localhost" || port != 25565 {
		t.Errorf("ServerAddr: got %s:%d", host, port)
	}
	if srv.PlayerCount() != 1 {
		t.Errorf("PlayerCount: got %d", srv.PlayerCount())
	}

	if in := <-inbound; in.Packet.Kind() != packet.KindLoginStart {
		t.Errorf("first inbound packet: got %s, want LoginStart", in.Packet.Kind())
	}

	before := c.LastActivity()
	if err := cli.WritePacket(&packet.ChatMessage{Message: "hello"}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	in := <-inbound
	if in.Conn != id {
		t.Errorf("inbound conn: got %d, want %d", in.Conn, id)
	}
	if chat, ok := in.Packet.(*packet.ChatMessage); !ok || chat.Message != "hello" {
		t.Errorf("inbound packet: got %#v", in.Packet)
	}
	if c.LastActivity().Before(before) {
		t.Error("LastActivity went backwards")
	}

	if err := srv.Send(id, &packet.KeepAlive{Payload: 99}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	p, err = cli.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if ka, ok := p.(*packet.KeepAlive); !ok || ka.Payload != 99 {
		t.Errorf("expected KeepAlive 99, got %#v", p)
	}

	cli.Close()
	if err := wait(t, errc); err != nil {
		t.Errorf("ServeConn after client hangup: %v", err)
	}
	if err := <-rec.left; !errors.Is(err, io.EOF) {
		t.Errorf("Leave: got %v, want io.EOF", err)
	}
	if _, ok := srv.Conn(id); ok {
		t.Error("conn still tracked after close")
	}
}

func TestConn_EncryptedCompressedLogin(t *testing.T) {
	inbound := make(chan Inbound, 4)

	srv := newTestServer()
	srv.Handler = ChannelHandler(inbound)
	srv.Login = LoginConfig{Encryption: true, Compression: true, CompressionThreshold: 16}
	cli, errc := dial(t, srv, packet.Protocol1_15_1)

	if err := cli.Handshake("localhost", 25565, packet.NextLogin); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if _, err := cli.Login("Alex"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !cli.Transport().Encrypted() {
		t.Error("client transport is not encrypted")
	}
	if th := cli.Transport().CompressionThreshold(); th != 16 {
		t.Errorf("client threshold: got %d, want 16", th)
	}

	for _, want := range []packet.Kind{packet.KindLoginStart, packet.KindEncryptionResponse} {
		if in := <-inbound; in.Packet.Kind() != want {
			t.Errorf("login packet: got %s, want %s", in.Packet.Kind(), want)
		}
	}

	for _, msg := range []string{"hi", strings.Repeat("long chat line ", 12)} {
		if err := cli.WritePacket(&packet.ChatMessage{Message: msg}); err != nil {
			t.Fatalf("WritePacket: %v", err)
		}
		in := <-inbound
		if chat, ok := in.Packet.(*packet.ChatMessage); !ok || chat.Message != msg {
			t.Errorf("inbound packet: got %#v", in.Packet)
		}
	}

	cli.Close()
	if err := wait(t, errc); err != nil {
		t.Errorf("ServeConn: %v", err)
	}
}

func TestConn_UnsupportedVersion(t *testing.T) {
	srv := newTestServer()
	cli, errc := dial(t, srv, 340)

	if err := cli.Handshake("localhost", 25565, packet.NextLogin); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	_, err := cli.Login("Steve")
	if err == nil || !strings.Contains(err.Error(), "Unsupported protocol version 340") {
		t.Errorf("Login: got %v, want a disconnect naming the version", err)
	}
	if err := wait(t, errc); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("ServeConn: got %v, want ErrUnsupportedVersion", err)
	}
}

func TestConn_ProtocolViolations(t *testing.T) {
	testCases := []struct {
		desc      string
		run       func(cli *Client) error
		expectErr error
	}{
		{
			desc: "Play packet before LoginSuccess",
			run: func(cli *Client) error {
				if err := cli.Handshake("localhost", 25565, packet.NextLogin); err != nil {
					return err
				}
				cli.SetState(packet.Play)
				return cli.WritePacket(&packet.ChatMessage{Message: "too early"})
			},
			expectErr: packet.ErrUnknownPacket,
		},
		{
			desc: "Invalid next state",
			run: func(cli *Client) error {
				return cli.Handshake("localhost", 25565, 3)
			},
			expectErr: ErrInvalidNextState,
		},
		{
			desc: "Username too long",
			run: func(cli *Client) error {
				if err := cli.Handshake("localhost", 25565, packet.NextLogin); err != nil {
					return err
				}
				return cli.WritePacket(&packet.LoginStart{Name: strings.Repeat("x", 17)})
			},
			expectErr: ErrInvalidUsername,
		},
		{
			desc: "Zero length frame",
			run: func(cli *Client) error {
				_, err := cli.nc.Write([]byte{0x00})
				return err
			},
			expectErr: ErrInvalidFrameLength,
		},
		{
			desc: "Second status request",
			run: func(cli *Client) error {
				if err := cli.Handshake("localhost", 25565, packet.NextStatus); err != nil {
					return err
				}
				if err := cli.WritePacket(&packet.StatusRequest{}); err != nil {
					return err
				}
				if _, err := cli.ReadPacket(); err != nil {
					return err
				}
				return cli.WritePacket(&packet.StatusRequest{})
			},
			expectErr: ErrUnexpectedPacket,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cli, errc := dial(t, newTestServer(), packet.Protocol1_15_2)
			if err := tC.run(cli); err != nil {
				t.Fatalf("client: %v", err)
			}

			err := wait(t, errc)
			if !errors.Is(err, packet.ErrMalformedPacket) {
				t.Errorf("ServeConn: got %v, want a malformed packet error", err)
			}
			if !errors.Is(err, tC.expectErr) {
				t.Errorf("ServeConn: got %v, want %v", err, tC.expectErr)
			}
		})
	}
}

// recordKinds returns a handler that reports the kind of every packet it is
// given on the returned channel.
func recordKinds() (Handler, <-chan packet.Kind) {
	kinds := make(chan packet.Kind, 16)
	return HandlerFunc(func(_ ConnID, p packet.Packet) error {
		kinds <- p.Kind()
		return nil
	}), kinds
}

func drainKinds(kinds <-chan packet.Kind) []packet.Kind {
	var got []packet.Kind
	for {
		select {
		case k := <-kinds:
			got = append(got, k)
		default:
			return got
		}
	}
}

func TestConn_HandlerSeesEveryState(t *testing.T) {
	testCases := []struct {
		desc   string
		config LoginConfig
		run    func(cli *Client) error
		want   []packet.Kind
	}{
		{
			desc: "Status",
			run: func(cli *Client) error {
				if err := cli.Handshake("localhost", 25565, packet.NextStatus); err != nil {
					return err
				}
				_, _, err := cli.Status()
				return err
			},
			want: []packet.Kind{packet.KindStatusRequest, packet.KindStatusPing},
		},
		{
			desc:   "Login and Play",
			config: LoginConfig{Encryption: true},
			run: func(cli *Client) error {
				if err := cli.Handshake("localhost", 25565, packet.NextLogin); err != nil {
					return err
				}
				if _, err := cli.Login("Alice"); err != nil {
					return err
				}
				if err := cli.WritePacket(&packet.ChatMessage{Message: "hi"}); err != nil {
					return err
				}
				return cli.Close()
			},
			want: []packet.Kind{packet.KindLoginStart, packet.KindEncryptionResponse, packet.KindChatMessage},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			h, kinds := recordKinds()
			srv := newTestServer()
			srv.Handler = h
			srv.Login = tC.config
			cli, errc := dial(t, srv, packet.Protocol1_15_2)

			if err := tC.run(cli); err != nil {
				t.Fatalf("client: %v", err)
			}
			if err := wait(t, errc); err != nil {
				t.Fatalf("ServeConn: %v", err)
			}

			got := drainKinds(kinds)
			if len(got) != len(tC.want) {
				t.Fatalf("handler saw %v, want %v", got, tC.want)
			}
			for i := range got {
				if got[i] != tC.want[i] {
					t.Errorf("packet[%d]: got %s, want %s", i, got[i], tC.want[i])
				}
			}
		})
	}
}

func TestConn_HandlerErrorCloses(t *testing.T) {
	errBoom := errors.New("boom")
	srv := newTestServer()
	srv.Handler = HandlerFunc(func(_ ConnID, p packet.Packet) error {
		if _, ok := p.(*packet.KeepAlive); ok {
			return errBoom
		}
		return nil
	})
	cli, errc := dial(t, srv, packet.Protocol1_15_2)

	if err := cli.Handshake("localhost", 25565, packet.NextLogin); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if _, err := cli.Login("Steve"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := cli.WritePacket(&packet.KeepAlive{Payload: 1}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if err := wait(t, errc); !errors.Is(err, errBoom) {
		t.Errorf("ServeConn: got %v, want errBoom", err)
	}
}

func TestConn_HandlerErrorDuringLogin(t *testing.T) {
	errBoom := errors.New("boom")
	srv := newTestServer()
	srv.Handler = HandlerFunc(func(ConnID, packet.Packet) error { return errBoom })
	cli, errc := dial(t, srv, packet.Protocol1_15_2)

	if err := cli.Handshake("localhost", 25565, packet.NextLogin); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if err := cli.WritePacket(&packet.LoginStart{Name: "Steve"}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if err := wait(t, errc); !errors.Is(err, errBoom) {
		t.Errorf("ServeConn: got %v, want errBoom", err)
	}
	if _, err := cli.ReadPacket(); err == nil {
		t.Error("LoginSuccess sent after the handler rejected LoginStart")
	}
}

func TestConn_LegacyPing(t *testing.T) {
	testCases := []struct {
		desc  string
		req   []byte
		proto string
	}{
		{"1.4 to 1.6", []byte{0xFE, 0x01}, "578"},
		{"1.6 with plugin message", []byte{0xFE, 0x01, 0xFA, 0x00, 0x0B}, "578"},
		{"Beta", []byte{0xFE}, ""},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cli, errc := dial(t, newTestServer(), 0)
			if _, err := cli.nc.Write(tC.req); err != nil {
				t.Fatalf("Write: %v", err)
			}
			reply, err := io.ReadAll(cli.nc)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			fields, err := parseLegacyPing(reply)
			if err != nil {
				t.Fatalf("parseLegacyPing: %v", err)
			}
			if fields[0] != tC.proto || fields[2] != DefaultDescription || fields[4] != "20" {
				t.Errorf("got %q", fields)
			}
			if err := wait(t, errc); err != nil {
				t.Errorf("ServeConn: %v", err)
			}
		})
	}
}

// TestConn_LongServerAddress sends a Handshake frame of exactly 254 bytes,
// whose length prefix 0xFE 0x01 matches the start of a legacy ping.
func TestConn_LongServerAddress(t *testing.T) {
	cli, errc := dial(t, newTestServer(), packet.Protocol1_15_2)

	host := strings.Repeat("a", 246)
	if err := cli.Handshake(host, 25565, packet.NextStatus); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	doc, _, err := cli.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if doc.Version.Protocol != packet.Protocol1_15_2 {
		t.Errorf("version: got %+v", doc.Version)
	}
	if err := wait(t, errc); err != nil {
		t.Errorf("ServeConn: %v", err)
	}
}

func TestConn_SendQueue(t *testing.T) {
	srv := newTestServer()
	srv.QueueSize = 1
	srv.init()

	sc, cc := net.Pipe()
	defer cc.Close()
	c := srv.newConn(sc)

	if err := c.Send(&packet.KeepAlive{}); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Send before Play: got %v, want ErrNotPlaying", err)
	}
	c.setState(packet.Play)
	if err := c.Send(&packet.KeepAlive{}); err != nil {
		t.Errorf("Send: %v", err)
	}
	if err := c.Send(&packet.KeepAlive{}); !errors.Is(err, ErrSlowConsumer) {
		t.Errorf("Send on a full queue: got %v, want ErrSlowConsumer", err)
	}

	c.Close()
	if err := c.Send(&packet.KeepAlive{}); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Send after Close: got %v, want ErrConnClosed", err)
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done is not closed")
	}
}

func TestServer_Broadcast(t *testing.T) {
	srv := newTestServer()
	srv.QueueSize = 1
	srv.init()

	var conns []*Conn
	for i := 0; i < 2; i++ {
		sc, cc := net.Pipe()
		defer cc.Close()
		c := srv.newConn(sc)
		c.setState(packet.Play)
		srv.conns[c.ID()] = c
		conns = append(conns, c)
	}
	// a connection still logging in is not a broadcast target
	sc, cc := net.Pipe()
	defer cc.Close()
	pending := srv.newConn(sc)
	srv.conns[pending.ID()] = pending

	if n := srv.Broadcast(&packet.TimeUpdate{}); n != 2 {
		t.Errorf("Broadcast: got %d, want 2", n)
	}
	if n := srv.Broadcast(&packet.TimeUpdate{}); n != 0 {
		t.Errorf("Broadcast to full queues: got %d, want 0", n)
	}
	if err := srv.Send(ConnID(1000), &packet.TimeUpdate{}); !errors.Is(err, ErrNoConn) {
		t.Errorf("Send to unknown id: got %v, want ErrNoConn", err)
	}

	srv.Close()
	for _, c := range append(conns, pending) {
		select {
		case <-c.Done():
		default:
			t.Errorf("conn %d still open after Server.Close", c.ID())
		}
	}
}

func TestServer_Serve(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("listen: %v", err)
	}
	addr := l.Addr().String()

	rec := newSessionRecorder(make(chan Inbound, 8))
	srv := newTestServer()
	srv.Handler = rec
	srv.Status = StaticStatus{Description: "test server", MaxPlayers: 5}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, l) }()

	qctx, qcancel := context.WithTimeout(ctx, 5*time.Second)
	defer qcancel()

	nc, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer nc.Close()
	player := NewClient(nc, packet.Protocol1_15_2, nil)
	if err := player.Handshake("127.0.0.1", 25565, packet.NextLogin); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if _, err := player.Login("Notch"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	<-rec.joined

	doc, _, err := QueryStatus(qctx, addr, packet.Protocol1_15_2)
	if err != nil {
		t.Fatalf("QueryStatus: %v", err)
	}
	if doc.Players.Online != 1 || doc.Players.Max != 5 || doc.Description.Text != "test server" {
		t.Errorf("status: got %+v", doc)
	}
	if len(doc.Players.Sample) != 1 || doc.Players.Sample[0].Name != "Notch" {
		t.Errorf("sample: got %+v", doc.Players.Sample)
	}
	if doc.Players.Sample[0].ID != OfflineUUID("Notch").String() {
		t.Errorf("sample id: got %s", doc.Players.Sample[0].ID)
	}

	fields, err := QueryLegacyStatus(qctx, addr)
	if err != nil {
		t.Fatalf("QueryLegacyStatus: %v", err)
	}
	if fields[2] != "test server" || fields[3] != "1" || fields[4] != "5" {
		t.Errorf("legacy status: got %q", fields)
	}

	cancel()
	select {
	case err := <-serveErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve: got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if err := srv.Serve(context.Background(), l); !errors.Is(err, ErrServerClosed) {
		t.Errorf("Serve on a closed listener: got %v", err)
	}
}

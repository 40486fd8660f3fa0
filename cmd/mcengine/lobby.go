package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gstoney/mcengine"
	"github.com/gstoney/mcengine/internal/logging"
	"github.com/gstoney/mcengine/packet"
	"github.com/rs/zerolog"
)

const (
	keepAliveInterval = 10 * time.Second
	keepAliveTimeout  = 30 * time.Second
)

// lobby is the built-in session handler: it spawns every player on an empty
// world, keeps the tab list in sync, relays chat and keeps connections alive.
type lobby struct {
	srv      *mcengine.Server
	log      zerolog.Logger
	entityID atomic.Int32

	mu      sync.Mutex
	players map[mcengine.ConnID]packet.PlayerInfoEntry
}

func newLobby(srv *mcengine.Server) *lobby {
	return &lobby{
		srv:     srv,
		log:     logging.Component("lobby"),
		players: make(map[mcengine.ConnID]packet.PlayerInfoEntry),
	}
}

func (l *lobby) Join(c *mcengine.Conn) error {
	eid := l.entityID.Add(1)

	spawn := []packet.Packet{
		&packet.JoinGame{
			EntityID:     eid,
			Gamemode:     1,
			MaxPlayers:   0,
			LevelType:    "flat",
			ViewDistance: 8,
		},
		&packet.ServerDifficulty{Difficulty: 0},
		&packet.PlayerAbilities{
			Flags:       packet.AbilityAllowFlying | packet.AbilityCreative,
			FlyingSpeed: 0.05,
			FOVModifier: 0.1,
		},
		&packet.SpawnPosition{Location: packet.Position{X: 0, Y: 64, Z: 0}},
		&packet.PlayerPositionAndLook{X: 0.5, Y: 64, Z: 0.5, TeleportID: 1},
	}
	for _, p := range spawn {
		if err := c.Send(p); err != nil {
			return err
		}
	}

	self := packet.PlayerInfoEntry{UUID: c.UUID(), Name: c.Name(), Gamemode: 1}

	l.mu.Lock()
	others := make([]packet.PlayerInfoEntry, 0, len(l.players))
	for _, e := range l.players {
		others = append(others, e)
	}
	l.players[c.ID()] = self
	l.mu.Unlock()

	if len(others) > 0 {
		if err := c.Send(&packet.PlayerInfo{Action: packet.PlayerInfoAdd, Entries: others}); err != nil {
			return err
		}
	}
	l.srv.Broadcast(&packet.PlayerInfo{
		Action:  packet.PlayerInfoAdd,
		Entries: []packet.PlayerInfoEntry{self},
	})
	l.announce(c.Name() + " joined the game")
	return nil
}

func (l *lobby) Leave(id mcengine.ConnID, err error) {
	l.mu.Lock()
	e, ok := l.players[id]
	delete(l.players, id)
	l.mu.Unlock()

	l.log.Debug().Uint64("conn", uint64(id)).AnErr("cause", err).Msg("left")
	if !ok {
		return
	}
	l.srv.Broadcast(&packet.PlayerInfo{
		Action:  packet.PlayerInfoRemove,
		Entries: []packet.PlayerInfoEntry{{UUID: e.UUID}},
	})
	l.announce(e.Name + " left the game")
}

func (l *lobby) HandlePacket(id mcengine.ConnID, p packet.Packet) error {
	switch p := p.(type) {
	case *packet.ChatMessage:
		c, ok := l.srv.Conn(id)
		if !ok {
			return nil
		}
		l.announce("<" + c.Name() + "> " + p.Message)
	case *packet.KeepAlive:
		// LastActivity already moved forward
	case *packet.PluginMessage:
		l.log.Debug().Str("channel", p.Channel).Int("len", len(p.Data)).Msg("plugin message")
	}
	return nil
}

func (l *lobby) announce(text string) {
	l.srv.Broadcast(&packet.ServerChatMessage{
		Message:  mcengine.ChatText(text),
		Position: packet.ChatPositionSystem,
	})
}

// keepAlive pings every player and drops the ones that have gone quiet.
func (l *lobby) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, c := range l.srv.Conns() {
				if now.Sub(c.LastActivity()) > keepAliveTimeout {
					l.log.Info().Str("player", c.Name()).Msg("timed out")
					c.Close()
					continue
				}
				c.Send(&packet.KeepAlive{Payload: now.UnixMilli()})
			}
		}
	}
}

package packet

import (
	"errors"
	"fmt"
	"io"
)

type JoinGame struct {
	EntityID            int32
	Gamemode            byte
	Dimension           int32
	HashedSeed          int64
	MaxPlayers          byte
	LevelType           string
	ViewDistance        int32
	ReducedDebugInfo    bool
	EnableRespawnScreen bool
}

func (p *JoinGame) Kind() Kind { return KindJoinGame }

func (p *JoinGame) Schema() Schema {
	return Schema{
		Bind("entity_id", &p.EntityID, IntCodec),
		Bind("gamemode", &p.Gamemode, UnsignedByteCodec),
		Bind("dimension", &p.Dimension, IntCodec),
		Bind("hashed_seed", &p.HashedSeed, LongCodec),
		Bind("max_players", &p.MaxPlayers, UnsignedByteCodec),
		Bind("level_type", &p.LevelType, StringCodec),
		Bind("view_distance", &p.ViewDistance, VarIntCodec),
		Bind("reduced_debug_info", &p.ReducedDebugInfo, BooleanCodec),
		Bind("enable_respawn_screen", &p.EnableRespawnScreen, BooleanCodec),
	}
}

// KeepAlive is used in both directions; the client echoes the payload.
type KeepAlive struct {
	Payload int64
}

func (p *KeepAlive) Kind() Kind { return KindKeepAlive }

func (p *KeepAlive) Schema() Schema {
	return Schema{
		Bind("keep_alive_id", &p.Payload, LongCodec),
	}
}

// ChatMessage is what the client typed, as plain text.
type ChatMessage struct {
	Message string
}

func (p *ChatMessage) Kind() Kind { return KindChatMessage }

func (p *ChatMessage) Schema() Schema {
	return Schema{
		Bind("message", &p.Message, StringCodec),
	}
}

const (
	ChatPositionChat   int8 = 0
	ChatPositionSystem int8 = 1
	ChatPositionHotbar int8 = 2
)

type ServerChatMessage struct {
	Message  string // JSON Text Component
	Position int8
}

func (p *ServerChatMessage) Kind() Kind { return KindServerChatMessage }

func (p *ServerChatMessage) Schema() Schema {
	return Schema{
		Bind("json_data", &p.Message, ChatCodec),
		Bind("position", &p.Position, ByteCodec),
	}
}

type PlayerPosition struct {
	X, FeetY, Z float64
	OnGround    bool
}

func (p *PlayerPosition) Kind() Kind { return KindPlayerPosition }

func (p *PlayerPosition) Schema() Schema {
	return Schema{
		Bind("x", &p.X, DoubleCodec),
		Bind("feet_y", &p.FeetY, DoubleCodec),
		Bind("z", &p.Z, DoubleCodec),
		Bind("on_ground", &p.OnGround, BooleanCodec),
	}
}

type PlayerPositionAndRotation struct {
	X, FeetY, Z float64
	Yaw, Pitch  float32
	OnGround    bool
}

func (p *PlayerPositionAndRotation) Kind() Kind { return KindPlayerPositionAndRotation }

func (p *PlayerPositionAndRotation) Schema() Schema {
	return Schema{
		Bind("x", &p.X, DoubleCodec),
		Bind("feet_y", &p.FeetY, DoubleCodec),
		Bind("z", &p.Z, DoubleCodec),
		Bind("yaw", &p.Yaw, FloatCodec),
		Bind("pitch", &p.Pitch, FloatCodec),
		Bind("on_ground", &p.OnGround, BooleanCodec),
	}
}

type PlayerRotation struct {
	Yaw, Pitch float32
	OnGround   bool
}

func (p *PlayerRotation) Kind() Kind { return KindPlayerRotation }

func (p *PlayerRotation) Schema() Schema {
	return Schema{
		Bind("yaw", &p.Yaw, FloatCodec),
		Bind("pitch", &p.Pitch, FloatCodec),
		Bind("on_ground", &p.OnGround, BooleanCodec),
	}
}

type PlayerMovement struct {
	OnGround bool
}

func (p *PlayerMovement) Kind() Kind { return KindPlayerMovement }

func (p *PlayerMovement) Schema() Schema {
	return Schema{
		Bind("on_ground", &p.OnGround, BooleanCodec),
	}
}

// Flags for PlayerPositionAndLook. A set bit makes the matching value relative.
const (
	RelativeX int8 = 1 << iota
	RelativeY
	RelativeZ
	RelativeYaw
	RelativePitch
)

type PlayerPositionAndLook struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	Flags      int8
	TeleportID int32
}

func (p *PlayerPositionAndLook) Kind() Kind { return KindPlayerPositionAndLook }

func (p *PlayerPositionAndLook) Schema() Schema {
	return Schema{
		Bind("x", &p.X, DoubleCodec),
		Bind("y", &p.Y, DoubleCodec),
		Bind("z", &p.Z, DoubleCodec),
		Bind("yaw", &p.Yaw, FloatCodec),
		Bind("pitch", &p.Pitch, FloatCodec),
		Bind("flags", &p.Flags, ByteCodec),
		Bind("teleport_id", &p.TeleportID, VarIntCodec),
	}
}

type TeleportConfirm struct {
	TeleportID int32
}

func (p *TeleportConfirm) Kind() Kind { return KindTeleportConfirm }

func (p *TeleportConfirm) Schema() Schema {
	return Schema{
		Bind("teleport_id", &p.TeleportID, VarIntCodec),
	}
}

type TimeUpdate struct {
	WorldAge  int64
	TimeOfDay int64
}

func (p *TimeUpdate) Kind() Kind { return KindTimeUpdate }

func (p *TimeUpdate) Schema() Schema {
	return Schema{
		Bind("world_age", &p.WorldAge, LongCodec),
		Bind("time_of_day", &p.TimeOfDay, LongCodec),
	}
}

type PlayDisconnect struct {
	Reason string // JSON Text Component
}

func (p *PlayDisconnect) Kind() Kind { return KindPlayDisconnect }

func (p *PlayDisconnect) Schema() Schema {
	return Schema{
		Bind("reason", &p.Reason, ChatCodec),
	}
}

// MaxPluginMessageData bounds the payload of a PluginMessage.
const MaxPluginMessageData = 1 << 20

var ErrPluginMessageTooBig = errors.New("plugin message data too big")

// PluginMessage carries a channel-addressed opaque payload. Its codec is
// hand-written so the payload limit is checked before anything is copied.
type PluginMessage struct {
	Channel string
	Data    []byte
}

func (p *PluginMessage) Kind() Kind { return KindPluginMessage }

func (p *PluginMessage) Schema() Schema {
	return Schema{
		Bind("channel", &p.Channel, IdentifierCodec),
		Bind("data", &p.Data, RestBytesCodec),
	}
}

func (p *PluginMessage) EncodePacket(w io.Writer) (err error) {
	if len(p.Data) > MaxPluginMessageData {
		return ErrPluginMessageTooBig
	}
	if err = WriteString(w, p.Channel); err != nil {
		return
	}
	return WriteRestBytes(w, p.Data)
}

func (p *PluginMessage) DecodePacket(r *Reader) (err error) {
	if p.Channel, err = ReadString(r); err != nil {
		return &MalformedPacketError{Field: "channel", Err: err}
	}
	if r.Remaining() > MaxPluginMessageData {
		return &MalformedPacketError{Field: "data", Err: ErrPluginMessageTooBig}
	}
	if p.Data, err = ReadRestBytes(r); err != nil {
		return &MalformedPacketError{Field: "data", Err: err}
	}
	return nil
}

const (
	ChatModeEnabled int32 = iota
	ChatModeCommandsOnly
	ChatModeHidden
)

type ClientSettings struct {
	Locale             string
	ViewDistance       int8
	ChatMode           int32
	ChatColors         bool
	DisplayedSkinParts byte
	MainHand           int32
}

func (p *ClientSettings) Kind() Kind { return KindClientSettings }

func (p *ClientSettings) Schema() Schema {
	return Schema{
		Bind("locale", &p.Locale, StringCodec),
		Bind("view_distance", &p.ViewDistance, ByteCodec),
		Bind("chat_mode", &p.ChatMode, VarIntCodec),
		Bind("chat_colors", &p.ChatColors, BooleanCodec),
		Bind("displayed_skin_parts", &p.DisplayedSkinParts, UnsignedByteCodec),
		Bind("main_hand", &p.MainHand, VarIntCodec),
	}
}

const (
	InteractInteract int32 = iota
	InteractAttack
	InteractAt
)

// InteractEntity carries a target point only for InteractAt and a hand for
// every type except InteractAttack.
type InteractEntity struct {
	EntityID int32
	Type     int32
	TargetX  float32
	TargetY  float32
	TargetZ  float32
	Hand     int32
}

func (p *InteractEntity) Kind() Kind { return KindInteractEntity }

func (p *InteractEntity) Schema() Schema {
	at := func() bool { return p.Type == InteractAt }
	hand := func() bool { return p.Type == InteractInteract || p.Type == InteractAt }
	return Schema{
		Bind("entity_id", &p.EntityID, VarIntCodec),
		Bind("type", &p.Type, VarIntCodec),
		Bind("target_x", &p.TargetX, FloatCodec).If(at),
		Bind("target_y", &p.TargetY, FloatCodec).If(at),
		Bind("target_z", &p.TargetZ, FloatCodec).If(at),
		Bind("hand", &p.Hand, VarIntCodec).If(hand),
	}
}

type SpawnPlayer struct {
	EntityID   int32
	PlayerUUID UUID
	X, Y, Z    float64
	Yaw, Pitch Angle
}

func (p *SpawnPlayer) Kind() Kind { return KindSpawnPlayer }

func (p *SpawnPlayer) Schema() Schema {
	return Schema{
		Bind("entity_id", &p.EntityID, VarIntCodec),
		Bind("player_uuid", &p.PlayerUUID, UUIDCodec),
		Bind("x", &p.X, DoubleCodec),
		Bind("y", &p.Y, DoubleCodec),
		Bind("z", &p.Z, DoubleCodec),
		Bind("yaw", &p.Yaw, AngleCodec),
		Bind("pitch", &p.Pitch, AngleCodec),
	}
}

// EntityVelocity holds velocities in m/s.
type EntityVelocity struct {
	EntityID                        int32
	VelocityX, VelocityY, VelocityZ float64
}

func (p *EntityVelocity) Kind() Kind { return KindEntityVelocity }

func (p *EntityVelocity) Schema() Schema {
	return Schema{
		Bind("entity_id", &p.EntityID, VarIntCodec),
		Bind("velocity_x", &p.VelocityX, EntityVelocityCodec),
		Bind("velocity_y", &p.VelocityY, EntityVelocityCodec),
		Bind("velocity_z", &p.VelocityZ, EntityVelocityCodec),
	}
}

type EntityHeadLook struct {
	EntityID int32
	HeadYaw  Angle
}

func (p *EntityHeadLook) Kind() Kind { return KindEntityHeadLook }

func (p *EntityHeadLook) Schema() Schema {
	return Schema{
		Bind("entity_id", &p.EntityID, VarIntCodec),
		Bind("head_yaw", &p.HeadYaw, AngleCodec),
	}
}

type DestroyEntities struct {
	EntityIDs []int32
}

func (p *DestroyEntities) Kind() Kind { return KindDestroyEntities }

func (p *DestroyEntities) Schema() Schema {
	return Schema{
		Bind("entity_ids", &p.EntityIDs, ArrayOf(VarIntCodec)),
	}
}

type BlockChange struct {
	Location Position
	BlockID  int32
}

func (p *BlockChange) Kind() Kind { return KindBlockChange }

func (p *BlockChange) Schema() Schema {
	return Schema{
		Bind("location", &p.Location, PositionCodec),
		Bind("block_id", &p.BlockID, VarIntCodec),
	}
}

type ServerDifficulty struct {
	Difficulty byte
	Locked     bool
}

func (p *ServerDifficulty) Kind() Kind { return KindServerDifficulty }

func (p *ServerDifficulty) Schema() Schema {
	return Schema{
		Bind("difficulty", &p.Difficulty, UnsignedByteCodec),
		Bind("difficulty_locked", &p.Locked, BooleanCodec),
	}
}

const (
	AbilityInvulnerable int8 = 1 << iota
	AbilityFlying
	AbilityAllowFlying
	AbilityCreative
)

type PlayerAbilities struct {
	Flags       int8
	FlyingSpeed float32
	FOVModifier float32
}

func (p *PlayerAbilities) Kind() Kind { return KindPlayerAbilities }

func (p *PlayerAbilities) Schema() Schema {
	return Schema{
		Bind("flags", &p.Flags, ByteCodec),
		Bind("flying_speed", &p.FlyingSpeed, FloatCodec),
		Bind("fov_modifier", &p.FOVModifier, FloatCodec),
	}
}

type SpawnPosition struct {
	Location Position
}

func (p *SpawnPosition) Kind() Kind { return KindSpawnPosition }

func (p *SpawnPosition) Schema() Schema {
	return Schema{
		Bind("location", &p.Location, PositionCodec),
	}
}

type UpdateViewPosition struct {
	ChunkX int32
	ChunkZ int32
}

func (p *UpdateViewPosition) Kind() Kind { return KindUpdateViewPosition }

func (p *UpdateViewPosition) Schema() Schema {
	return Schema{
		Bind("chunk_x", &p.ChunkX, VarIntCodec),
		Bind("chunk_z", &p.ChunkZ, VarIntCodec),
	}
}

const (
	PlayerInfoAdd int32 = iota
	PlayerInfoUpdateGamemode
	PlayerInfoUpdateLatency
	PlayerInfoUpdateDisplayName
	PlayerInfoRemove
)

var ErrUnknownPlayerInfoAction = errors.New("unknown player info action")

type ProfileProperty struct {
	Name      string
	Value     string
	Signature Optional[string]
}

func writeProfileProperty(w io.Writer, v ProfileProperty) (err error) {
	if err = WriteString(w, v.Name); err != nil {
		return
	}
	if err = WriteString(w, v.Value); err != nil {
		return
	}
	err = WriteOptional(w, v.Signature, WriteString)
	return
}

func readProfileProperty(r *Reader) (v ProfileProperty, err error) {
	v.Name, err = ReadString(r)
	if err != nil {
		return
	}
	v.Value, err = ReadString(r)
	if err != nil {
		return
	}
	v.Signature, err = ReadOptional(r, ReadString)
	return
}

// PlayerInfoEntry is one row of a PlayerInfo packet. Which fields travel on
// the wire depends on the packet's Action.
type PlayerInfoEntry struct {
	UUID        UUID
	Name        string
	Properties  []ProfileProperty
	Gamemode    int32
	Ping        int32
	DisplayName Optional[string]
}

// PlayerInfo updates the tab list. Every entry shares one action, so the
// entry layout is chosen once per packet by a hand-written codec.
type PlayerInfo struct {
	Action  int32
	Entries []PlayerInfoEntry
}

func (p *PlayerInfo) Kind() Kind { return KindPlayerInfo }

func (p *PlayerInfo) Schema() Schema {
	return Schema{
		Bind("action", &p.Action, VarIntCodec),
		Bind("players", &p.Entries, Codec[[]PlayerInfoEntry]{
			Tag:   "PrefixedArray[PlayerInfoEntry]",
			Write: func(w io.Writer, v []PlayerInfoEntry) error { return WritePrefixedArray(w, v, p.writeEntry) },
			Read:  func(r *Reader) ([]PlayerInfoEntry, error) { return ReadPrefixedArray(r, p.readEntry) },
		}),
	}
}

func (p *PlayerInfo) EncodePacket(w io.Writer) error {
	if p.Action < PlayerInfoAdd || p.Action > PlayerInfoRemove {
		return fmt.Errorf("%w: %d", ErrUnknownPlayerInfoAction, p.Action)
	}
	return p.Schema().Encode(w)
}

func (p *PlayerInfo) DecodePacket(r *Reader) error {
	var err error
	if p.Action, err = ReadVarInt(r); err != nil {
		return &MalformedPacketError{Field: "action", Err: err}
	}
	if p.Action < PlayerInfoAdd || p.Action > PlayerInfoRemove {
		return &MalformedPacketError{Field: "action", Err: fmt.Errorf("%w: %d", ErrUnknownPlayerInfoAction, p.Action)}
	}
	if p.Entries, err = ReadPrefixedArray(r, p.readEntry); err != nil {
		return &MalformedPacketError{Field: "players", Err: err}
	}
	return nil
}

func (p *PlayerInfo) writeEntry(w io.Writer, e PlayerInfoEntry) (err error) {
	if err = WriteUUID(w, e.UUID); err != nil {
		return
	}

	switch p.Action {
	case PlayerInfoAdd:
		if err = WriteString(w, e.Name); err != nil {
			return
		}
		if err = WritePrefixedArray(w, e.Properties, writeProfileProperty); err != nil {
			return
		}
		if err = WriteVarInt(w, e.Gamemode); err != nil {
			return
		}
		if err = WriteVarInt(w, e.Ping); err != nil {
			return
		}
		err = WriteOptional(w, e.DisplayName, WriteString)
	case PlayerInfoUpdateGamemode:
		err = WriteVarInt(w, e.Gamemode)
	case PlayerInfoUpdateLatency:
		err = WriteVarInt(w, e.Ping)
	case PlayerInfoUpdateDisplayName:
		err = WriteOptional(w, e.DisplayName, WriteString)
	}
	return
}

func (p *PlayerInfo) readEntry(r *Reader) (e PlayerInfoEntry, err error) {
	if e.UUID, err = ReadUUID(r); err != nil {
		return
	}

	switch p.Action {
	case PlayerInfoAdd:
		if e.Name, err = ReadString(r); err != nil {
			return
		}
		if e.Properties, err = ReadPrefixedArray(r, readProfileProperty); err != nil {
			return
		}
		if e.Gamemode, err = ReadVarInt(r); err != nil {
			return
		}
		if e.Ping, err = ReadVarInt(r); err != nil {
			return
		}
		e.DisplayName, err = ReadOptional(r, ReadString)
	case PlayerInfoUpdateGamemode:
		e.Gamemode, err = ReadVarInt(r)
	case PlayerInfoUpdateLatency:
		e.Ping, err = ReadVarInt(r)
	case PlayerInfoUpdateDisplayName:
		e.DisplayName, err = ReadOptional(r, ReadString)
	}
	return
}

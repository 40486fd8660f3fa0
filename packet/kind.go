package packet

import "fmt"

// State is the connection state that selects a packet vocabulary.
type State uint8

const (
	Handshake State = iota
	Status
	Login
	Play
)

var stateNames = [...]string{"handshake", "status", "login", "play"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Direction is the side a packet is bound to.
type Direction uint8

const (
	Serverbound Direction = iota
	Clientbound
)

func (d Direction) String() string {
	switch d {
	case Serverbound:
		return "serverbound"
	case Clientbound:
		return "clientbound"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Kind tags a packet variant. It carries no wire id; ids come from a Registry.
type Kind uint16

const (
	KindUnknown Kind = iota

	KindHandshake

	KindStatusRequest
	KindStatusResponse
	KindStatusPing
	KindStatusPong

	KindLoginStart
	KindLoginDisconnect
	KindEncryptionRequest
	KindEncryptionResponse
	KindLoginSuccess
	KindSetCompression
	KindLoginPluginRequest
	KindLoginPluginResponse

	KindJoinGame
	KindKeepAlive
	KindChatMessage
	KindServerChatMessage
	KindPlayerPosition
	KindPlayerPositionAndRotation
	KindPlayerRotation
	KindPlayerMovement
	KindPlayerPositionAndLook
	KindTeleportConfirm
	KindTimeUpdate
	KindPlayDisconnect
	KindPluginMessage
	KindClientSettings
	KindInteractEntity
	KindSpawnPlayer
	KindEntityVelocity
	KindEntityHeadLook
	KindDestroyEntities
	KindBlockChange
	KindServerDifficulty
	KindPlayerAbilities
	KindSpawnPosition
	KindUpdateViewPosition
	KindPlayerInfo

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:                   "Unknown",
	KindHandshake:                 "Handshake",
	KindStatusRequest:             "StatusRequest",
	KindStatusResponse:            "StatusResponse",
	KindStatusPing:                "StatusPing",
	KindStatusPong:                "StatusPong",
	KindLoginStart:                "LoginStart",
	KindLoginDisconnect:           "LoginDisconnect",
	KindEncryptionRequest:         "EncryptionRequest",
	KindEncryptionResponse:        "EncryptionResponse",
	KindLoginSuccess:              "LoginSuccess",
	KindSetCompression:            "SetCompression",
	KindLoginPluginRequest:        "LoginPluginRequest",
	KindLoginPluginResponse:       "LoginPluginResponse",
	KindJoinGame:                  "JoinGame",
	KindKeepAlive:                 "KeepAlive",
	KindChatMessage:               "ChatMessage",
	KindServerChatMessage:         "ServerChatMessage",
	KindPlayerPosition:            "PlayerPosition",
	KindPlayerPositionAndRotation: "PlayerPositionAndRotation",
	KindPlayerRotation:            "PlayerRotation",
	KindPlayerMovement:            "PlayerMovement",
	KindPlayerPositionAndLook:     "PlayerPositionAndLook",
	KindTeleportConfirm:           "TeleportConfirm",
	KindTimeUpdate:                "TimeUpdate",
	KindPlayDisconnect:            "PlayDisconnect",
	KindPluginMessage:             "PluginMessage",
	KindClientSettings:            "ClientSettings",
	KindInteractEntity:            "InteractEntity",
	KindSpawnPlayer:               "SpawnPlayer",
	KindEntityVelocity:            "EntityVelocity",
	KindEntityHeadLook:            "EntityHeadLook",
	KindDestroyEntities:           "DestroyEntities",
	KindBlockChange:               "BlockChange",
	KindServerDifficulty:          "ServerDifficulty",
	KindPlayerAbilities:           "PlayerAbilities",
	KindSpawnPosition:             "SpawnPosition",
	KindUpdateViewPosition:        "UpdateViewPosition",
	KindPlayerInfo:                "PlayerInfo",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// New returns a zero packet of kind k, or nil if k is not a known variant.
func New(k Kind) Packet {
	switch k {
	case KindHandshake:
		return &HandshakePacket{}
	case KindStatusRequest:
		return &StatusRequest{}
	case KindStatusResponse:
		return &StatusResponse{}
	case KindStatusPing:
		return &StatusPing{}
	case KindStatusPong:
		return &StatusPong{}
	case KindLoginStart:
		return &LoginStart{}
	case KindLoginDisconnect:
		return &LoginDisconnect{}
	case KindEncryptionRequest:
		return &EncryptionRequest{}
	case KindEncryptionResponse:
		return &EncryptionResponse{}
	case KindLoginSuccess:
		return &LoginSuccess{}
	case KindSetCompression:
		return &SetCompression{}
	case KindLoginPluginRequest:
		return &LoginPluginRequest{}
	case KindLoginPluginResponse:
		return &LoginPluginResponse{}
	case KindJoinGame:
		return &JoinGame{}
	case KindKeepAlive:
		return &KeepAlive{}
	case KindChatMessage:
		return &ChatMessage{}
	case KindServerChatMessage:
		return &ServerChatMessage{}
	case KindPlayerPosition:
		return &PlayerPosition{}
	case KindPlayerPositionAndRotation:
		return &PlayerPositionAndRotation{}
	case KindPlayerRotation:
		return &PlayerRotation{}
	case KindPlayerMovement:
		return &PlayerMovement{}
	case KindPlayerPositionAndLook:
		return &PlayerPositionAndLook{}
	case KindTeleportConfirm:
		return &TeleportConfirm{}
	case KindTimeUpdate:
		return &TimeUpdate{}
	case KindPlayDisconnect:
		return &PlayDisconnect{}
	case KindPluginMessage:
		return &PluginMessage{}
	case KindClientSettings:
		return &ClientSettings{}
	case KindInteractEntity:
		return &InteractEntity{}
	case KindSpawnPlayer:
		return &SpawnPlayer{}
	case KindEntityVelocity:
		return &EntityVelocity{}
	case KindEntityHeadLook:
		return &EntityHeadLook{}
	case KindDestroyEntities:
		return &DestroyEntities{}
	case KindBlockChange:
		return &BlockChange{}
	case KindServerDifficulty:
		return &ServerDifficulty{}
	case KindPlayerAbilities:
		return &PlayerAbilities{}
	case KindSpawnPosition:
		return &SpawnPosition{}
	case KindUpdateViewPosition:
		return &UpdateViewPosition{}
	case KindPlayerInfo:
		return &PlayerInfo{}
	}
	return nil
}

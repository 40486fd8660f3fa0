package packet

// Protocol numbers served by Default. 573 and 575 share the 578 wire layout.
const (
	Protocol1_15   int32 = 573
	Protocol1_15_1 int32 = 575
	Protocol1_15_2 int32 = 578
)

// VersionNames maps supported protocol numbers to release names.
var VersionNames = map[int32]string{
	Protocol1_15:   "1.15",
	Protocol1_15_1: "1.15.1",
	Protocol1_15_2: "1.15.2",
}

// Default is the registry for the 1.15 protocol family.
var Default = defaultBuilder().MustBuild()

func defaultBuilder() *Builder {
	all := []int32{Protocol1_15, Protocol1_15_1, Protocol1_15_2}
	b := NewBuilder(Protocol1_15_2)

	sb := func(state State, id int32, kind Kind) { b.Register(all, state, Serverbound, id, kind) }
	cb := func(state State, id int32, kind Kind) { b.Register(all, state, Clientbound, id, kind) }

	sb(Handshake, 0x00, KindHandshake)

	sb(Status, 0x00, KindStatusRequest)
	sb(Status, 0x01, KindStatusPing)
	cb(Status, 0x00, KindStatusResponse)
	cb(Status, 0x01, KindStatusPong)

	sb(Login, 0x00, KindLoginStart)
	sb(Login, 0x01, KindEncryptionResponse)
	sb(Login, 0x02, KindLoginPluginResponse)
	cb(Login, 0x00, KindLoginDisconnect)
	cb(Login, 0x01, KindEncryptionRequest)
	cb(Login, 0x02, KindLoginSuccess)
	cb(Login, 0x03, KindSetCompression)
	cb(Login, 0x04, KindLoginPluginRequest)

	cb(Play, 0x05, KindSpawnPlayer)
	cb(Play, 0x0C, KindBlockChange)
	cb(Play, 0x0E, KindServerDifficulty)
	cb(Play, 0x0F, KindServerChatMessage)
	cb(Play, 0x19, KindPluginMessage)
	cb(Play, 0x1B, KindPlayDisconnect)
	cb(Play, 0x21, KindKeepAlive)
	cb(Play, 0x26, KindJoinGame)
	cb(Play, 0x32, KindPlayerAbilities)
	cb(Play, 0x34, KindPlayerInfo)
	cb(Play, 0x36, KindPlayerPositionAndLook)
	cb(Play, 0x38, KindDestroyEntities)
	cb(Play, 0x3C, KindEntityHeadLook)
	cb(Play, 0x41, KindUpdateViewPosition)
	cb(Play, 0x46, KindEntityVelocity)
	cb(Play, 0x4E, KindSpawnPosition)
	cb(Play, 0x4F, KindTimeUpdate)

	sb(Play, 0x00, KindTeleportConfirm)
	sb(Play, 0x03, KindChatMessage)
	sb(Play, 0x05, KindClientSettings)
	sb(Play, 0x0B, KindPluginMessage)
	sb(Play, 0x0E, KindInteractEntity)
	sb(Play, 0x0F, KindKeepAlive)
	sb(Play, 0x11, KindPlayerPosition)
	sb(Play, 0x12, KindPlayerPositionAndRotation)
	sb(Play, 0x13, KindPlayerRotation)
	sb(Play, 0x14, KindPlayerMovement)

	return b
}

package xmpp

import "github.com/user/roombot/internal/types"

// DefaultRoleLabel is the last-name slot the chat backend shows for agents.
const DefaultRoleLabel = "AI"

// Identity is the fixed addressing and display data of one session.
type Identity struct {
	JID         JID
	Password    string
	Room        JID
	DisplayName string
	RoleLabel   string
}

func (id Identity) metadata() *Metadata {
	label := id.RoleLabel
	if label == "" {
		label = DefaultRoleLabel
	}
	name := id.DisplayName
	if name == "" {
		name = id.JID.Local
	}
	return &Metadata{
		FullName:        name,
		SenderFirstName: name,
		SenderLastName:  label,
		ShowInChannel:   "true",
	}
}

// occupant is the address the agent occupies inside the room.
func (id Identity) occupant() JID {
	return id.Room.Bare().WithResource(id.JID.Local)
}

// JoinPresence builds the room-join presence sent on the Online
// transition.
func JoinPresence(id Identity) Presence {
	return Presence{
		To:   id.occupant().String(),
		MUC:  &MUCJoin{},
		Data: id.metadata(),
	}
}

// GroupMessage builds a groupchat message to the identity's room with a
// fresh stanza id.
func GroupMessage(id Identity, body string) Message {
	return Message{
		To:   id.Room.Bare().String(),
		Type: "groupchat",
		ID:   string(types.NewStanzaID()),
		Body: body,
		Data: id.metadata(),
	}
}

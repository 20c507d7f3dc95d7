package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BotAccount is a provisioned agent identity.
type BotAccount struct {
	UserID   string
	Email    string
	Password string
	JID      string
	RoomJID  string
}

// SetupOptions controls ProvisionBot.
type SetupOptions struct {
	// Name is the bot's display name.
	Name string
	// Domain is the XMPP domain the account lives on.
	Domain string
	// CreateRoom forces a new room even when rooms exist.
	CreateRoom bool
}

// ProvisionBot creates a bot user, picks the first room (or creates one)
// and joins it.
func (c *Client) ProvisionBot(ctx context.Context, opts SetupOptions) (*BotAccount, error) {
	stamp := c.now().UnixMilli()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]

	user := NewUser{
		Email:     strings.ToLower(fmt.Sprintf("%s%d.%s%s", TestUserPrefix, stamp, suffix, TestUserDomain)),
		FirstName: opts.Name,
		LastName:  "Bot",
		Password:  uuid.NewString(),
		UUID:      fmt.Sprintf("testbot-%d-%s", stamp, suffix),
	}
	created, err := c.CreateUsers(ctx, []NewUser{user})
	if err != nil {
		return nil, err
	}
	account := &BotAccount{
		UserID:   created[0].ID,
		Email:    user.Email,
		Password: created[0].XMPPPassword,
		JID:      created[0].ID + "@" + opts.Domain,
	}
	c.logger.Info("created bot user", "user_id", account.UserID, "email", account.Email)

	roomJID, err := c.pickRoom(ctx, account.UserID, stamp, opts.CreateRoom)
	if err != nil {
		return nil, err
	}
	if err := c.JoinRoom(ctx, account.UserID, roomJID); err != nil {
		return nil, err
	}
	account.RoomJID = roomJID
	c.logger.Info("joined room", "room_jid", roomJID)
	return account, nil
}

func (c *Client) pickRoom(ctx context.Context, userID string, stamp int64, create bool) (string, error) {
	if !create {
		rooms, err := c.ListRooms(ctx)
		if err != nil {
			return "", err
		}
		if len(rooms) > 0 {
			return rooms[0].JID, nil
		}
	}
	return c.CreateRoom(ctx, NewRoom{
		Name:        fmt.Sprintf("%s%d", TestRoomPrefix, stamp),
		Description: "Room for automated testing",
		UserID:      userID,
	})
}

package provision

import "fmt"

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Body)
}

// Wallet is a user's default wallet.
type Wallet struct {
	WalletAddress string `json:"walletAddress"`
}

// NewUser is one entry of a batch user creation.
type NewUser struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
	UUID      string `json:"uuid"`
}

// CreatedUser is returned for each created user.
type CreatedUser struct {
	ID            string `json:"_id"`
	DefaultWallet Wallet `json:"defaultWallet"`
	XMPPPassword  string `json:"xmppPassword"`
}

// User is an entry of the app's user listing.
type User struct {
	ID            string  `json:"_id"`
	Email         string  `json:"email"`
	DefaultWallet *Wallet `json:"defaultWallet,omitempty"`
}

// Room is a chat room known to the backend.
type Room struct {
	ID           string   `json:"_id"`
	JID          string   `json:"jid"`
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

// NewRoom describes a room to create.
type NewRoom struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	UserID      string `json:"userId"`
	IsPrivate   bool   `json:"isPrivate"`
}

// Message is a chat message posted through the API.
type Message struct {
	RoomJID         string `json:"roomJid"`
	UserID          string `json:"userId"`
	Body            string `json:"body"`
	QuotedMessageID string `json:"quotedMessageId,omitempty"`
}

type batchRequest struct {
	BypassEmailConfirmation bool      `json:"bypassEmailConfirmation"`
	UsersList               []NewUser `json:"usersList"`
}

type batchResponse struct {
	OK      bool          `json:"ok"`
	Results []CreatedUser `json:"results"`
}

type usersResponse struct {
	OK    bool   `json:"ok"`
	Items []User `json:"items"`
}

type roomsResponse struct {
	OK    bool   `json:"ok"`
	Items []Room `json:"items"`
}

type joinRequest struct {
	UserID  string `json:"userId"`
	RoomJID string `json:"roomJid"`
}

type roomResponse struct {
	JID string `json:"jid"`
}

type messageResponse struct {
	ID string `json:"id"`
}

// Package provision talks to the chat backend's REST API to create bot
// accounts, manage rooms and clean up test data.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const maxAttachmentSize = 10 << 20

// ErrNotOK is returned when the backend answers 2xx with ok=false.
var ErrNotOK = errors.New("api reported failure")

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(p *RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger sets the client logger. A nil logger means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is a server-authenticated API client for one app.
type Client struct {
	baseURL  string
	appID    string
	appToken string
	http     *http.Client
	retry    *RetryPolicy
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Client for the API at baseURL.
func New(baseURL, appID, appToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		appID:    appID,
		appToken: appToken,
		http:     &http.Client{Timeout: 30 * time.Second},
		retry:    DefaultRetryPolicy(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateUsers creates users in one batch, bypassing email confirmation.
func (c *Client) CreateUsers(ctx context.Context, users []NewUser) ([]CreatedUser, error) {
	var resp batchResponse
	req := batchRequest{BypassEmailConfirmation: true, UsersList: users}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/users/batch", req, &resp); err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	if !resp.OK || len(resp.Results) == 0 {
		return nil, fmt.Errorf("create users: %w", ErrNotOK)
	}
	return resp.Results, nil
}

// ListUsers lists up to limit users of the app.
func (c *Client) ListUsers(ctx context.Context, limit int) ([]User, error) {
	var resp usersResponse
	p := "/v1/users/" + url.PathEscape(c.appID) + "?limit=" + strconv.Itoa(limit)
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &resp); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return resp.Items, nil
}

// DeleteUser deletes a user by id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// ListRooms lists the app's rooms.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var resp roomsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/rooms", nil, &resp); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("list rooms: %w", ErrNotOK)
	}
	return resp.Items, nil
}

// DeleteRoom deletes a room by id.
func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/rooms/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return nil
}

// CreateRoom creates a room and returns its JID.
func (c *Client) CreateRoom(ctx context.Context, room NewRoom) (string, error) {
	var resp roomResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat/room", room, &resp); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	if resp.JID == "" {
		return "", fmt.Errorf("create room: %w", ErrNotOK)
	}
	return resp.JID, nil
}

// JoinRoom adds a user to a room.
func (c *Client) JoinRoom(ctx context.Context, userID, roomJID string) error {
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat/room/join", joinRequest{UserID: userID, RoomJID: roomJID}, nil); err != nil {
		return fmt.Errorf("join room %s: %w", roomJID, err)
	}
	return nil
}

// PostMessage posts a message to a room and returns its id.
func (c *Client) PostMessage(ctx context.Context, msg Message) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat/message", msg, &resp); err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}
	return resp.ID, nil
}

// UploadAttachment downloads fileURL and posts it to a room as a
// multipart attachment.
func (c *Client) UploadAttachment(ctx context.Context, roomJID, userID, fileURL string) error {
	data, err := c.fetch(ctx, fileURL)
	if err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", attachmentName(fileURL))
	if err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}
	if err := w.WriteField("roomJid", roomJID); err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}
	if err := w.WriteField("userId", userID); err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}

	body := buf.Bytes()
	if err := c.do(ctx, http.MethodPost, "/v1/chat/attachment", w.FormDataContentType(), body, nil); err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}
	return nil
}

func attachmentName(fileURL string) string {
	if u, err := url.Parse(fileURL); err == nil && u.Path != "" && u.Path != "/" {
		return path.Base(u.Path)
	}
	return "attachment"
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if len(data) > maxAttachmentSize {
		return nil, fmt.Errorf("fetch %s: file exceeds %d bytes", rawURL, maxAttachmentSize)
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, method, p string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	return c.do(ctx, method, p, "application/json", body, out)
}

// do sends one API request with retries. The body is replayed on every
// attempt.
func (c *Client) do(ctx context.Context, method, p, contentType string, body []byte, out any) error {
	token, err := ServerToken(c.appID, c.appToken, c.now())
	if err != nil {
		return err
	}

	attempt := 0
	return c.retry.Execute(ctx, func() error {
		attempt++
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("x-custom-token", "Bearer "+token)
		req.Header.Set("x-app-id", c.appID)

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Debug("api request failed", "method", method, "path", p, "attempt", attempt, "error", err)
			return fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			c.logger.Debug("api error", "method", method, "path", p, "attempt", attempt, "status", resp.StatusCode)
			return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		}
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &decodeError{err: err}
		}
		return nil
	})
}

// decodeError marks a malformed response body. It is never retried.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return "invalid response body: " + e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

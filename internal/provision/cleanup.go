package provision

import (
	"context"
	"fmt"
	"strings"
)

// Prefixes and domain used for accounts and rooms created by setup and the
// test tooling.
const (
	TestUserPrefix    = "ethora.test.bot."
	TestUserDomain    = "@ethora.bot"
	TestRoomPrefix    = "ethora.test.room."
	TestBotRoomPrefix = "ethora.test.bot."

	listLimit = 50
)

// IsTestUser reports whether email belongs to a generated test account.
func IsTestUser(email string) bool {
	return strings.HasPrefix(email, TestUserPrefix) && strings.HasSuffix(email, TestUserDomain)
}

// IsTestRoom reports whether name belongs to a generated test room.
func IsTestRoom(name string) bool {
	return strings.HasPrefix(name, TestRoomPrefix) || strings.HasPrefix(name, TestBotRoomPrefix)
}

// TestData is the set of generated users and rooms found on the backend.
type TestData struct {
	Users []User
	Rooms []Room
}

// Empty reports whether nothing was found.
func (d TestData) Empty() bool { return len(d.Users) == 0 && len(d.Rooms) == 0 }

// FindTestData lists users and rooms and keeps the generated ones.
func (c *Client) FindTestData(ctx context.Context) (TestData, error) {
	users, err := c.ListUsers(ctx, listLimit)
	if err != nil {
		return TestData{}, err
	}
	rooms, err := c.ListRooms(ctx)
	if err != nil {
		return TestData{}, err
	}

	var data TestData
	for _, u := range users {
		if IsTestUser(u.Email) {
			data.Users = append(data.Users, u)
		}
	}
	for _, r := range rooms {
		if IsTestRoom(r.Name) {
			data.Rooms = append(data.Rooms, r)
		}
	}
	return data, nil
}

// CleanupReport summarises a deletion pass.
type CleanupReport struct {
	RoomsDeleted int
	UsersDeleted int
	Failures     []error
}

// DeleteTestData deletes rooms first, then users. A failure on one item is
// recorded and the pass continues.
func (c *Client) DeleteTestData(ctx context.Context, data TestData) CleanupReport {
	var report CleanupReport
	for _, r := range data.Rooms {
		if err := c.DeleteRoom(ctx, r.ID); err != nil {
			c.logger.Error("delete test room", "room_id", r.ID, "name", r.Name, "error", err)
			report.Failures = append(report.Failures, fmt.Errorf("room %s: %w", r.Name, err))
			continue
		}
		c.logger.Info("deleted test room", "room_id", r.ID, "name", r.Name)
		report.RoomsDeleted++
	}
	for _, u := range data.Users {
		if err := c.DeleteUser(ctx, u.ID); err != nil {
			c.logger.Error("delete test user", "user_id", u.ID, "email", u.Email, "error", err)
			report.Failures = append(report.Failures, fmt.Errorf("user %s: %w", u.Email, err))
			continue
		}
		c.logger.Info("deleted test user", "user_id", u.ID, "email", u.Email)
		report.UsersDeleted++
	}
	return report
}

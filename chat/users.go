package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Users keeps the profiles of people who can be messaged.
type Users struct {
	store UserStore
	settings
}

// NewUsers returns Users backed by store.
func NewUsers(store UserStore, opts ...Option) *Users {
	return &Users{store: store, settings: newSettings(opts)}
}

// Upsert creates the profile of externalID or updates its details.
func (u *Users) Upsert(ctx context.Context, externalID, name, email, imageURL string) (User, error) {
	if externalID == "" {
		return User{}, fmt.Errorf("external id is empty: %w", ErrInvalidArgument)
	}
	now := u.now()
	user, err := u.store.UpsertUser(ctx, User{
		ExternalID: externalID,
		Name:       name,
		Email:      email,
		ImageURL:   imageURL,
		CreatedAt:  now,
	})
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	u.publish(ctx, Event{Kind: EventUserUpdated, UserID: externalID, At: now})
	return user, nil
}

// Get returns the profile of externalID. A missing profile is reported
// through the boolean.
func (u *Users) Get(ctx context.Context, externalID string) (User, bool, error) {
	user, err := u.store.GetUser(ctx, externalID)
	if errors.Is(err, ErrNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("get user: %w", err)
	}
	return user, true, nil
}

// GetMany returns the profiles that exist among externalIDs.
func (u *Users) GetMany(ctx context.Context, externalIDs []string) ([]User, error) {
	if len(externalIDs) == 0 {
		return []User{}, nil
	}
	users, err := u.store.GetUsers(ctx, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return users, nil
}

// List returns everyone but exclude, ordered by name. A non-blank search
// keeps only names containing it, ignoring case.
func (u *Users) List(ctx context.Context, exclude, search string) ([]User, error) {
	all, err := u.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]User, 0, len(all))
	for _, user := range all {
		if user.ExternalID == exclude {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(user.Name), search) {
			continue
		}
		out = append(out, user)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

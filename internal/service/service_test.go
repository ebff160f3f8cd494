package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/internal/auth"
	"github.com/petermazzocco/findit/internal/database"
	"github.com/petermazzocco/findit/internal/store"
	"github.com/petermazzocco/findit/internal/upload"
	"github.com/petermazzocco/findit/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.HashCost = bcrypt.MinCost
}

type testEnv struct {
	store      *store.Store
	accounts   *Accounts
	items      *Items
	moderation *Moderation
	uploadDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()
	s := store.New(database.NewTestDB(t))

	dir := t.TempDir()
	storage, err := upload.NewLocalStorage(dir)
	require.NoError(t, err)
	uploads := upload.NewValidator(storage, []string{"png", "jpg", "jpeg", "gif"}, 1<<20, log)

	return &testEnv{
		store:      s,
		accounts:   NewAccounts(s, log),
		items:      NewItems(s, uploads, log),
		moderation: NewModeration(s, uploads, log),
		uploadDir:  dir,
	}
}

func (e *testEnv) files(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.uploadDir)
	require.NoError(t, err)
	return len(entries)
}

func (e *testEnv) register(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.accounts.Register(context.Background(), RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) makeAdmin(t *testing.T, u *models.User) {
	t.Helper()
	_, err := e.store.SetAdmin(context.Background(), u.ID, true)
	require.NoError(t, err)
}

func validFields() ItemFields {
	return ItemFields{
		"title":         "Black wallet",
		"description":   "Leather, contains a library card",
		"item_type":     "lost",
		"category_id":   "3",
		"date_occurred": "2024-03-01T14:30:00Z",
		"location":      "Central station",
	}
}

func pngImage(t *testing.T, filename string) *Image {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return &Image{Reader: &buf, Filename: filename}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := env.register(t, "alice")
	assert.False(t, u.IsAdmin)
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, auth.CheckPassword(u.Password, "secret123"))

	cases := []struct {
		name string
		in   RegisterInput
		kind apperr.Kind
		msg  string
	}{
		{"missing password", RegisterInput{Username: "bob", Email: "bob@example.com"}, apperr.KindValidation, "Missing required fields"},
		{"blank username", RegisterInput{Username: "   ", Email: "bob@example.com", Password: "secret123"}, apperr.KindValidation, "Missing required fields"},
		{"short username", RegisterInput{Username: "bo", Email: "bob@example.com", Password: "secret123"}, apperr.KindValidation, "username must be at least 3 characters"},
		{"bad email", RegisterInput{Username: "bob", Email: "not-an-email", Password: "secret123"}, apperr.KindValidation, "email must be a valid email address"},
		{"short password", RegisterInput{Username: "bob", Email: "bob@example.com", Password: "123"}, apperr.KindValidation, "password must be at least 6 characters"},
		{"long password", RegisterInput{Username: "bob", Email: "bob@example.com", Password: strings.Repeat("é", 40)}, apperr.KindValidation, "password must be at most 72 bytes"},
		{"taken username", RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret123"}, apperr.KindConflict, "Username already exists"},
		{"taken email", RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "secret123"}, apperr.KindConflict, "Email already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.accounts.Register(ctx, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.msg, apperr.PublicMessage(err))
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	u, err := env.accounts.Login(ctx, LoginInput{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	_, err = env.accounts.Login(ctx, LoginInput{Username: "alice", Password: "wrong-password"})
	assert.Equal(t, apperr.ErrInvalidLogin, err)

	_, err = env.accounts.Login(ctx, LoginInput{Username: "nobody", Password: "secret123"})
	assert.Equal(t, apperr.ErrInvalidLogin, err, "unknown users get the same error as bad passwords")

	_, err = env.accounts.Login(ctx, LoginInput{Username: "alice"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Missing username or password", apperr.PublicMessage(err))

	_, err = env.accounts.Login(ctx, LoginInput{Username: "   ", Password: "secret123"})
	assert.Equal(t, "Missing username or password", apperr.PublicMessage(err))
}

func TestCheckAuth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	u, err := env.accounts.CheckAuth(ctx, 0, false)
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = env.accounts.CheckAuth(ctx, alice.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	u, err = env.accounts.CheckAuth(ctx, alice.ID+100, true)
	require.NoError(t, err)
	assert.Nil(t, u, "a stale session reports unauthenticated")

	_, err = env.accounts.CurrentUser(ctx, alice.ID+100)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestParseDate(t *testing.T) {
	valid := map[string]time.Time{
		"2024-03-01T14:30:00Z":      time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		"2024-03-01T14:30:00.123Z":  time.Date(2024, 3, 1, 14, 30, 0, 123000000, time.UTC),
		"2024-03-01T16:30:00+02:00": time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		"2024-03-01T14:30:00":       time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		"2024-03-01T14:30:00.5":     time.Date(2024, 3, 1, 14, 30, 0, 500000000, time.UTC),
		"2024-03-01T14:30":          time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		"2024-03-01 14:30:00":       time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		"2024-03-01":                time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		" 2024-03-01 ":              time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range valid {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	for _, in := range []string{"", "yesterday", "2024-13-01", "01/03/2024", "2024-03-01T25:00:00Z"} {
		_, err := ParseDate(in)
		assert.Equal(t, errDate, err, in)
	}
}

func TestCreateItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	before := time.Now().UTC().Add(-time.Second)
	item, err := env.items.Create(ctx, alice.ID, validFields(), nil)
	require.NoError(t, err)

	assert.NotZero(t, item.ID)
	assert.Len(t, item.UUID, 36)
	assert.Equal(t, alice.ID, item.UserID)
	assert.Equal(t, "Accessories", item.Category.Name)
	assert.Nil(t, item.ImageFilename)
	assert.False(t, item.IsResolved)
	assert.True(t, item.DatePosted.After(before))
	assert.Equal(t, time.UTC, item.DatePosted.Location())
	assert.True(t, time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC).Equal(item.DateOccurred))
}

func TestCreateItemValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	with := func(key, value string) ItemFields {
		f := validFields()
		if value == "" {
			delete(f, key)
		} else {
			f[key] = value
		}
		return f
	}

	cases := []struct {
		name   string
		fields ItemFields
		msg    string
	}{
		{"missing title", with("title", ""), "Missing required fields"},
		{"missing location", with("location", ""), "Missing required fields"},
		{"missing date", with("date_occurred", ""), "Missing required fields"},
		{"bad type", with("item_type", "stolen"), "Item type must be 'lost' or 'found'"},
		{"bad date", with("date_occurred", "last tuesday"), "Invalid date format"},
		{"non numeric category", with("category_id", "keys"), "Invalid category"},
		{"unknown category", with("category_id", "999"), "Invalid category"},
		{"long title", with("title", strings.Repeat("x", 101)), "title must be at most 100 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.items.Create(ctx, alice.ID, tc.fields, pngImage(t, "photo.png"))
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tc.msg, apperr.PublicMessage(err))
		})
	}

	items, err := env.items.List(ctx, ItemQuery{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, env.files(t), "no image is stored for invalid input")
}

func TestCreateItemWithImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	item, err := env.items.Create(ctx, alice.ID, validFields(), pngImage(t, "../../wallet.png"))
	require.NoError(t, err)
	require.NotNil(t, item.ImageFilename)
	assert.True(t, upload.IsStoredName(*item.ImageFilename))
	assert.Equal(t, 1, env.files(t))

	pub := item.Public()
	require.NotNil(t, pub.ImageURL)
	assert.Equal(t, models.ImageRoute+*item.ImageFilename, *pub.ImageURL)
}

func TestCreateItemRejectedImageWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	_, err := env.items.Create(ctx, alice.ID, validFields(), &Image{Reader: strings.NewReader("MZ..."), Filename: "virus.exe"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = env.items.Create(ctx, alice.ID, validFields(), &Image{Reader: strings.NewReader("not an image"), Filename: "photo.png"})
	assert.Equal(t, apperr.KindInvalidContent, apperr.KindOf(err))

	items, err := env.items.List(ctx, ItemQuery{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, env.files(t))
}

func TestCreateItemStaleOwner(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.items.Create(context.Background(), 42, validFields(), nil)
	assert.Equal(t, apperr.KindAuthRequired, apperr.KindOf(err))
}

func TestListItemsQueryValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	_, err := env.items.Create(ctx, alice.ID, validFields(), nil)
	require.NoError(t, err)
	found := validFields()
	found["item_type"] = "found"
	found["title"] = "Blue umbrella"
	found["category_id"] = "8"
	_, err = env.items.Create(ctx, alice.ID, found, nil)
	require.NoError(t, err)

	_, err = env.items.List(ctx, ItemQuery{Type: "stolen"})
	assert.Equal(t, errItemType, err)
	_, err = env.items.List(ctx, ItemQuery{Category: "abc"})
	assert.Equal(t, errCategory, err)

	items, err := env.items.List(ctx, ItemQuery{Type: "found"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Blue umbrella", items[0].Title)

	items, err = env.items.List(ctx, ItemQuery{Category: "3", Search: "  WALLET "})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Black wallet", items[0].Title)

	items, err = env.items.List(ctx, ItemQuery{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Blue umbrella", items[0].Title, "most recent first")

	mine, err := env.items.Mine(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestUpdateItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	root := env.register(t, "root")
	env.makeAdmin(t, root)

	item, err := env.items.Create(ctx, alice.ID, validFields(), pngImage(t, "a.png"))
	require.NoError(t, err)
	oldImage := *item.ImageFilename

	_, err = env.items.Update(ctx, bob.ID, item.ID, ItemFields{"is_resolved": "true"}, nil)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = env.items.Update(ctx, alice.ID, item.ID+100, ItemFields{}, nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = env.items.Update(ctx, alice.ID, item.ID, ItemFields{"is_resolved": "maybe"}, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = env.items.Update(ctx, alice.ID, item.ID, ItemFields{"title": "  "}, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	updated, err := env.items.Update(ctx, alice.ID, item.ID, ItemFields{
		"is_resolved": "true",
		"title":       "Black leather wallet",
		"category_id": "8",
	}, pngImage(t, "b.png"))
	require.NoError(t, err)
	assert.True(t, updated.IsResolved)
	assert.Equal(t, "Black leather wallet", updated.Title)
	assert.Equal(t, "Other", updated.Category.Name)
	require.NotNil(t, updated.ImageFilename)
	assert.NotEqual(t, oldImage, *updated.ImageFilename)
	assert.Equal(t, 1, env.files(t), "the replaced image is removed")

	// Admins may edit anyone's items.
	updated, err = env.items.Update(ctx, root.ID, item.ID, ItemFields{"item_type": "found"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "found", updated.ItemType)
}

func TestUpdateItemReportsFieldsInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	item, err := env.items.Create(ctx, alice.ID, validFields(), nil)
	require.NoError(t, err)

	fields := ItemFields{
		"location":    strings.Repeat("l", 201),
		"description": strings.Repeat("d", 5001),
		"title":       strings.Repeat("t", 101),
	}
	for i := 0; i < 20; i++ {
		_, err := env.items.Update(ctx, alice.ID, item.ID, fields, nil)
		require.Error(t, err)
		assert.Equal(t, "title must be at most 100 characters", apperr.PublicMessage(err))
	}

	delete(fields, "title")
	_, err = env.items.Update(ctx, alice.ID, item.ID, fields, nil)
	assert.Equal(t, "description must be at most 5000 characters", apperr.PublicMessage(err))
}

func TestDeleteItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	item, err := env.items.Create(ctx, alice.ID, validFields(), pngImage(t, "a.png"))
	require.NoError(t, err)

	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(env.items.Delete(ctx, bob.ID, item.ID)))
	require.NoError(t, env.items.Delete(ctx, alice.ID, item.ID))
	assert.Zero(t, env.files(t))

	_, err = env.items.Get(ctx, item.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(env.items.Delete(ctx, alice.ID, item.ID)))
}

func TestModerationUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	yes := true
	u, err := env.moderation.UpdateUser(ctx, alice.ID, UserUpdate{IsAdmin: &yes})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	u, err = env.moderation.UpdateUser(ctx, alice.ID, UserUpdate{})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin, "an empty update leaves the user unchanged")

	_, err = env.moderation.UpdateUser(ctx, alice.ID+100, UserUpdate{IsAdmin: &yes})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestModerationDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.register(t, "root")
	env.makeAdmin(t, root)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	for i := 0; i < 2; i++ {
		_, err := env.items.Create(ctx, alice.ID, validFields(), pngImage(t, "a.png"))
		require.NoError(t, err)
	}
	_, err := env.items.Create(ctx, bob.ID, validFields(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, env.files(t))

	assert.Equal(t, apperr.ErrSelfDeletion, env.moderation.DeleteUser(ctx, root.ID, root.ID))

	require.NoError(t, env.moderation.DeleteUser(ctx, root.ID, alice.ID))
	assert.Zero(t, env.files(t))

	users, err := env.moderation.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "root", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	items, err := env.moderation.ListAllItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, bob.ID, items[0].UserID)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(env.moderation.DeleteUser(ctx, root.ID, alice.ID)))
}

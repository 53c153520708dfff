package auth_test

import (
	"testing"

	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/internal/testutil"
	"github.com/hugh/c4p-portal/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *auth.Service {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return auth.NewService(db, testutil.NewEncryptor(t), testutil.Admins())
}

func TestService_Register(t *testing.T) {
	ctx := testutil.TestContext(t)

	t.Run("creates user and returns password once", func(t *testing.T) {
		svc := newService(t)

		res, err := svc.Register(ctx, auth.RegisterInput{FullName: "  Ana Pérez ", Email: " Ana@X.com "})
		require.NoError(t, err)
		assert.Len(t, res.Password, auth.GeneratedPasswordLength)
		assert.Equal(t, "Ana Pérez", res.User.FullName)
		assert.Equal(t, "ana@x.com", res.User.Email)
		assert.Equal(t, models.RoleUser, res.User.Role)
		assert.True(t, auth.CheckPassword(res.Password, res.User.PasswordHash))
		assert.NotEqual(t, res.Password, res.User.UniquePassword)

		user, err := svc.Login(ctx, auth.LoginInput{Email: "ANA@x.com", Password: " " + res.Password + " "})
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, user.ID)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := newService(t)

		_, err := svc.Register(ctx, auth.RegisterInput{FullName: "", Email: "ana@x.com"})
		assert.ErrorIs(t, err, auth.ErrMissingFields)

		_, err = svc.Register(ctx, auth.RegisterInput{FullName: "Ana", Email: "   "})
		assert.ErrorIs(t, err, auth.ErrMissingFields)
	})

	t.Run("invalid email", func(t *testing.T) {
		svc := newService(t)

		_, err := svc.Register(ctx, auth.RegisterInput{FullName: "Ana", Email: "ana-at-x"})
		assert.ErrorIs(t, err, auth.ErrInvalidEmail)
	})

	t.Run("duplicate email is case insensitive", func(t *testing.T) {
		svc := newService(t)

		_, err := svc.Register(ctx, auth.RegisterInput{FullName: "Ana", Email: "ana@x.com"})
		require.NoError(t, err)

		_, err = svc.Register(ctx, auth.RegisterInput{FullName: "Otra Ana", Email: "ANA@X.COM"})
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
	})
}

func TestService_Login(t *testing.T) {
	ctx := testutil.TestContext(t)
	db := testutil.SetupTestDB(t)
	enc := testutil.NewEncryptor(t)
	svc := auth.NewService(db, enc, testutil.Admins())
	user := testutil.CreateTestUser(t, db, enc, "Luis")

	t.Run("valid credentials", func(t *testing.T) {
		got, err := svc.Login(ctx, auth.LoginInput{Email: user.Email, Password: testutil.TestPassword})
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.False(t, svc.IsAdmin(got))
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, errWrong := svc.Login(ctx, auth.LoginInput{Email: user.Email, Password: "nope"})
		_, errUnknown := svc.Login(ctx, auth.LoginInput{Email: "ghost@example.com", Password: testutil.TestPassword})

		assert.ErrorIs(t, errWrong, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknown, auth.ErrInvalidCredentials)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})

	t.Run("empty password", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: user.Email, Password: "  "})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("admin is recognized by email", func(t *testing.T) {
		testutil.CreateTestAdmin(t, db, enc)

		got, err := svc.Login(ctx, auth.LoginInput{Email: testutil.AdminEmail, Password: testutil.AdminSecret})
		require.NoError(t, err)
		assert.True(t, svc.IsAdmin(got))
	})
}

func TestService_GetUserByID(t *testing.T) {
	ctx := testutil.TestContext(t)
	db := testutil.SetupTestDB(t)
	enc := testutil.NewEncryptor(t)
	svc := auth.NewService(db, enc, testutil.Admins())
	user := testutil.CreateTestUser(t, db, enc, "Luis")

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestService_EnsureAdmin(t *testing.T) {
	ctx := testutil.TestContext(t)
	db := testutil.SetupTestDB(t)
	enc := testutil.NewEncryptor(t)
	svc := auth.NewService(db, enc, testutil.Admins())

	account := config.AdminAccount{Email: "Chair@Example.com", Password: "first"}

	created, err := svc.EnsureAdmin(ctx, account)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, account)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "chair@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// changed password and a demoted role are both reset
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "chair@example.com").Update("role", models.RoleUser).Error)
	_, err = svc.EnsureAdmin(ctx, config.AdminAccount{Email: "chair@example.com", Password: "second"})
	require.NoError(t, err)

	var admin models.User
	require.NoError(t, db.Where("email = ?", "chair@example.com").First(&admin).Error)
	assert.Equal(t, auth.AdminName, admin.FullName)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, auth.CheckPassword("second", admin.PasswordHash))
	assert.False(t, auth.CheckPassword("first", admin.PasswordHash))

	plain, err := enc.Open(admin.UniquePassword)
	require.NoError(t, err)
	assert.Equal(t, "second", plain)
}

func TestService_PasswordDirectory(t *testing.T) {
	ctx := testutil.TestContext(t)
	db := testutil.SetupTestDB(t)
	enc := testutil.NewEncryptor(t)
	svc := auth.NewService(db, enc, testutil.Admins())

	testutil.CreateTestAdmin(t, db, enc)
	first := testutil.CreateTestUser(t, db, enc, "María Gómez")
	second := testutil.CreateTestUser(t, db, enc, "Jorge Ruiz")

	t.Run("lists candidates newest first without admins", func(t *testing.T) {
		entries, err := svc.PasswordDirectory(ctx, "")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, second.ID, entries[0].User.ID)
		assert.Equal(t, first.ID, entries[1].User.ID)
		for _, e := range entries {
			assert.Equal(t, testutil.TestPassword, e.Password)
			assert.False(t, e.Unreadable)
			assert.NotEqual(t, testutil.AdminEmail, e.User.Email)
		}
	})

	t.Run("filters by name case insensitively", func(t *testing.T) {
		entries, err := svc.PasswordDirectory(ctx, "jORGE")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, second.ID, entries[0].User.ID)
	})

	t.Run("filters by email", func(t *testing.T) {
		entries, err := svc.PasswordDirectory(ctx, first.Email)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, first.ID, entries[0].User.ID)
	})

	t.Run("admin email never matches", func(t *testing.T) {
		entries, err := svc.PasswordDirectory(ctx, "chair")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unreadable password is flagged", func(t *testing.T) {
		other := testutil.NewEncryptor(t)
		svcOther := auth.NewService(db, other, testutil.Admins())

		entries, err := svcOther.PasswordDirectory(ctx, "")
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.True(t, entries[0].Unreadable)
		assert.Empty(t, entries[0].Password)
	})
}

func TestService_PasswordDirectory_LegacyPlaintext(t *testing.T) {
	ctx := testutil.TestContext(t)
	db := testutil.SetupTestDB(t)
	enc := testutil.NewEncryptor(t)
	svc := auth.NewService(db, enc, testutil.Admins())

	hash, err := auth.HashPassword("Ab12Cd34Ef")
	require.NoError(t, err)
	legacy := &models.User{
		FullName:       "Usuario Antiguo",
		Email:          "legacy@example.com",
		PasswordHash:   hash,
		UniquePassword: "Ab12Cd34Ef",
		Role:           models.RoleUser,
	}
	require.NoError(t, db.Create(legacy).Error)

	entries, err := svc.PasswordDirectory(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ab12Cd34Ef", entries[0].Password)
	assert.False(t, entries[0].Unreadable)

	t.Run("sealing keeps the password readable", func(t *testing.T) {
		sealed, err := svc.SealLegacyPasswords(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sealed)

		var stored models.User
		require.NoError(t, db.First(&stored, legacy.ID).Error)
		assert.NotEqual(t, "Ab12Cd34Ef", stored.UniquePassword)

		entries, err := svc.PasswordDirectory(ctx, "legacy")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Ab12Cd34Ef", entries[0].Password)

		again, err := svc.SealLegacyPasswords(ctx)
		require.NoError(t, err)
		assert.Zero(t, again)
	})
}

package database_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gocrud/container"
	"github.com/gocrud/container/database"
)

type User struct {
	gorm.Model
	Name string
}

func TestProvideOpensLazyConnection(t *testing.T) {
	c := container.New()

	err := database.Provide(c, func(b *database.Builder) {
		b.Add("default", sqlite.Open("file::memory:?cache=shared"), func(o *database.Options) {
			o.MaxOpenConns = 5
			o.AutoMigrate = []any{&User{}}
		})
	})
	require.NoError(t, err)

	db, err := container.GetNamed[*database.DB](c, "default")
	require.NoError(t, err)
	require.Equal(t, "default", db.Name())

	// 自动迁移生效，可以直接写入
	require.NoError(t, db.Create(&User{Name: "alice"}).Error)

	var count int64
	require.NoError(t, db.Model(&User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// default 连接是类型装配的 primary
	byType, err := container.Get[*database.DB](c)
	require.NoError(t, err)
	require.Same(t, db, byType)

	c.Close()
}

func TestProvideRejectsDuplicateNames(t *testing.T) {
	c := container.New()
	err := database.Provide(c, func(b *database.Builder) {
		b.Add("main", sqlite.Open(":memory:"), nil)
		b.Add("main", sqlite.Open(":memory:"), nil)
	})
	require.Error(t, err)
}

func TestProvideRejectsMissingDialector(t *testing.T) {
	c := container.New()
	err := database.Provide(c, func(b *database.Builder) {
		b.Add("broken", nil, nil)
	})
	require.Error(t, err)
}

func TestInjectIntoService(t *testing.T) {
	c := container.New()
	require.NoError(t, database.Provide(c, func(b *database.Builder) {
		b.Add("default", sqlite.Open(":memory:"), nil)
	}))

	type repo struct {
		DB *database.DB `di:""`
	}
	require.NoError(t, container.Register[repo](c, "repo"))

	r, err := container.GetNamed[*repo](c, "repo")
	require.NoError(t, err)
	require.NotNil(t, r.DB)

	c.Close()
}

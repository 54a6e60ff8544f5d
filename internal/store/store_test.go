package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/a3tai/pdf-field-designer/internal/fields"
	"github.com/a3tai/pdf-field-designer/internal/geometry"
)

func newSQLiteRepository(t *testing.T) *GormRepository {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "designer.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormRepository(db)
}

func repositories(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": newSQLiteRepository(t),
	}
}

func sampleFields() []fields.Field {
	return []fields.Field{
		{
			Name:        "signature_field_1",
			Type:        fields.TypeSignature,
			Position:    geometry.Point{X: 72, Y: 640.5},
			Size:        fields.TypeSignature.DefaultSize(),
			Page:        2,
			Required:    true,
			Placeholder: "Sign here",
			Properties:  fields.SignatureProperties{},
		},
		{
			Name:        "text_field_2",
			Type:        fields.TypeText,
			Position:    geometry.Point{X: 100, Y: 120},
			Size:        fields.TypeText.DefaultSize(),
			Page:        1,
			Required:    false,
			Placeholder: "Enter text here",
			Properties:  fields.TextProperties{MaxLength: 64},
		},
		{
			Name:       "checkbox_field_3",
			Type:       fields.TypeCheckbox,
			Position:   geometry.Point{X: 30, Y: 30},
			Size:       fields.TypeCheckbox.DefaultSize(),
			Page:       1,
			Required:   true,
			Properties: fields.CheckboxProperties{Checked: true},
		},
		{
			// Empty names and zero sizes are accepted as-is.
			Type:       fields.TypeDate,
			Page:       3,
			Properties: fields.DateProperties{Format: "DD.MM.YYYY"},
		},
	}
}

var ignoreIdentity = cmpopts.IgnoreFields(fields.Field{}, "Key", "ID")

func TestRepository_SaveLoadRoundTrip(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := sampleFields()

			saved, err := repo.SaveFields(ctx, "tpl-1", in)
			require.NoError(t, err)
			require.Len(t, saved, len(in))
			for _, f := range saved {
				assert.NotEmpty(t, f.ID)
			}

			loaded, err := repo.LoadFields(ctx, "tpl-1")
			require.NoError(t, err)

			want := []fields.Field{in[1], in[2], in[0], in[3]}
			if diff := cmp.Diff(want, loaded, ignoreIdentity); diff != "" {
				t.Errorf("LoadFields() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(saved, loaded); diff != "" {
				t.Errorf("SaveFields() result differs from LoadFields() (-saved +loaded):\n%s", diff)
			}
		})
	}
}

func TestRepository_SaveReplacesWholesale(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := repo.SaveFields(ctx, "tpl-1", sampleFields())
			require.NoError(t, err)
			_, err = repo.SaveFields(ctx, "tpl-2", sampleFields()[:1])
			require.NoError(t, err)

			second, err := repo.SaveFields(ctx, "tpl-1", first[:2])
			require.NoError(t, err)
			require.Len(t, second, 2)
			assert.NotEqual(t, first[0].ID, second[0].ID, "ids are reassigned on every save")

			loaded, err := repo.LoadFields(ctx, "tpl-1")
			require.NoError(t, err)
			assert.Len(t, loaded, 2)

			other, err := repo.LoadFields(ctx, "tpl-2")
			require.NoError(t, err)
			assert.Len(t, other, 1)

			_, err = repo.SaveFields(ctx, "tpl-1", nil)
			require.NoError(t, err)
			loaded, err = repo.LoadFields(ctx, "tpl-1")
			require.NoError(t, err)
			assert.Empty(t, loaded)
		})
	}
}

func TestRepository_Templates(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.GetTemplate(ctx, "missing")
			assert.ErrorIs(t, err, ErrTemplateNotFound)

			created, err := repo.UpsertTemplate(ctx, Template{
				Name:        "Care worker statement",
				DocumentURL: "https://files.example.com/statement.pdf",
				PageCount:   3,
			})
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)

			created.PageCount = 4
			updated, err := repo.UpsertTemplate(ctx, *created)
			require.NoError(t, err)
			assert.Equal(t, created.ID, updated.ID)

			got, err := repo.GetTemplate(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, 4, got.PageCount)
			assert.Equal(t, "Care worker statement", got.Name)

			list, err := repo.ListTemplates(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("postgres", "", logger.Silent)
	assert.Error(t, err)
}

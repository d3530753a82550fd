package persistence

import (
	"context"
	"testing"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormLetterTemplateRepository(t *testing.T) {
	repo := NewGormLetterTemplateRepository(setupLetterTestDB(t).DB)
	ctx := context.Background()

	found, err := repo.FindByType(ctx, letter.LetterTypeBeasiswa)
	require.NoError(t, err)
	assert.Nil(t, found, "no template is not an error")

	tmpl, err := letter.NewTemplate(letter.LetterTypeBeasiswa, "Rekomendasi Beasiswa",
		"<p>Yang bertanda tangan di bawah ini menerangkan {{nama}} ({{npm}})</p>", nil,
		letter.LayoutHints{Font: "Arial"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, tmpl))

	found, err = repo.FindByType(ctx, letter.LetterTypeBeasiswa)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, tmpl.ID, found.ID)
	assert.Equal(t, []string{"nama", "npm"}, found.FieldNames)
	assert.Equal(t, "Arial", found.LayoutHints.Font)
	assert.Equal(t, 12, found.LayoutHints.FontSize)
	assert.Equal(t, letter.DefaultMargins(), found.LayoutHints.Margins)

	byID, err := repo.FindByID(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tmpl.RawContent, byID.RawContent)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	t.Run("save replaces the template of the type", func(t *testing.T) {
		replacement, err := letter.NewTemplate(letter.LetterTypeBeasiswa, "Rekomendasi Beasiswa v2",
			"<p>{{nama}} layak menerima {{nama_beasiswa}}</p>", nil, letter.LayoutHints{})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, replacement))

		found, err := repo.FindByType(ctx, letter.LetterTypeBeasiswa)
		require.NoError(t, err)
		assert.Equal(t, "Rekomendasi Beasiswa v2", found.Name)
		assert.Equal(t, []string{"nama", "nama_beasiswa"}, found.FieldNames)
	})

	t.Run("invalid template is rejected", func(t *testing.T) {
		err := repo.Save(ctx, &letter.Template{ID: uuid.New(), Type: letter.LetterTypeMagang})
		assert.Equal(t, "INVALID_TEMPLATE", shared.CodeOf(err))
	})
}

func TestGormLetterTemplateRepository_SeedMissing(t *testing.T) {
	repo := NewGormLetterTemplateRepository(setupLetterTestDB(t).DB)
	ctx := context.Background()

	custom, err := letter.NewTemplate(letter.LetterTypeMagang, "Magang (kustom)", "<p>{{nama}}</p>", nil, letter.LayoutHints{})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, custom))

	seeds := make([]*letter.Template, 0, 2)
	for _, lt := range []letter.LetterType{letter.LetterTypeMagang, letter.LetterTypePenelitian} {
		tmpl, err := letter.NewTemplate(lt, lt.DisplayName(), "<p>{{nama}} {{instansi}}</p>", nil, letter.LayoutHints{})
		require.NoError(t, err)
		seeds = append(seeds, tmpl)
	}

	added, err := repo.SeedMissing(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	magang, err := repo.FindByType(ctx, letter.LetterTypeMagang)
	require.NoError(t, err)
	assert.Equal(t, "Magang (kustom)", magang.Name, "existing templates are kept")

	added, err = repo.SeedMissing(ctx, seeds)
	require.NoError(t, err)
	assert.Zero(t, added)
}

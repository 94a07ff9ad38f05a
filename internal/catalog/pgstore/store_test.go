package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/resilience"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "kind", "lang", "title", "description", "price_cents", "position"}

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := New(db, "es").WithRetry(resilience.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
	})
	return store, mock
}

func TestLoadAssemblesCatalog(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery("SELECT id, kind, lang, title, description, price_cents, position").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("opcion-1", "option", "en", "Option 1", "Egg, Drink", 850, 1).
			AddRow("opcion-1", "option", "es", "Opción 1", "Huevo, Bebida", 850, 1).
			AddRow("extra-queso", "extra", "es", "Queso", "", 200, 1).
			AddRow("mystery", "combo", "es", "???", "", 100, 2))

	cat, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.Options, 1)
	require.Len(t, cat.Extras, 1)
	assert.Equal(t, "Opción 1", cat.Options[0].Title["es"])
	assert.Equal(t, "Egg, Drink", cat.Options[0].Description["en"])
	assert.Empty(t, cat.Extras[0].Description)
	assert.Equal(t, []string{"en", "es"}, cat.Languages)
	assert.Equal(t, "es", cat.DefaultLanguage)
	assert.NotEmpty(t, cat.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRetriesTransientErrors(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery("SELECT id").WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery("SELECT id").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("a", "option", "es", "Sopa", "", 500, 1))

	cat, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, cat.Options, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadGivesUp(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery("SELECT id").WillReturnError(errors.New("connection refused"))
	mock.ExpectQuery("SELECT id").WillReturnError(errors.New("connection refused"))

	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

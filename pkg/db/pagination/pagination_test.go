package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id string
	at time.Time
}

func cursorOf(r row) Cursor { return Cursor{ID: r.id, CreatedAt: r.at} }

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 2, 9, 30, 0, 123456789, time.FixedZone("AEST", 10*3600))

	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: at})
	require.NoError(t, err)
	assert.NotContains(t, token, "=")

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", decoded.ID)
	assert.True(t, decoded.CreatedAt.Equal(at))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", "bm90LWpzb24", "e30"} {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}

func TestPage(t *testing.T) {
	base := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	rows := []row{{"3", base.Add(3 * time.Minute)}, {"2", base.Add(2 * time.Minute)}, {"1", base.Add(time.Minute)}}

	kept, info, err := Page(rows, 2, cursorOf)
	require.NoError(t, err)
	assert.Len(t, kept, 2)
	assert.True(t, info.HasMore)

	next, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", next.ID)

	kept, info, err = Page(rows, 3, cursorOf)
	require.NoError(t, err)
	assert.Len(t, kept, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

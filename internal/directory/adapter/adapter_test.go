package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
)

func farmersKind(t *testing.T) schema.Kind {
	t.Helper()
	k, ok := schema.Default().Get(models.KindFarmers)
	require.True(t, ok)
	return k
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}

func TestNormalize(t *testing.T) {
	kind := farmersKind(t)

	t.Run("nested farmer profile", func(t *testing.T) {
		raw := decode(t, `{
			"_id": "f1",
			"name": "Jane",
			"farmerProfile": {
				"farmName": "Green Acres",
				"isVerified": true,
				"latitude": "-1.28",
				"longitude": 36.82,
				"produces": ["Maize", "Beans"],
				"profileImage": "uploads/f1.jpg"
			}
		}`)

		rec, ok := Normalize(kind, raw)
		require.True(t, ok)
		assert.Equal(t, "f1", rec.ID)
		assert.Equal(t, models.KindFarmers, rec.Kind)
		assert.Equal(t, "Green Acres", rec.Name)
		assert.True(t, rec.Verified)
		require.NotNil(t, rec.Latitude)
		require.NotNil(t, rec.Longitude)
		assert.Equal(t, "-1.28", *rec.Latitude)
		assert.Equal(t, "36.82", *rec.Longitude)
		assert.Equal(t, []string{"Maize", "Beans"}, rec.Strings("produces"))
		assert.Equal(t, "uploads/f1.jpg", rec.Image)
	})

	t.Run("top level wins over profile", func(t *testing.T) {
		raw := decode(t, `{
			"id": "f2",
			"latitude": "1.0",
			"profile": {"latitude": "2.0", "longitude": "3.0", "region": "Rift"},
			"region": "Coast"
		}`)

		rec, ok := Normalize(kind, raw)
		require.True(t, ok)
		assert.Equal(t, "1.0", *rec.Latitude)
		assert.Equal(t, "3.0", *rec.Longitude)
		region, _ := rec.String("region")
		assert.Equal(t, "Coast", region)
	})

	t.Run("snake case verification flag", func(t *testing.T) {
		rec, ok := Normalize(kind, decode(t, `{"id": 7, "is_verified": true}`))
		require.True(t, ok)
		assert.Equal(t, "7", rec.ID)
		assert.True(t, rec.Verified)
	})

	t.Run("string true is not verification", func(t *testing.T) {
		rec, ok := Normalize(kind, decode(t, `{"id": "x", "isVerified": "true"}`))
		require.True(t, ok)
		assert.False(t, rec.Verified)
	})

	t.Run("null coordinates stay nil", func(t *testing.T) {
		rec, ok := Normalize(kind, decode(t, `{"id": "x", "latitude": null, "lng": null}`))
		require.True(t, ok)
		assert.Nil(t, rec.Latitude)
		assert.Nil(t, rec.Longitude)
	})

	t.Run("missing identifier is dropped", func(t *testing.T) {
		_, ok := Normalize(kind, decode(t, `{"name": "ghost", "id": "  "}`))
		assert.False(t, ok)
	})
}

func TestNormalizeAll(t *testing.T) {
	kind := farmersKind(t)
	items := []any{
		map[string]any{"id": "a"},
		"not an object",
		map[string]any{"name": "no id"},
		map[string]any{"_id": "b"},
	}

	recs := NormalizeAll(kind, items)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)

	empty := NormalizeAll(kind, nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

package filter

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/storefront/pkg/models"
)

func TestParseOrderQuery_Empty(t *testing.T) {
	f, err := ParseOrderQuery(url.Values{}, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, OrderFilter{}, f)
	assert.Empty(t, f.BSON())
}

func TestParseOrderQuery_DayBoundaries(t *testing.T) {
	f, err := ParseOrderQuery(url.Values{
		"startDate": {"2024-03-01"},
		"endDate":   {"2024-03-05"},
	}, time.UTC)
	require.NoError(t, err)

	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2024, 3, 5, 23, 59, 59, 999000000, time.UTC), *f.To)
}

func TestParseOrderQuery_RFC3339FlooredInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)

	f, err := ParseOrderQuery(url.Values{"startDate": {"2024-03-01T20:30:00Z"}}, loc)
	require.NoError(t, err)

	require.NotNil(t, f.From)
	assert.Nil(t, f.To)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, loc), *f.From)
}

func TestParseOrderQuery_InvalidDate(t *testing.T) {
	_, err := ParseOrderQuery(url.Values{"endDate": {"yesterday"}}, time.UTC)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestParseOrderQuery_Cursor(t *testing.T) {
	id := primitive.NewObjectID()

	f, err := ParseOrderQuery(url.Values{"after": {id.Hex()}}, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, f.After)
	assert.Equal(t, id, *f.After)

	f, err = ParseOrderQuery(url.Values{"after": {"not-an-id"}}, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, f.After)
}

func TestOrderFilter_BSON(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	after := primitive.NewObjectID()

	f := OrderFilter{Search: "09+", From: &from, After: &after}
	doc := f.BSON()

	require.Len(t, doc, 3)
	assert.Equal(t, "$or", doc[0].Key)
	branches, ok := doc[0].Value.(bson.A)
	require.True(t, ok)
	assert.Len(t, branches, 3)
	assert.Equal(t, bson.D{{Key: "name", Value: primitive.Regex{Pattern: `09\+`, Options: "i"}}}, branches[0])

	assert.Equal(t, bson.E{Key: "orderDate", Value: bson.D{{Key: "$gte", Value: from}}}, doc[1])
	assert.Equal(t, bson.E{Key: "_id", Value: bson.D{{Key: "$gt", Value: after}}}, doc[2])

	assert.Len(t, f.WithoutCursor().BSON(), 2)
	assert.NotNil(t, f.After, "WithoutCursor must not modify the receiver")
}

func TestOrderFilter_Match(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2024, 5, d, h, 0, 0, 0, time.UTC) }
	order := &models.Order{
		ID:        primitive.NewObjectID(),
		Name:      "Nguyen Van A",
		Phone:     "0901234567",
		OrderDate: day(10, 15),
	}

	assert.True(t, OrderFilter{Search: "van a"}.Match(order))
	assert.True(t, OrderFilter{Search: "1234"}.Match(order))
	assert.True(t, OrderFilter{Search: order.ID.Hex()[18:]}.Match(order))
	assert.False(t, OrderFilter{Search: "tran"}.Match(order))

	from, to := startOfDay(day(10, 0)), endOfDay(day(10, 0))
	assert.True(t, OrderFilter{From: &from, To: &to}.Match(order))

	next := startOfDay(day(11, 0))
	assert.False(t, OrderFilter{From: &next}.Match(order))

	prev := endOfDay(day(9, 0))
	assert.False(t, OrderFilter{To: &prev}.Match(order))

	same := order.ID
	assert.False(t, OrderFilter{After: &same}.Match(order), "cursor is exclusive")

	older := primitive.NewObjectIDFromTimestamp(order.ID.Timestamp().Add(-time.Hour))
	assert.True(t, OrderFilter{After: &older}.Match(order))
}

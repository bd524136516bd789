package filter

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/storefront/pkg/models"
)

const dayLayout = "2006-01-02"

// OrderFilter selects orders by a free-text search over name, phone and id,
// an inclusive orderDate range and an id cursor. Nil or empty fields do not
// constrain the result.
type OrderFilter struct {
	Search string
	From   *time.Time
	To     *time.Time
	After  *primitive.ObjectID
}

// WithoutCursor returns the filter with the After cursor dropped. Order totals
// are counted with it.
func (f OrderFilter) WithoutCursor() OrderFilter {
	f.After = nil
	return f
}

func (f OrderFilter) BSON() bson.D {
	filter := bson.D{}

	if f.Search != "" {
		pattern := substring(f.Search)
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: pattern}},
			bson.D{{Key: "phone", Value: pattern}},
			bson.D{{Key: "$expr", Value: bson.D{{Key: "$regexMatch", Value: bson.D{
				{Key: "input", Value: bson.D{{Key: "$toString", Value: "$_id"}}},
				{Key: "regex", Value: pattern.Pattern},
				{Key: "options", Value: pattern.Options},
			}}}}},
		}})
	}

	if f.From != nil || f.To != nil {
		dateRange := bson.D{}
		if f.From != nil {
			dateRange = append(dateRange, bson.E{Key: "$gte", Value: *f.From})
		}
		if f.To != nil {
			dateRange = append(dateRange, bson.E{Key: "$lte", Value: *f.To})
		}
		filter = append(filter, bson.E{Key: "orderDate", Value: dateRange})
	}

	if f.After != nil {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$gt", Value: *f.After}}})
	}

	return filter
}

func (f OrderFilter) Match(o *models.Order) bool {
	if f.Search != "" &&
		!containsFold(o.Name, f.Search) &&
		!containsFold(o.Phone, f.Search) &&
		!containsFold(o.ID.Hex(), f.Search) {
		return false
	}
	if f.From != nil && o.OrderDate.Before(*f.From) {
		return false
	}
	if f.To != nil && o.OrderDate.After(*f.To) {
		return false
	}
	if f.After != nil && bytes.Compare(o.ID[:], f.After[:]) <= 0 {
		return false
	}
	return true
}

// ParseOrderQuery reads search, startDate, endDate and after. Dates are day
// granular: startDate is floored to the first millisecond of its day and
// endDate ceiled to the last one, both in loc. An after value that is not a
// well-formed ObjectID is ignored.
func ParseOrderQuery(values url.Values, loc *time.Location) (OrderFilter, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := OrderFilter{Search: strings.TrimSpace(values.Get("search"))}

	if v := values.Get("startDate"); v != "" {
		day, err := parseDay("startDate", v, loc)
		if err != nil {
			return OrderFilter{}, err
		}
		from := startOfDay(day)
		f.From = &from
	}
	if v := values.Get("endDate"); v != "" {
		day, err := parseDay("endDate", v, loc)
		if err != nil {
			return OrderFilter{}, err
		}
		to := endOfDay(day)
		f.To = &to
	}

	if v := values.Get("after"); v != "" {
		if id, err := primitive.ObjectIDFromHex(v); err == nil {
			f.After = &id
		}
	}

	return f, nil
}

func parseDay(name, value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dayLayout, value, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, invalid("%s must be a date (YYYY-MM-DD or RFC 3339), got %q", name, value)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

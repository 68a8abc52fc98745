// Package seeder generates sample profiles and events for local development.
package seeder

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	sources    = []string{"shopify", "import", "api", "form"}
	currencies = []string{"USD", "EUR", "GBP", "NGN"}
	discounts  = []string{"WELCOME10", "SPRING20", "VIP", "FREESHIP"}
	utms       = []string{"newsletter", "instagram", "google", "partner"}
	vendors    = []string{"Acme", "Globex", "Initech", "Umbrella"}
	variants   = []string{"Small", "Medium", "Large"}
	sectors    = []string{"Retail", "Finance", "Health", "Education", "Technology"}
	interests  = []string{"running", "cooking", "travel", "music", "gardening"}
	tags       = []string{"vip", "wholesale", "newsletter", "returning"}
	emailKinds = []string{"email_delivered", "email_open", "email_click", "email_bounce", "email_unsubscribe"}
)

// Campaign is a marketing campaign email events refer to.
type Campaign struct {
	ID   string
	Name string
}

// Batch is one profile and the events that belong to it.
type Batch struct {
	Profile bson.M
	Events  []bson.M
}

// Generator produces profile documents shaped like the segment store's.
type Generator struct {
	cfg       Config
	faker     *gofakeit.Faker
	now       time.Time
	campaigns []Campaign
}

// NewGenerator creates a generator. Events are placed within cfg.TimeSpread
// before now.
func NewGenerator(cfg Config, now time.Time) *Generator {
	faker := gofakeit.New(cfg.Seed)
	campaigns := make([]Campaign, 4)
	for i := range campaigns {
		campaigns[i] = Campaign{ID: fmt.Sprintf("cmp-%d", i+1), Name: faker.BuzzWord() + " " + faker.Noun()}
	}
	return &Generator{cfg: cfg, faker: faker, now: now.UTC(), campaigns: campaigns}
}

// Campaigns lists the campaigns email events are drawn from.
func (g *Generator) Campaigns() []Campaign {
	return append([]Campaign(nil), g.campaigns...)
}

// Next generates profile n with its events. Profile totals agree with the
// generated transactions.
func (g *Generator) Next(n int) Batch {
	id := fmt.Sprintf("p-%06d", n)
	createdAt := g.pastTime()

	profile := bson.M{
		"id":               id,
		"email":            g.faker.Email(),
		"firstname":        g.faker.FirstName(),
		"lastname":         g.faker.LastName(),
		"originalSource":   g.pick(sources),
		"updatedsource":    g.pick(sources),
		"address":          g.faker.Street(),
		"street":           g.faker.StreetName(),
		"city":             g.faker.City(),
		"zip":              g.faker.Zip(),
		"country":          g.faker.Country(),
		"company":          g.faker.Company(),
		"jobTitle":         g.faker.JobTitle(),
		"sector":           g.pick(sectors),
		"interest":         g.pick(interests),
		"tags":             g.pickSome(tags),
		"profileCreatedAt": createdAt,
		"lastupdated":      g.between(createdAt, g.now),
	}

	var events []bson.M
	txCount := 0
	if g.faker.Float64Range(0, 1) >= g.cfg.ProspectFraction && g.cfg.MaxTransactions > 0 {
		txCount = g.faker.Number(1, g.cfg.MaxTransactions)
	}
	customerTags := g.pickSome(tags)
	ltv := 0.0
	var lastOrder time.Time
	for i := 0; i < txCount; i++ {
		tx := g.transaction(id, i, createdAt, customerTags)
		ltv += tx["total"].(float64)
		if ts := tx["timestamp"].(time.Time); ts.After(lastOrder) {
			lastOrder = ts
		}
		events = append(events, tx)
	}
	if g.cfg.MaxEmailEvents > 0 {
		for i, k := 0, g.faker.Number(0, g.cfg.MaxEmailEvents); i < k; i++ {
			events = append(events, g.email(id, i, createdAt))
		}
	}

	profile["totalTransactions"] = txCount
	profile["lifetimeValue"] = math.Round(ltv*100) / 100
	if txCount > 0 {
		profile["customerCreatedAt"] = createdAt
		profile["orderdate"] = lastOrder
	} else {
		// prospects: created recently enough to count for the prospect window
		profile["customerCreatedAt"] = g.between(g.now.AddDate(0, -11, 0), g.now)
	}
	return Batch{Profile: profile, Events: events}
}

func (g *Generator) transaction(profileID string, i int, after time.Time, customerTags []string) bson.M {
	items := make(bson.A, g.faker.Number(1, 3))
	for j := range items {
		items[j] = bson.M{
			"name":    g.faker.ProductName(),
			"variant": g.pick(variants),
			"vendor":  g.pick(vendors),
		}
	}
	ts := g.between(after, g.now)
	tx := bson.M{
		"id":         fmt.Sprintf("%s-tx-%d", profileID, i),
		"event":      "transaction",
		"profile":    bson.M{"id": profileID},
		"timestamp":  ts,
		"orderdate":  ts,
		"total":      math.Round(g.faker.Float64Range(5, 400)*100) / 100,
		"currency":   g.pick(currencies),
		"utm":        g.pick(utms),
		"line_items": items,
		"customer":   bson.M{"tags": customerTags},
	}
	if g.faker.Bool() {
		tx["discountcode"] = g.pick(discounts)
	}
	return tx
}

func (g *Generator) email(profileID string, i int, after time.Time) bson.M {
	c := g.campaigns[g.faker.Number(0, len(g.campaigns)-1)]
	return bson.M{
		"id":         fmt.Sprintf("%s-em-%d", profileID, i),
		"event":      g.pick(emailKinds),
		"profile":    bson.M{"id": profileID},
		"timestamp":  g.between(after, g.now),
		"campaign":   c.Name,
		"campaignId": c.ID,
	}
}

func (g *Generator) pastTime() time.Time {
	return g.between(g.now.Add(-g.cfg.TimeSpread), g.now)
}

func (g *Generator) between(start, end time.Time) time.Time {
	if !end.After(start) {
		return start
	}
	return g.faker.DateRange(start, end).UTC().Truncate(time.Millisecond)
}

func (g *Generator) pick(values []string) string {
	return values[g.faker.Number(0, len(values)-1)]
}

func (g *Generator) pickSome(values []string) []string {
	out := []string{}
	for _, v := range values {
		if g.faker.Number(0, 2) == 0 {
			out = append(out, v)
		}
	}
	return out
}

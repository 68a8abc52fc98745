package definitions

import (
	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

const (
	KeyDelivered    FieldKey = "delivered"
	KeyOpened       FieldKey = "opened"
	KeyClicked      FieldKey = "clicked"
	KeyBounced      FieldKey = "bounced"
	KeyUnsubscribed FieldKey = "unsubscribed"
)

// EmailEvents maps each marketing key to the event name it matches.
var EmailEvents = map[FieldKey]string{
	KeyDelivered:    "email_delivered",
	KeyOpened:       "email_open",
	KeyClicked:      "email_click",
	KeyBounced:      "email_bounce",
	KeyUnsubscribed: "email_unsubscribe",
}

func marketingDefinitions() []Definition {
	campaign := func(key FieldKey, verb string) Definition {
		event := EmailEvents[key]
		return Definition{
			Key:         key,
			Group:       model.GroupMarketing,
			Description: "Profiles that have " + verb + " this campaign.",
			Build: func(value any) []translator.Term {
				return []translator.Term{
					{Field: "events.event", Value: event},
					{Field: "events.campaignId", Value: value},
				}
			},
		}
	}
	return []Definition{
		campaign(KeyDelivered, "been delivered"),
		campaign(KeyOpened, "opened"),
		campaign(KeyClicked, "clicked"),
		campaign(KeyBounced, "bounced from"),
		campaign(KeyUnsubscribed, "unsubscribed from"),
	}
}

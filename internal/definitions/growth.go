package definitions

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

const (
	KeyOriginalSource     FieldKey = "originalsource"
	KeyCustomerOrProspect FieldKey = "customer or prospect"
	KeyRetention          FieldKey = "retention"
	KeyTransactionCount   FieldKey = "number of transactions"
	KeyLifetimeValue      FieldKey = "lifetime value"
)

// Values offered for the fixed-choice growth fields.
const (
	ValueCustomer            = "Customer"
	ValueProspect            = "Prospect"
	ValueWithTransactions    = "With Transactions"
	ValueWithoutTransactions = "Without Transactions"
)

func growthDefinitions() []Definition {
	return []Definition{
		{
			Key:         KeyOriginalSource,
			Group:       model.GroupGrowth,
			Description: "Segment by originalSource of profiles.",
			Build:       field("originalSource"),
		},
		{
			Key:         KeyCustomerOrProspect,
			Group:       model.GroupGrowth,
			Description: "Profiles that have or have not transacted.",
			Build: func(value any) []translator.Term {
				if value == ValueCustomer {
					return []translator.Term{{Field: "totalTransactions", Value: bson.D{{Key: "$gt", Value: 0}}}}
				}
				return []translator.Term{{Field: "totalTransactions", Value: bson.D{{Key: "$eq", Value: 0}}}}
			},
		},
		{
			Key:         KeyRetention,
			Group:       model.GroupGrowth,
			Description: "Profiles with or without transaction events.",
			Build: func(value any) []translator.Term {
				if value == ValueWithoutTransactions {
					return []translator.Term{{Field: "events", Value: bson.D{{Key: "$not", Value: bson.D{
						{Key: "$elemMatch", Value: bson.D{{Key: "event", Value: "transaction"}}},
					}}}}}
				}
				return []translator.Term{{Field: "events.event", Value: "transaction"}}
			},
		},
		{
			Key:         KeyTransactionCount,
			Group:       model.GroupGrowth,
			Description: "Profiles with this number of transactions.",
			Build:       field("totalTransactions"),
		},
		{
			Key:         KeyLifetimeValue,
			Group:       model.GroupGrowth,
			Description: "Profiles with this lifetime value.",
			Build:       field("lifetimeValue"),
		},
	}
}

package definitions

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

const (
	KeySpend        FieldKey = "spend"
	KeyCurrency     FieldKey = "currency"
	KeyDiscountCode FieldKey = "discountcode"
	KeyUTM          FieldKey = "utm"
	KeyProductName  FieldKey = "product name"
	KeyVariant      FieldKey = "variant"
	KeyVendor       FieldKey = "vendor"
	// KeyCustomerTags is distinct from the profile "tags" key; it matches tags
	// recorded on the transaction's customer.
	KeyCustomerTags FieldKey = "customer tags"
)

func transactionDefinitions() []Definition {
	return []Definition{
		{Key: KeySpend, Group: model.GroupTransaction, Description: "Customers that spent this amount.", Build: field("events.total")},
		{Key: KeyCurrency, Group: model.GroupTransaction, Description: "Customers that paid in this currency.", Build: field("events.currency")},
		{Key: KeyDiscountCode, Group: model.GroupTransaction, Description: "Customers that used this discount code.", Build: field("events.discountcode")},
		{Key: KeyUTM, Group: model.GroupTransaction, Description: "Customers with this UTM tracking.", Build: field("events.utm")},
		{Key: KeyProductName, Group: model.GroupTransaction, Description: "Customers that bought this product.", Build: field("events.line_items.name")},
		{Key: KeyVariant, Group: model.GroupTransaction, Description: "Customers that bought this product variant.", Build: field("events.line_items.variant")},
		{Key: KeyVendor, Group: model.GroupTransaction, Description: "Customers that bought from this vendor.", Build: field("events.line_items.vendor")},
		{
			Key:         KeyCustomerTags,
			Group:       model.GroupTransaction,
			Description: "Customers tagged with this value at purchase time.",
			Build: func(value any) []translator.Term {
				return []translator.Term{{Field: "events.customer.tags", Value: bson.D{{Key: "$in", Value: bson.A{value}}}}}
			},
		},
	}
}

package definitions

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

const (
	KeyUpdatedSource FieldKey = "updatedsource"
	KeyAddress       FieldKey = "address"
	KeyStreet        FieldKey = "street"
	KeyCity          FieldKey = "city"
	KeyZip           FieldKey = "zip"
	KeyCountry       FieldKey = "country"
	KeyCompany       FieldKey = "company"
	KeyJobTitle      FieldKey = "jobtitle"
	KeySector        FieldKey = "sector"
	KeyInterest      FieldKey = "interest"
	KeyTags          FieldKey = "tags"
)

// ProfilePath maps a profile key to its document field. Keys are lower-case
// while the stored job title field is camel-cased.
func ProfilePath(key FieldKey) string {
	if key == KeyJobTitle {
		return "jobTitle"
	}
	return string(key)
}

func profileDefinitions() []Definition {
	attr := func(key FieldKey, noun string) Definition {
		return Definition{
			Key:         key,
			Group:       model.GroupProfile,
			Description: "Profiles with this " + noun + ".",
			Build:       field(ProfilePath(key)),
		}
	}
	return []Definition{
		attr(KeyUpdatedSource, "updated source"),
		attr(KeyAddress, "address"),
		attr(KeyStreet, "street"),
		attr(KeyCity, "city"),
		attr(KeyZip, "zip"),
		attr(KeyCountry, "country"),
		attr(KeyCompany, "company"),
		attr(KeyJobTitle, "job title"),
		attr(KeySector, "sector"),
		attr(KeyInterest, "interest"),
		{
			Key:         KeyTags,
			Group:       model.GroupProfile,
			Description: "Profiles carrying this tag.",
			Build: func(value any) []translator.Term {
				return []translator.Term{{Field: "tags", Value: bson.D{{Key: "$in", Value: bson.A{value}}}}}
			},
		},
	}
}

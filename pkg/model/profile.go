package model

// Profile is one row returned by a paginated segment run.
type Profile struct {
	ID            string   `bson:"id" json:"id" yaml:"id"`
	AccountID     string   `bson:"accountId" json:"accountId" yaml:"accountId"`
	Email         string   `bson:"email" json:"email" yaml:"email"`
	Firstname     string   `bson:"firstname" json:"firstname" yaml:"firstname"`
	Lastname      string   `bson:"lastname" json:"lastname" yaml:"lastname"`
	Lists         []string `bson:"lists" json:"lists" yaml:"lists"`
	LifetimeValue float64  `bson:"lifetimeValue" json:"lifetimeValue" yaml:"lifetimeValue"`
}

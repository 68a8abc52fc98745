package model

// GroupOptions lists the selectable values of every field key in a group.
type GroupOptions map[string][]OptionValue

// Catalog holds the options of every group.
type Catalog map[GroupKey]GroupOptions

// Fill adds an empty list for each key in keys that has no options yet.
func (o GroupOptions) Fill(keys []string) GroupOptions {
	if o == nil {
		o = GroupOptions{}
	}
	for _, k := range keys {
		if o[k] == nil {
			o[k] = []OptionValue{}
		}
	}
	return o
}

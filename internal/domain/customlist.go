package domain

type CustomListName string

const (
	ListQACategories      CustomListName = "qa_categories"
	ListQualityAttributes CustomListName = "quality_attributes"
	ListTags              CustomListName = "tags"
)

func CustomListNames() []CustomListName {
	return []CustomListName{ListQACategories, ListQualityAttributes, ListTags}
}

var customListParents = map[CustomListName]CustomListName{
	ListQualityAttributes: ListQACategories,
}

func ParseCustomListName(value string) (CustomListName, error) {
	for _, name := range CustomListNames() {
		if string(name) == value {
			return name, nil
		}
	}
	return "", NotFound("custom list %q does not exist", value)
}

// ParentList returns the list whose entries name parents of entries in l.
func (l CustomListName) ParentList() (CustomListName, bool) {
	parent, ok := customListParents[l]
	return parent, ok
}

// ChildLists returns every list whose parent list is l.
func (l CustomListName) ChildLists() []CustomListName {
	out := make([]CustomListName, 0)
	for _, name := range CustomListNames() {
		if parent, ok := customListParents[name]; ok && parent == l {
			out = append(out, name)
		}
	}
	return out
}

type CustomListEntry struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Parent      string `json:"parent,omitempty"`
}

func (e CustomListEntry) QueryIdentifier() string { return e.Name }
func (e CustomListEntry) QueryType() string       { return "custom_list_entry" }

package domain

import (
	"fmt"
	"strings"
)

type ResourceType string

const (
	ResourceModel      ResourceType = "model"
	ResourceUser       ResourceType = "user"
	ResourceGroup      ResourceType = "group"
	ResourceCatalog    ResourceType = "catalog"
	ResourceCustomList ResourceType = "custom_list"
)

func ResourceTypes() []ResourceType {
	return []ResourceType{ResourceModel, ResourceUser, ResourceGroup, ResourceCatalog, ResourceCustomList}
}

func ParseResourceType(value string) (ResourceType, error) {
	for _, rt := range ResourceTypes() {
		if string(rt) == value {
			return rt, nil
		}
	}
	return "", BadRequest("unknown resource type %q", value)
}

type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodAny    Method = "ANY"
)

func Methods() []Method {
	return []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodAny}
}

func ParseMethod(value string) (Method, error) {
	upper := Method(strings.ToUpper(value))
	for _, m := range Methods() {
		if m == upper {
			return m, nil
		}
	}
	return "", BadRequest("unknown method %q", value)
}

// AllResources is the serialized stand-in for a permission without a
// resource id, which applies to every resource of its type.
const AllResources = "*"

// Permission grants Method on a resource. An empty ResourceID is a wildcard
// over all resources of ResourceType.
type Permission struct {
	ResourceType ResourceType `json:"resource_type" validate:"required"`
	ResourceID   string       `json:"resource_id,omitempty"`
	Method       Method       `json:"method" validate:"required"`
}

func NewPermission(rt ResourceType, resourceID string, method Method) Permission {
	return Permission{ResourceType: rt, ResourceID: resourceID, Method: method}
}

// String is the serialized form, also used as the storage identifier:
// <type>-<id|*>-<method>.
func (p Permission) String() string {
	id := p.ResourceID
	if id == "" {
		id = AllResources
	}
	return fmt.Sprintf("%s-%s-%s", p.ResourceType, id, p.Method)
}

// ParsePermission reverses String. Resource types and methods never contain
// '-', so the id is whatever sits between the first and last separator.
func ParsePermission(value string) (Permission, error) {
	first := strings.Index(value, "-")
	last := strings.LastIndex(value, "-")
	if first <= 0 || last <= first+1 || last == len(value)-1 {
		return Permission{}, BadRequest("malformed permission %q", value)
	}
	rt, err := ParseResourceType(value[:first])
	if err != nil {
		return Permission{}, err
	}
	method, err := ParseMethod(value[last+1:])
	if err != nil {
		return Permission{}, err
	}
	id := value[first+1 : last]
	if id == AllResources {
		id = ""
	}
	return Permission{ResourceType: rt, ResourceID: id, Method: method}, nil
}

// GrantsAccess reports whether holding p allows the requested permission.
func (p Permission) GrantsAccess(requested Permission) bool {
	if p.ResourceType != requested.ResourceType {
		return false
	}
	if p.String() == requested.String() {
		return true
	}
	methodOK := p.Method == requested.Method || p.Method == MethodAny || requested.Method == MethodAny
	idOK := p.ResourceID == "" || p.ResourceID == requested.ResourceID
	return methodOK && idOK
}

func (p Permission) QueryIdentifier() string { return p.String() }
func (p Permission) QueryType() string       { return "permission" }

type Group struct {
	Name        string       `json:"name" validate:"required,excludesall=/\\"`
	Permissions []Permission `json:"permissions"`
}

func (g Group) QueryIdentifier() string { return g.Name }
func (g Group) QueryType() string       { return "group" }

func (g Group) HasPermission(p Permission) bool {
	for _, existing := range g.Permissions {
		if existing.String() == p.String() {
			return true
		}
	}
	return false
}

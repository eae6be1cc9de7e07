package domain

import "strings"

// MenuItem is a navigable route. Path doubles as the menu key.
type MenuItem struct {
	Path  string `json:"key"`
	Label string `json:"label"`
}

// Section groups menu items behind a permission policy. An empty AnyOf means
// the section is always visible.
type Section struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Icon  string     `json:"icon"`
	Items []MenuItem `json:"children"`
	AnyOf []string   `json:"-"`
}

// Visible evaluates the section policy against a checker.
func (s Section) Visible(c PermissionChecker) bool {
	if len(s.AnyOf) == 0 {
		return true
	}
	if c == nil {
		return false
	}
	return c.HasAnyPermission(s.AnyOf)
}

// Owns reports whether path belongs to the section.
func (s Section) Owns(path string) bool {
	for _, it := range s.Items {
		if it.Path == path {
			return true
		}
	}
	return path == "/"+s.Key || strings.HasPrefix(path, "/"+s.Key+"/")
}

const (
	SectionHome     = "home"
	SectionProjectX = "projectx"
	SectionAgents   = "agents"
	SectionLedger   = "ledger"
)

var sections = []Section{
	{
		Key: SectionHome, Label: "Home", Icon: "home",
		Items: []MenuItem{
			{Path: "/", Label: "Dashboard"},
			{Path: "/home/app-properties", Label: "Apps Properties"},
		},
	},
	{
		Key: SectionProjectX, Label: "ProjectX", Icon: "project",
		Items: []MenuItem{
			{Path: "/projectx/inquiry-purchase", Label: "Inquiry Purchase"},
			{Path: "/projectx/psp-metrics", Label: "PSP Metrics"},
		},
		AnyOf: []string{"projectx"},
	},
	{
		Key: SectionAgents, Label: "Agents", Icon: "api",
		Items: []MenuItem{
			{Path: "/agents/inquiry-purchase", Label: "Inquiry Purchase"},
		},
		AnyOf: []string{"saman", "sepehr", "behpardakht", "ap"},
	},
	{
		Key: SectionLedger, Label: "Ledger", Icon: "wallet",
		Items: []MenuItem{
			{Path: "/ledger/transactions", Label: "Transactions"},
			{Path: "/ledger/accounts", Label: "Accounts"},
		},
		AnyOf: []string{"yal"},
	},
}

// Sections returns a copy of the navigation policy table.
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// LookupSection returns the section with the given key.
func LookupSection(key string) (Section, bool) {
	for _, s := range sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// Menu returns the sections visible to c, in table order.
func Menu(c PermissionChecker) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.Visible(c) {
			out = append(out, s)
		}
	}
	return out
}

// SectionFor returns the section owning path. The root path belongs to home.
func SectionFor(path string) (Section, bool) {
	for _, s := range sections {
		if s.Owns(path) {
			return s, true
		}
	}
	return Section{}, false
}

// OpenSection returns the key of the section expanded by default for path.
func OpenSection(path string) string {
	if s, ok := SectionFor(path); ok {
		return s.Key
	}
	return SectionHome
}

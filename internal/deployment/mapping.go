// Package deployment transforms tabular user exports (CSV or any
// column-addressed rows) into deployment configurations for bulk user and
// course-membership provisioning, driven by a declarative JSON mapping.
package deployment

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "computor-backend/pkg/errors"
)

// FieldRule computes one output field from a row. Exactly one of Literal,
// Column, Template, or Ref is set; Transform optionally post-processes the
// value.
type FieldRule struct {
	Literal   *string `json:"literal,omitempty"`
	Column    *string `json:"column,omitempty"`
	Template  *string `json:"template,omitempty"`
	Ref       *string `json:"ref,omitempty"`
	Transform string  `json:"transform,omitempty"`
}

// Field is one named entry of the ordered field list. Order matters:
// fields are evaluated left to right, so later templates and refs may use
// earlier results.
type Field struct {
	Name string    `json:"name"`
	Rule FieldRule `json:"rule"`
}

// Condition guards a membership emission with a string comparison against
// an already computed field.
type Condition struct {
	Field     string  `json:"field"`
	Equals    *string `json:"equals,omitempty"`
	NotEquals *string `json:"not_equals,omitempty"`
}

// MembershipRule emits one course membership per matching row.
type MembershipRule struct {
	CoursePath string     `json:"course_path"`
	Role       string     `json:"role"`
	Condition  *Condition `json:"condition,omitempty"`
}

// Mapping is the full declarative transform for one import source.
type Mapping struct {
	Fields      []Field          `json:"fields"`
	Account     []Field          `json:"account,omitempty"`
	Memberships []MembershipRule `json:"memberships"`
}

// ParseMapping decodes and validates a JSON mapping document.
func ParseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.NewValidation("malformed mapping document: " + err.Error())
	}
	for _, f := range append(append([]Field{}, m.Fields...), m.Account...) {
		if f.Name == "" {
			return nil, apperrors.NewValidation("mapping field without a name")
		}
		if err := f.Rule.validate(); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (r FieldRule) validate() error {
	set := 0
	for _, ok := range []bool{r.Literal != nil, r.Column != nil, r.Template != nil, r.Ref != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return apperrors.NewValidation("field rule must set exactly one of literal, column, template, ref")
	}
	if r.Transform != "" {
		if _, ok := transforms[r.Transform]; !ok {
			return apperrors.NewValidation("unknown transform: " + r.Transform)
		}
	}
	return nil
}

var templateVarRegex = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// transforms are the named value post-processors.
var transforms = map[string]func(string) string{
	"to_lower": strings.ToLower,
	"to_upper": strings.ToUpper,
	"trim":     strings.TrimSpace,
	"to_bool": func(s string) string {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "y", "x":
			return "true"
		default:
			return "false"
		}
	},
	// extract_username takes the local part of an email address.
	"extract_username": func(s string) string {
		if i := strings.IndexByte(s, '@'); i >= 0 {
			return strings.ToLower(s[:i])
		}
		return strings.ToLower(s)
	},
}

// evalContext accumulates computed fields so later rules can reference
// earlier ones.
type evalContext struct {
	row    map[string]string
	fields map[string]string
}

// eval resolves one rule against the row and the accumulated context. A
// reference to a not-yet-populated field (including a cyclic one) yields
// the empty value rather than an error; left-to-right evaluation makes
// forward references the author's mistake, not a crash.
func (c *evalContext) eval(r FieldRule) string {
	var value string
	switch {
	case r.Literal != nil:
		value = *r.Literal
	case r.Column != nil:
		value = c.row[*r.Column]
	case r.Ref != nil:
		value = c.fields[*r.Ref]
	case r.Template != nil:
		value = templateVarRegex.ReplaceAllStringFunc(*r.Template, func(m string) string {
			name := m[1 : len(m)-1]
			if v, ok := c.fields[name]; ok {
				return v
			}
			return c.row[name]
		})
	}
	if r.Transform != "" {
		value = transforms[r.Transform](value)
	}
	return value
}

func (c *Condition) matches(fields map[string]string) bool {
	if c == nil {
		return true
	}
	v := fields[c.Field]
	if c.Equals != nil {
		return v == *c.Equals
	}
	if c.NotEquals != nil {
		return v != *c.NotEquals
	}
	return true
}

// UserDeployment is one provisioned user.
type UserDeployment struct {
	Username   string            `json:"username"`
	Email      string            `json:"email"`
	GivenName  string            `json:"given_name,omitempty"`
	FamilyName string            `json:"family_name,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// AccountDeployment is the optional external account bound to the user.
type AccountDeployment struct {
	Provider string `json:"provider"`
	Type     string `json:"type"`
	Username string `json:"username"`
}

// CourseMembershipDeployment enrolls the user in one course.
type CourseMembershipDeployment struct {
	CoursePath string `json:"course_path"`
	Role       string `json:"role"`
}

// UserEntry combines one row's outputs.
type UserEntry struct {
	User        UserDeployment               `json:"user"`
	Account     *AccountDeployment           `json:"account,omitempty"`
	Memberships []CourseMembershipDeployment `json:"memberships"`
}

// UsersDeploymentConfig is the transformer output, ready for bulk
// provisioning. Rows that matched no membership rule are excluded.
type UsersDeploymentConfig struct {
	Users []UserEntry `json:"users"`
}

// wellKnownUserFields route computed fields into the typed user record;
// everything else lands in Properties.
var wellKnownUserFields = map[string]func(*UserDeployment, string){
	"username":    func(u *UserDeployment, v string) { u.Username = v },
	"email":       func(u *UserDeployment, v string) { u.Email = v },
	"given_name":  func(u *UserDeployment, v string) { u.GivenName = v },
	"family_name": func(u *UserDeployment, v string) { u.FamilyName = v },
}

// Apply runs the mapping over every row. Row order is preserved, so the
// output is deterministic for identical input.
func (m *Mapping) Apply(rows []map[string]string) (*UsersDeploymentConfig, error) {
	out := &UsersDeploymentConfig{}

	for _, row := range rows {
		ctx := evalContext{row: row, fields: make(map[string]string, len(m.Fields))}

		entry := UserEntry{}
		for _, f := range m.Fields {
			v := ctx.eval(f.Rule)
			ctx.fields[f.Name] = v
			if setter, ok := wellKnownUserFields[f.Name]; ok {
				setter(&entry.User, v)
			} else {
				if entry.User.Properties == nil {
					entry.User.Properties = make(map[string]string)
				}
				entry.User.Properties[f.Name] = v
			}
		}

		if len(m.Account) > 0 {
			acct := AccountDeployment{}
			for _, f := range m.Account {
				v := ctx.eval(f.Rule)
				ctx.fields[f.Name] = v
				switch f.Name {
				case "provider":
					acct.Provider = v
				case "type":
					acct.Type = v
				case "username":
					acct.Username = v
				}
			}
			entry.Account = &acct
		}

		for _, rule := range m.Memberships {
			if rule.Condition.matches(ctx.fields) {
				entry.Memberships = append(entry.Memberships, CourseMembershipDeployment{
					CoursePath: rule.CoursePath,
					Role:       rule.Role,
				})
			}
		}

		// A row that joins no course provisions nothing.
		if len(entry.Memberships) == 0 {
			continue
		}
		if entry.User.Username == "" {
			return nil, apperrors.NewValidation("mapping produced a user without a username")
		}
		out.Users = append(out.Users, entry)
	}

	return out, nil
}

package auth

import (
	"maps"

	"github.com/goliatone/go-router"
)

// TemplateUserKey is the view variable holding the Session Record
var TemplateUserKey = "current_user"

const (
	csrfContextKey = "csrf"
	csrfFormField  = "_csrf"
	csrfHeaderName = "X-Csrf-Token"
)

// TemplateHelpers returns the data every view can use.
//
// In templates:
//
//	{% if current_user %}{{ current_user.firstName }}{% endif %}
//	<input type="hidden" name="{{ csrf_field_name }}" value="{{ csrf_token }}">
func TemplateHelpers() map[string]any {
	roles := map[string]string{}
	for _, r := range GetAllRoles() {
		roles[string(r)] = r.Label()
	}

	return map[string]any{
		"roles":            roles,
		"csrf_token":       "",
		"csrf_field_name":  csrfFormField,
		"csrf_header_name": csrfHeaderName,
	}
}

// TemplateHelpersWithContext fills the helpers with request data: the
// CSRF token and the Session Record set by the guard.
func TemplateHelpersWithContext(c router.Context) map[string]any {
	helpers := TemplateHelpers()

	if token, ok := c.Locals(csrfContextKey).(string); ok {
		helpers["csrf_token"] = token
	}

	if record, err := GetSession(c); err == nil {
		helpers[TemplateUserKey] = record
		helpers["role_label"] = record.Role.Label()
	}

	return helpers
}

// viewContext merges the request helpers with the handler data
func viewContext(c router.Context, data router.ViewContext) router.ViewContext {
	out := router.ViewContext{}
	maps.Copy(out, TemplateHelpersWithContext(c))
	maps.Copy(out, data)
	return out
}

package types

import (
	"fmt"
	"regexp"
	"strings"
)

// Resource names encode the owning generation so that rollback and garbage
// collection can recover ownership from a bare name listing. The scheme is
// fixed:
//
//	unit:     <service>-<generation>
//	template: <service>-tpl-<generation>
//
// Generations must therefore be safe inside platform resource names, which
// follow the usual RFC 1035 label rules. The "tpl-" prefix is reserved: a
// generation starting with it would produce a unit name that parses as a
// template of the same service, so such names can never be recovered.

const templateInfix = "tpl"

var generationPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidGeneration reports whether g can be embedded in resource names.
func ValidGeneration(g Generation) bool {
	if strings.HasPrefix(string(g), templateInfix+"-") {
		return false
	}
	return generationPattern.MatchString(string(g))
}

// UnitName derives the deployment unit name for a generation.
func UnitName(service string, g Generation) string {
	return fmt.Sprintf("%s-%s", service, g)
}

// TemplateName derives the template name for a generation.
func TemplateName(service string, g Generation) string {
	return fmt.Sprintf("%s-%s-%s", service, templateInfix, g)
}

// UnitPrefix is the listing prefix that matches every unit of a service,
// current and stale alike.
func UnitPrefix(service string) string {
	return service + "-"
}

// TemplatePrefix is the listing prefix that matches every template of a
// service.
func TemplatePrefix(service string) string {
	return fmt.Sprintf("%s-%s-", service, templateInfix)
}

// GenerationFromUnit recovers the generation from a unit name. The second
// return is false when the name does not belong to service's naming scheme.
func GenerationFromUnit(service, name string) (Generation, bool) {
	rest, ok := strings.CutPrefix(name, UnitPrefix(service))
	if !ok || rest == "" {
		return "", false
	}
	// Template names share the unit prefix; they are not units.
	if strings.HasPrefix(rest, templateInfix+"-") {
		return "", false
	}
	return Generation(rest), true
}

// GenerationFromTemplate recovers the generation from a template name.
func GenerationFromTemplate(service, name string) (Generation, bool) {
	rest, ok := strings.CutPrefix(name, TemplatePrefix(service))
	if !ok || rest == "" {
		return "", false
	}
	// Generations never start with "tpl-", so this is another service's
	// template, e.g. web-tpl-tpl-x belongs to web-tpl, not web.
	if strings.HasPrefix(rest, templateInfix+"-") {
		return "", false
	}
	return Generation(rest), true
}

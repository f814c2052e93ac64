package economic

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Verbs shared by every entity type
const (
	VerbGetData        = "GetData"
	VerbGetDataArray   = "GetDataArray"
	VerbGetAll         = "GetAll"
	VerbCreateFromData = "CreateFromData"
	VerbUpdateFromData = "UpdateFromData"
	VerbDelete         = "Delete"
)

// OperationConnect authenticates a session
const OperationConnect = "Connect"

var titleCaser = cases.Title(language.Und, cases.NoLower)

// Verb normalizes a verb given as get_data or GetData to its remote form.
func Verb(verb string) string {
	if !strings.Contains(verb, "_") {
		return upperFirst(verb)
	}
	var b strings.Builder
	for _, part := range strings.Split(verb, "_") {
		if part == "" {
			continue
		}
		b.WriteString(titleCaser.String(part))
	}
	return b.String()
}

// Operation combines a remote type name with a verb:
// Operation("Debtor", "get_data") == "DebtorGetData".
func Operation(typeName, verb string) string {
	return typeName + Verb(verb)
}

// HandleArgument is the argument key carrying a handle of the given type,
// e.g. "cashBookHandle".
func HandleArgument(typeName string) string {
	return lowerFirst(typeName) + "Handle"
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

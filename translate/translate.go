// Package translate localises the user facing messages of hexvm.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	// Language is the tag matched from the user locale settings.
	Language language.Tag

	printer *message.Printer
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("hexvm: locale: %v", err)
	}

	setLanguage(locales...)
}

// setLanguage picks the printer for the first usable locale, or en-US.
func setLanguage(locales ...string) {
	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	Language = message.MatchLanguage(locales...)
	printer = message.NewPrinter(Language)
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Number formats a machine word as a grouped decimal in the current locale.
func Number(value uint64) string {
	return printer.Sprint(number.Decimal(value))
}

package session

import (
	"fmt"
	"strings"
	"time"
)

var greetingWords = []string{"olá", "bem-vindo", "bom dia", "boa tarde", "boa noite"}

const greetingFormat = "Olá! Bem-vindo(a) ao Atendente Virtual da %s. "

// FirstOfDay reports whether now falls on a later calendar day than last,
// in now's location. A zero last counts as first.
func FirstOfDay(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	last = last.In(now.Location())
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	return ly != ny || lm != nm || ld != nd
}

// ContainsGreeting is a case-insensitive substring check.
func ContainsGreeting(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range greetingWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Greet prepends the store greeting when this is the first message of the
// day and the reply does not already greet.
func Greet(text, storeName string, last, now time.Time) string {
	if !FirstOfDay(last, now) || ContainsGreeting(text) {
		return text
	}
	return fmt.Sprintf(greetingFormat, storeName) + text
}

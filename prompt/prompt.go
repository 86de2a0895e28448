// Package prompt builds the text sent to the generative services.
//
// The text service is a stateless completion endpoint, so every bit of
// continuity comes from Build: species context, transcript, directive,
// instruction, always in that order.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sat8bit/firstcontact/species"
	"github.com/sat8bit/firstcontact/topic"
)

// Build concatenates the prompt sections. It is pure: identical input yields identical output.
// Empty sections are skipped; the order of the remaining ones never changes.
func Build(speciesContext, transcript, targetLeaderName, utterance string) string {
	sections := []string{
		strings.TrimSpace(speciesContext),
		strings.TrimSpace(transcript),
		fmt.Sprintf("The emissary decides to contact %s. The message reads: \"%s\"", targetLeaderName, strings.TrimSpace(utterance)),
		fmt.Sprintf("Respond as %s.", targetLeaderName),
	}

	var b strings.Builder
	for _, s := range sections {
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s)
	}
	return b.String()
}

// SpeciesContext is the fixed prefix for every prompt of a session.
func SpeciesContext(p species.Profile, headlines []*topic.Topic) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.Description))

	if len(headlines) > 0 {
		b.WriteString("\n\nRecent news on Earth:")
		for _, h := range headlines {
			if h == nil || h.Title == "" {
				continue
			}
			b.WriteString("\n- ")
			b.WriteString(h.Title)
			if h.Summary != "" {
				b.WriteString(": ")
				b.WriteString(h.Summary)
			}
		}
	}
	return b.String()
}

// MissileStrike is the narration sent as the message of a missile consequence.
func MissileStrike(speciesName, leaderName string, casualties int) string {
	if speciesName == "" {
		speciesName = "aliens"
	}
	return fmt.Sprintf("The %s launch a missile at Earth, killing %s of %s's people.",
		speciesName, humanize.Comma(int64(casualties)), leaderName)
}

// NewsImage describes the illustration for a consequence, keyed by the leader's name.
func NewsImage(leaderName string) string {
	return fmt.Sprintf("A dramatic news photograph of the aftermath of an alien missile strike on the nation led by %s. "+
		"Smoke rises over the capital while a vast alien ship hangs in the sky.", leaderName)
}

// TrimSpeaker drops everything up to and including the last colon.
// Completions tend to open with "Leader Name:" which would otherwise end up in the transcript twice.
func TrimSpeaker(text string) string {
	if i := strings.LastIndex(text, ":"); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(text)
}

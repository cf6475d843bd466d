package openai

import (
	"fmt"
	"strings"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
)

const analyzeInstructions = `You are a sentiment analysis assistant.

Rate the emotional tone of the user's text on three independent axes:
- valence: overall polarity, -1.0 (very negative) to 1.0 (very positive)
- intimacy: social closeness of the register, 0 (distant) to 100 (very intimate)
- formality: 0 (very casual) to 100 (very formal)

Judge the text as written, in its original language. Respond with JSON only.`

const translateInstructionsGeneric = `You are a translation assistant with a focus on emotional tone.

Translate the user's text into %s. Then rate BOTH the original text and your
translation on three axes: valence (-1.0 to 1.0), intimacy (0 to 100) and
formality (0 to 100).

If the translation loses or shifts any meaning-bearing tone element, describe
it briefly in nuance_note; otherwise leave nuance_note empty. Fill style_hints
with a few words characterizing the register of each side (e.g. "casual,
warm"). Respond with JSON only.`

const translateInstructionsParticle = `You are a translation assistant with a focus on emotional tone.

The source language (%s) uses discourse particles and politeness markers that
carry interpersonal meaning with no direct equivalent in other languages.
Detect any such particles in the user's text and explain their interpersonal
effect in nuance_note, including what is lost in translation. If the text
contains none, leave nuance_note empty.

Translate the user's text into %s. Then rate BOTH the original text and your
translation on three axes: valence (-1.0 to 1.0), intimacy (0 to 100) and
formality (0 to 100). Fill style_hints with a few words characterizing the
register of each side. Respond with JSON only.`

const suggestInstructions = `You are helping a user whose translated message reads emotionally flatter or
sharper than the original. Suggest exactly 3 emoji the user could append to the
translation to restore the original emotional tone, ordered from best to worst
fit. Explain in one or two sentences why, referring to the tonal gap. Respond
with JSON only.`

// translateInstructions picks the particle-aware variant for source languages
// whose discourse particles are known to drop out in translation.
func translateInstructions(sourceLangCode, targetLangName string) string {
	if domain.ParticleBearing(sourceLangCode) {
		name := domain.LanguageName(sourceLangCode)
		return fmt.Sprintf(translateInstructionsParticle, name, targetLangName)
	}
	return fmt.Sprintf(translateInstructionsGeneric, targetLangName)
}

func suggestInput(req domain.EmojiGapRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original text: %s\n", req.SourceText)
	fmt.Fprintf(&b, "Translated text: %s\n", req.TranslatedText)
	fmt.Fprintf(&b, "Original valence: %.2f\n", req.SourceValence)
	fmt.Fprintf(&b, "Translation valence: %.2f\n", req.TargetValence)
	return b.String()
}

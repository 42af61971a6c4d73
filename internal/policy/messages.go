package policy

import (
	"fmt"
	"strings"
	"unicode"
)

// CrisisMessage is returned for any input that mentions self-harm.
const CrisisMessage = `It sounds like you may be going through a very difficult time. You are not alone, and help is available right now.

Please contact the Veterans Crisis Line:
- Call 988 and press 1
- Text 838255
- Chat online at VeteransCrisisLine.net

If you are in immediate danger, call 911.`

// MedicalMessage redirects medical questions to care channels.
const MedicalMessage = `I cannot provide medical advice. For medical questions, please:
1. Contact your VA healthcare provider
2. Visit your nearest VA medical center
3. Use My HealtheVet secure messaging
4. Call 911 for emergencies

I can help you with VA benefits, services, and administrative questions.`

// SuppressedOutputMessage replaces a generated answer that moderation flagged.
const SuppressedOutputMessage = "I apologize, but I cannot provide that response. Please try rephrasing your question about VA benefits and services."

// UnavailableMessage is returned when moderation fails and the gate is
// configured to fail closed.
const UnavailableMessage = "I apologize, but I cannot process requests right now. Please try again later or call MyVA411 at 800-698-2411."

// DefaultCrisisKeywords are matched case-insensitively anywhere in the input.
var DefaultCrisisKeywords = []string{
	"kill myself", "suicide", "suicidal", "end my life", "want to die",
	"self-harm", "hurt myself", "harm myself", "take my own life", "no reason to live",
}

// DefaultMedicalKeywords route a question away from the assistant. They are
// matched as words, see matchWord.
var DefaultMedicalKeywords = []string{
	"diagnose", "diagnosis", "treatment", "symptom", "condition",
	"illness", "disease", "medication", "prescription", "doctor",
	"healthcare", "medical", "therapy", "cure", "heal",
}

func unsafeContentMessage(categories []string) string {
	return fmt.Sprintf("I apologize, but I cannot process that request. Content flagged for: %s Please keep your questions focused on VA benefits and services.",
		strings.Join(categories, ", "))
}

// matchKeyword returns the first keyword contained in text, ignoring case.
func matchKeyword(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

// inflections may follow a word keyword: "symptom" matches "symptoms" but
// "heal" does not match "health".
var inflections = []string{"", "s", "es", "d", "ed", "ing"}

// matchWord is matchKeyword restricted to whole words. A keyword must start
// at a word boundary and may only be extended by an inflection.
func matchWord(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(lower[from:], kw)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(kw)
			from = start + 1
			if start > 0 && isWordByte(lower[start-1]) {
				continue
			}
			rest := end
			for rest < len(lower) && isWordByte(lower[rest]) {
				rest++
			}
			for _, suffix := range inflections {
				if lower[end:rest] == suffix {
					return kw, true
				}
			}
		}
	}
	return "", false
}

func isWordByte(b byte) bool {
	return b >= 0x80 || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}

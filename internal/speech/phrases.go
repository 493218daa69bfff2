package speech

// Canned German phrase pools. One entry is picked at random per call;
// all of them are pre-rendered into the phrase cache at warmup.

var hiChoices = []string{
	"ja, hi", "schiess los!",
	"was gibts?", "hi, was geht?",
	"leg los!", "was willst du?",
	"sprechen Sie", "jo bro", "hey ho bro",
	"was geht so?",
}

var byeChoices = []string{
	"Auf Wiedersehen!", "Mach’s gut!", "Bis zum nächsten Mal!", "Schönen Tag noch!",
	"Bis bald!", "Pass auf dich auf!", "Bleib gesund!", "Man sieht sich!", "Bis später!", "Bis dann!",
	"Gute Reise!", "Viel Erfolg noch!", "Danke und tschüss!", "Alles Gute!", "Bis zum nächsten Treffen!",
	"Leb wohl!",
}

var initGreetings = []string{
	"Guten Tag!", "Hi, wie geht's?", "Schön dich zu sehen!", "Hallo und willkommen!",
	"Freut mich, dich zu treffen!", "Hallo zusammen!", "Hallo, mein Freund!",
	"Guten Tag, wie kann ich helfen?", "Willkommen!", "Hallo an alle!",
	"Herzlich willkommen!", "Hallo, schön dich hier zu haben!", "Hey, alles klar?",
	"Hallo, schön dich kennenzulernen!", "Hallo, wie läuft's?", "Einen schönen Tag!",
}

var didNotUnderstandChoices = []string{
	"Das war unverständlich, bitte wiederholen",
}

var abortSpeechChoices = []string{
	"Anwort abgebrochen, was soll ich tun?",
}

// explainSentence tells a new user how to start; it is cached so it
// can be played without a live synthesizer.
const explainSentence = "Sag das wort computer um zu starten."

// allPhrases returns every phrase the cache warmup must cover.
func allPhrases() []string {
	var out []string
	out = append(out, hiChoices...)
	out = append(out, byeChoices...)
	out = append(out, initGreetings...)
	out = append(out, didNotUnderstandChoices...)
	out = append(out, abortSpeechChoices...)
	out = append(out, explainSentence)
	return out
}

// Package prompt manages the conversation modes, their German system
// prompts, and the per-mode chat histories sent to the language model.
package prompt

import (
	"strings"
)

// Mode is one of the assistant's conversation modes. The model picks
// one per turn through the MODUS_SELECTION round.
type Mode string

const (
	ModeModusSelection Mode = "MODUS_SELECTION"
	ModeChat           Mode = "CHAT"
	ModeLEDControl     Mode = "LEDCONTROL"
	ModeStatus         Mode = "STATUS"
	ModeExit           Mode = "EXIT"
	ModeGarbageInput   Mode = "GARBAGEINPUT"
)

// Modes lists every mode in a stable order.
func Modes() []Mode {
	return []Mode{
		ModeModusSelection, ModeChat, ModeLEDControl,
		ModeStatus, ModeExit, ModeGarbageInput,
	}
}

// ParseMode matches s case-insensitively against the mode names.
func ParseMode(s string) (Mode, bool) {
	up := Mode(strings.ToUpper(strings.TrimSpace(s)))
	for _, m := range Modes() {
		if m == up {
			return m, true
		}
	}
	return "", false
}

// ParseModeReply extracts the selected mode from a mode-selection
// answer: the first word of the first line, uppercased. Anything
// unrecognized falls back to CHAT.
func ParseModeReply(reply string) Mode {
	line := reply
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return !('A' <= r && r <= 'Z' || 'a' <= r && r <= 'z' || r == '_')
	})
	if len(fields) > 0 {
		if m, ok := ParseMode(fields[0]); ok && m != ModeModusSelection {
			return m
		}
	}
	return ModeChat
}

// selection rules shown to the model in the MODUS_SELECTION round.
var modeRules = map[Mode]string{
	ModeExit:         "Wähle EXIT wenn der User das Gespräch beenden oder abbrechen will oder sich verabschiedet hat.",
	ModeGarbageInput: "Wähle GARBAGEINPUT wenn die Anfrage unverständlich oder unvollständig erscheint.",
	ModeLEDControl:   "Wähle LEDCONTROL wenn der User die Beleuchtung oder das Licht verändern, ein oder ausschalten möchte.",
	ModeStatus:       "Wähle STATUS wenn der User von Geräten (Fernseher, Verstärker) oder Dinge ein- oder ausschalten will (ausser wenn es um Licht geht).",
	ModeChat:         "Wähle CHAT wenn der User eine andere bisher nicht genannte Frage gestellt hat, oder sonstiger Small Talk oder verständlichen Satz ohne Bezug zu den anderen Themen. Im Zweifel diese Option wählen wenn der Input eine valide Frage darstellt.",
}

// Template couples a mode with its system prompt.
type Template struct {
	Mode         Mode
	Description  string
	SystemPrompt string
	UserSay      string
}

// Format substitutes {key} placeholders in the system prompt.
func (t Template) Format(context map[string]string) string {
	s := t.SystemPrompt
	for k, v := range context {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

const chatSystemPrompt = "Beantworte die Fragen als freundlicher und zuvorkommender Helfer. " +
	"Antworte kindergerecht für Kinder ab acht Jahren. " +
	"Antworte maximal mit 1 bis 3 kurzen Sätzen und stelle Gegenfragen, wenn der Sachverhalt unklar ist."

const garbageSystemPrompt = "Die Benutzereingabe ist unverständlich oder unvollständig. " +
	"Bitte fordere den Benutzer auf, die Anfrage zu präzisieren."

const ledControlSystemPrompt = `Du steuerst LED-Lichter per JSON requests.
Der User möchte sie möglicherweise ein- oder ausschalten oder die Farbe oder Helligkeit ändern.

Parameter und mögliche Werte:
- action: on, off. Nur off wenn User Dunkelheit will oder das Licht ausgeschalten werden soll und kein Licht mehr an sein soll. Immer on wählen wenn etwas am Licht verändert werden soll.
- rgbww: Array mit fünf Elementen: Rot, Grün, Blau, kaltes Weiß, warmes Weiß (jeweils von 0 bis 255).
- colortemp: Farbtemperatur setzen (2200K bis 6500K).
- brightness: Helligkeit anpassen, dünkler oder heller (Wertebereich 10-255).
- scene von 1 bis 32 ruft vordefinierte (oft dynamische) Szenen auf.
- scene 0 wird für benutzerdefinierte Farben oder Farbtemperaturen genutzt.
- speed (0-100) ist nur für dynamische Szenen relevant und bestimmt die Geschwindigkeit der Farbübergänge.
- temp oder rgbww werden nur beachtet, wenn sceneId = 0.

Stelle sicher, dass deine endgültige Ausgabe ein kurzes JSON-Snippet im folgendem Format ist:
Der action parameter ist mandatory, andere parameter sind je nach Modus zu wählen.

Szenen: 1 Ocean, 2 Romance, 3 Sunset, 4 Party, 5 Fireplace, 6 Cozy, 7 Forest,
8 Pastel Colors, 9 Wake up, 10 Bedtime, 11 Warm White, 12 Daylight, 13 Cool white,
14 Night light, 15 Focus, 16 Relax, 17 True colors, 18 TV time, 19 Plant growth,
20 Spring, 21 Summer, 22 Fall, 23 Deep dive, 24 Jungle, 25 Mojito, 26 Club,
27 Christmas, 28 Halloween, 29 Candlelight, 30 Golden white, 31 Pulse, 32 Steampunk.
Szenen 11 bis 19 und 30 sind statisch, alle anderen dynamisch; speed ist nur für
dynamische Szenen relevant.

Einige Beispiele:
Wärmstes Licht: {'action': 'on', 'scene': 0, 'colortemp': 2200, 'brightness': 255}
Tageslicht: {'action': 'on','scene': 12, 'colortemp': 4200, 'brightness': 255}
Nachtlicht: {'action': 'on','scene': 14}
Gemütlich: {'action': 'on','scene': 6, 'brightness': 255}
Entspannung: {'action': 'on','scene': 16, 'brightness': 255}
Color light with given rgb: {'action': 'on','rgbww': [255, 0, 0, 0, 0], 'scene': 0, 'brightness': 255}
Animated Fireplace light: {'action': 'on','scene': 5, 'speed': 100, 'brightness': 255}

Beachte das rgbww ein Tupel mit 5 elementen ist.
Beachte die wichtigste Regel strikt: Antworte mit EINER EINZELNEN JSON Ausgabe die den Endzustand beschreibt, und beende danach. Keine weiteren Erklärungen, Haftungsausschlüsse oder zusätzlicher Text.`

// templates holds the per-mode prompt templates.
var templates = map[Mode]Template{
	ModeModusSelection: {
		Mode:         ModeModusSelection,
		Description:  "Modus Auswahl",
		SystemPrompt: buildSelectionPrompt(),
	},
	ModeChat: {
		Mode:         ModeChat,
		Description:  "Live Chat Modus",
		SystemPrompt: chatSystemPrompt,
		UserSay:      "Lass uns etwas plaudern, Modus ist nun CHAT",
	},
	ModeLEDControl: {
		Mode:         ModeLEDControl,
		Description:  "LED Kontroll Modus",
		SystemPrompt: ledControlSystemPrompt,
	},
	ModeGarbageInput: {
		Mode:         ModeGarbageInput,
		Description:  "Unverständlicher Input",
		SystemPrompt: garbageSystemPrompt,
	},
	ModeStatus: {
		Mode:        ModeStatus,
		Description: "Anzeigen des System Status",
	},
	ModeExit: {
		Mode:        ModeExit,
		Description: "Beenden",
	},
}

// TemplateFor returns the template of a mode.
func TemplateFor(mode Mode) Template { return templates[mode] }

// buildSelectionPrompt assembles the MODUS_SELECTION system prompt
// from the per-mode rules.
func buildSelectionPrompt() string {
	var names []string
	for _, m := range Modes() {
		if m != ModeModusSelection {
			names = append(names, string(m))
		}
	}
	var b strings.Builder
	b.WriteString("Du musst genau einen der folgenden Modi (GROSSBUCHSTABEN) wählen: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\nBeginne deine Antwort, indem du den gewählten Modus in GROSSBUCHSTABEN nennst (z. B. \"EXIT\"). ")
	b.WriteString("Beende deine Antwort danach. Keine weiteren Erklärungen, Haftungsausschlüsse oder zusätzlicher Text.\n\n")
	b.WriteString("Befolge diese Regeln strikt:\n")
	for _, m := range Modes() {
		if rule, ok := modeRules[m]; ok {
			b.WriteString("- ")
			b.WriteString(rule)
			b.WriteString("\n")
		}
	}
	return b.String()
}
